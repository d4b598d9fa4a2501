package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	logger "github.com/soulteary/logger-kit"
	secure "github.com/soulteary/secure-kit"

	"github.com/soulteary/totp-seed/internal/metrics"
	"github.com/soulteary/totp-seed/internal/totp"
)

// GenerateRequest is the request body for POST /v1/generate.
type GenerateRequest struct {
	Seed string `json:"seed"`
	// Time is a unix timestamp; omitted means now.
	Time *int64 `json:"time,omitempty"`
	ParamsRequest
}

// GenerateResponse is the response for POST /v1/generate.
type GenerateResponse struct {
	OK        bool   `json:"ok"`
	Code      string `json:"code"`
	Step      int64  `json:"step"`
	Remaining int    `json:"remaining"`
	Period    uint   `json:"period"`
}

// Generate handles POST /v1/generate.
func Generate(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req GenerateRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		p, err := paramsFromRequest(req.ParamsRequest)
		if err != nil {
			return respondBadRequest(c, "invalid_params", err.Error())
		}
		secret, r := validatorFor(p).Decode(req.Seed)
		if !r.OK {
			metrics.RecordGenerate("failure")
			return respondBadRequest(c, r.Reason, r.Message())
		}

		at := time.Now()
		if req.Time != nil {
			at = time.Unix(*req.Time, 0)
		}
		code, err := totp.Generate(secret, at, p)
		metrics.RecordGenerate(metrics.Result(err))
		if errors.Is(err, totp.ErrInvalidParams) {
			return respondBadRequest(c, "invalid_params", err.Error())
		}
		if err != nil {
			log.Warn().Err(err).Msg("generate: engine failed")
			return respondInternalError(c)
		}
		log.Info().Str("code", secure.MaskString(code, 2)).Msg("generate: code issued")
		return c.JSON(GenerateResponse{
			OK:        true,
			Code:      code,
			Step:      totp.TimeStep(at, p.Period),
			Remaining: totp.Remaining(at, p.Period),
			Period:    p.Period,
		})
	}
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	logger "github.com/soulteary/logger-kit"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/metrics"
)

// ValidateRequest is the request body for POST /v1/validate.
type ValidateRequest struct {
	Seed string `json:"seed"`
	ParamsRequest
}

// ValidateResponse is the response for POST /v1/validate.
type ValidateResponse struct {
	OK         bool   `json:"ok"`
	Seed       string `json:"seed,omitempty"`
	SampleCode string `json:"sample_code"`
	Message    string `json:"message"`
}

// Validate handles POST /v1/validate.
func Validate(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ValidateRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		p, err := paramsFromRequest(req.ParamsRequest)
		if err != nil {
			return respondBadRequest(c, "invalid_params", err.Error())
		}

		r := validatorFor(p).Validate(req.Seed)
		metrics.RecordValidate(r.Reason)
		if !r.OK {
			log.Info().Str("reason", r.FullReason()).Msg("validate: seed rejected")
			return respondBadRequest(c, r.Reason, r.Message())
		}

		resp := ValidateResponse{OK: true, SampleCode: r.SampleCode, Message: r.Message()}
		if config.ExposeSeedInResponses {
			resp.Seed = r.Normalized
		}
		return c.JSON(resp)
	}
}

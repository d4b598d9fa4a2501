package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	logger "github.com/soulteary/logger-kit"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/metrics"
	"github.com/soulteary/totp-seed/internal/store"
	"github.com/soulteary/totp-seed/internal/totp"
)

// VerifyRequest is the request body for POST /v1/verify.
type VerifyRequest struct {
	Seed string `json:"seed"`
	Code string `json:"code"`
	// Window overrides TOTP_SKEW when set.
	Window *uint `json:"window,omitempty"`
	ParamsRequest
}

// VerifyResponse is the response for POST /v1/verify (success).
type VerifyResponse struct {
	OK       bool  `json:"ok"`
	Step     int64 `json:"step"`
	IssuedAt int64 `json:"issued_at"`
}

// Verify handles POST /v1/verify. A code is accepted once per seed and step.
func Verify(st *store.Store, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req VerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		if req.Code == "" {
			return respondBadRequest(c, "invalid_request", "code is required")
		}
		p, err := paramsFromRequest(req.ParamsRequest)
		if err != nil {
			return respondBadRequest(c, "invalid_params", err.Error())
		}
		secret, r := validatorFor(p).Decode(req.Seed)
		if !r.OK {
			metrics.RecordVerify("failure", r.Reason)
			return respondBadRequest(c, r.Reason, r.Message())
		}

		window := uint(config.TOTPSkew)
		if req.Window != nil {
			window = *req.Window
		}
		if err := config.CheckWindow(window); err != nil {
			return respondBadRequest(c, "invalid_params", err.Error())
		}
		now := time.Now()
		step, ok, err := totp.MatchStep(req.Code, secret, now, p, window)
		if err != nil {
			metrics.RecordVerify("failure", "internal_error")
			log.Warn().Err(err).Msg("verify: engine failed")
			return respondInternalError(c)
		}
		if !ok {
			metrics.RecordVerify("failure", "invalid")
			return respondUnauthorized(c, "invalid")
		}

		first, err := st.MarkStepUsed(c.Context(), r.Normalized, step)
		if err != nil {
			metrics.RecordVerify("failure", "internal_error")
			log.Warn().Err(err).Msg("verify: replay marker failed")
			return respondInternalError(c)
		}
		if !first {
			metrics.RecordVerify("failure", "replay")
			return respondBadRequest(c, "replay", "code already used")
		}
		metrics.RecordVerify("success", "")
		return c.JSON(VerifyResponse{OK: true, Step: step, IssuedAt: now.Unix()})
	}
}

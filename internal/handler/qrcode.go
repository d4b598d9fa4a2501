package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	logger "github.com/soulteary/logger-kit"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/qrcode"
)

// QRCode handles POST /v1/qrcode and returns the otpauth URI as a PNG.
func QRCode(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req EncodeRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		if req.Size > qrcode.MaxSize {
			return respondBadRequest(c, "invalid_params", qrcode.ErrSizeTooLarge.Error())
		}
		uri, ok, err := buildURI(c, req)
		if !ok {
			return err
		}
		size := config.QRSize
		if req.Size > 0 {
			size = req.Size
		}
		png, err := qrcode.Generate(uri, size)
		if errors.Is(err, qrcode.ErrSizeTooLarge) {
			return respondBadRequest(c, "invalid_params", err.Error())
		}
		if err != nil {
			log.Warn().Err(err).Msg("qrcode: render failed")
			return respondInternalError(c)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

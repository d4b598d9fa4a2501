package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/metrics"
	"github.com/soulteary/totp-seed/internal/otpauth"
)

// ParseRequest is the request body for POST /v1/parse.
type ParseRequest struct {
	URI string `json:"uri"`
}

// ParseResponse is the response for POST /v1/parse.
type ParseResponse struct {
	OK        bool   `json:"ok"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	Account   string `json:"account"`
	Secret    string `json:"secret"`
	Issuer    string `json:"issuer,omitempty"`
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	Period    int    `json:"period"`
	Counter   uint64 `json:"counter,omitempty"`
}

// EncodeRequest is the request body for POST /v1/encode and POST /v1/qrcode.
type EncodeRequest struct {
	Seed    string `json:"seed"`
	Account string `json:"account"`
	Issuer  string `json:"issuer"`
	Size    int    `json:"size,omitempty"`
	ParamsRequest
}

// EncodeResponse is the response for POST /v1/encode.
type EncodeResponse struct {
	OK  bool   `json:"ok"`
	URI string `json:"uri"`
}

// Parse handles POST /v1/parse.
func Parse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ParseRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		u, err := otpauth.Decode(req.URI)
		metrics.RecordURI("decode", metrics.Result(err))
		if err != nil {
			return respondBadRequest(c, "invalid_uri", err.Error())
		}
		return c.JSON(ParseResponse{
			OK:        true,
			Type:      u.Type,
			Label:     u.Label,
			Account:   u.Account(),
			Secret:    u.Secret,
			Issuer:    u.IssuerName(),
			Algorithm: u.Algorithm,
			Digits:    u.Digits,
			Period:    u.Period,
			Counter:   u.Counter,
		})
	}
}

// Encode handles POST /v1/encode.
func Encode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req EncodeRequest
		if err := c.BodyParser(&req); err != nil {
			return respondBadRequest(c, "invalid_request", err.Error())
		}
		uri, ok, err := buildURI(c, req)
		if !ok {
			return err
		}
		return c.JSON(EncodeResponse{OK: true, URI: uri})
	}
}

// buildURI validates the seed in req and encodes it. When ok is false a
// response has already been written and err is the result of writing it.
func buildURI(c *fiber.Ctx, req EncodeRequest) (uri string, ok bool, err error) {
	if req.Account == "" {
		return "", false, respondBadRequest(c, "invalid_request", "account is required")
	}
	p, err := paramsFromRequest(req.ParamsRequest)
	if err != nil {
		return "", false, respondBadRequest(c, "invalid_params", err.Error())
	}
	r := validatorFor(p).Validate(req.Seed)
	if !r.OK {
		return "", false, respondBadRequest(c, r.Reason, r.Message())
	}
	issuer := req.Issuer
	if issuer == "" {
		issuer = config.TOTPIssuer
	}
	uri = otpauth.Encode(r.Normalized, req.Account, issuer, p)
	metrics.RecordURI("encode", "success")
	return uri, true, nil
}

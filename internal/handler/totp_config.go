package handler

import (
	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/seed"
	"github.com/soulteary/totp-seed/internal/totp"
)

// ParamsRequest lets a caller override the configured TOTP parameters; zero fields keep the configured value.
type ParamsRequest struct {
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	Period    int    `json:"period"`
}

// paramsFromRequest starts from TOTP_* config and applies the request overrides.
func paramsFromRequest(r ParamsRequest) (totp.Params, error) {
	p, err := config.TOTPParams()
	if err != nil {
		return totp.Params{}, err
	}
	if r.Algorithm != "" {
		algo, err := totp.ParseAlgorithm(r.Algorithm)
		if err != nil {
			return totp.Params{}, err
		}
		p.Algorithm = algo
	}
	if r.Digits != 0 {
		p.Digits = totp.DigitsFromInt(r.Digits)
	}
	if r.Period < 0 {
		return totp.Params{}, totp.ErrInvalidParams
	}
	if r.Period != 0 {
		p.Period = uint(r.Period)
	}
	return p, p.Validate()
}

// validatorFor returns a seed validator with the configured floor and p.
func validatorFor(p totp.Params) *seed.Validator {
	v := seed.New()
	v.MinLength = config.SeedMinLength
	v.Params = p
	return v
}

package seed

import (
	"strings"
	"time"

	"github.com/soulteary/totp-seed/internal/base32"
	"github.com/soulteary/totp-seed/internal/totp"
)

// Reason codes carried by a failed validation.
const (
	ReasonMissing          = "missing"
	ReasonBadAlphabet      = "bad-alphabet"
	ReasonTooShort         = "too-short"
	ReasonGenerationFailed = "generation-failed"
)

// DefaultMinLength is the practical floor for a TOTP seed. It is a heuristic, not an RFC requirement.
const DefaultMinLength = 16

// ValidationFailure is the error form of a rejected seed.
type ValidationFailure struct {
	Reason string
	Detail string
}

func (f *ValidationFailure) Error() string {
	return "seed: " + joinReason(f.Reason, f.Detail)
}

func joinReason(reason, detail string) string {
	if detail == "" {
		return reason
	}
	return reason + ": " + detail
}

// Result is the outcome of Validate. Normalized is set whenever the input was not missing.
type Result struct {
	OK         bool
	Normalized string
	SampleCode string
	Reason     string
	Detail     string
}

// Err returns nil for a usable seed, otherwise a *ValidationFailure.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationFailure{Reason: r.Reason, Detail: r.Detail}
}

// FullReason is the reason code with any detail appended ("generation-failed: <detail>").
func (r Result) FullReason() string {
	return joinReason(r.Reason, r.Detail)
}

// Message is the human-readable explanation shown by the CLI.
func (r Result) Message() string {
	switch r.Reason {
	case "":
		return "Seed is valid"
	case ReasonMissing:
		return "Seed is required"
	case ReasonBadAlphabet:
		return "Invalid base32 format. Seed should only contain A-Z and 2-7 (no 0, 1, 8, 9)"
	case ReasonTooShort:
		return "Seed seems too short (typically 16-32 characters)"
	default:
		return "Seed validation failed: " + r.Detail
	}
}

// Validator classifies seeds. The zero value is not usable; call New.
type Validator struct {
	MinLength int
	Params    totp.Params
	Now       func() time.Time
}

// New returns a Validator with a 16 character floor, default params and the wall clock.
func New() *Validator {
	return &Validator{
		MinLength: DefaultMinLength,
		Params:    totp.DefaultParams(),
		Now:       time.Now,
	}
}

// Validate checks raw and, when usable, returns the cleaned seed with a code for the current step.
func (v *Validator) Validate(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Reason: ReasonMissing}
	}
	clean := base32.StripSpace(raw)
	if !base32.Valid(clean) {
		return Result{Normalized: clean, Reason: ReasonBadAlphabet}
	}
	if len(clean) < v.MinLength {
		return Result{Normalized: clean, Reason: ReasonTooShort}
	}

	secret, err := base32.Decode(clean)
	if err != nil {
		return Result{Normalized: clean, Reason: ReasonGenerationFailed, Detail: err.Error()}
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	code, err := totp.Generate(secret, now(), v.Params)
	if err != nil {
		return Result{Normalized: clean, Reason: ReasonGenerationFailed, Detail: err.Error()}
	}
	return Result{OK: true, Normalized: clean, SampleCode: code}
}

// Decode validates raw and returns the decoded secret alongside the result.
// The secret is nil whenever the result is not OK.
func (v *Validator) Decode(raw string) ([]byte, Result) {
	r := v.Validate(raw)
	if !r.OK {
		return nil, r
	}
	secret, err := base32.Decode(r.Normalized)
	if err != nil {
		return nil, Result{Normalized: r.Normalized, Reason: ReasonGenerationFailed, Detail: err.Error()}
	}
	return secret, r
}

// Validate uses the default Validator.
func Validate(raw string) Result {
	return New().Validate(raw)
}

package totp

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"math"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

var (
	// ErrInvalidSecret is returned when the decoded key is empty.
	ErrInvalidSecret = errors.New("totp: secret must not be empty")
	// ErrInvalidParams is returned for a zero period, unsupported digit count or algorithm.
	ErrInvalidParams = errors.New("totp: invalid parameters")
)

const (
	// DefaultPeriod is the step length in seconds.
	DefaultPeriod = 30
	// DefaultDigits is the code width.
	DefaultDigits = 6
	// DefaultWindow is the number of steps accepted either side of the current one.
	DefaultWindow = 1
	// MaxWindow bounds the steps MatchStep will scan on either side.
	MaxWindow = 1000

	minDigits = 6
	maxDigits = 10
)

// Params holds the code derivation options. It is passed per call; there is no package-level state.
type Params struct {
	Algorithm otp.Algorithm
	Digits    otp.Digits
	Period    uint
}

// DefaultParams returns SHA1, 6 digits, 30 second period (what authenticator apps assume).
func DefaultParams() Params {
	return Params{
		Algorithm: otp.AlgorithmSHA1,
		Digits:    otp.DigitsSix,
		Period:    DefaultPeriod,
	}
}

// Validate checks the period, digit count and algorithm.
func (p Params) Validate() error {
	if p.Period == 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidParams)
	}
	if n := int(p.Digits); n < minDigits || n > maxDigits {
		return fmt.Errorf("%w: digits must be between %d and %d, got %d", ErrInvalidParams, minDigits, maxDigits, n)
	}
	switch p.Algorithm {
	case otp.AlgorithmSHA1, otp.AlgorithmSHA256, otp.AlgorithmSHA512:
	default:
		return fmt.Errorf("%w: unsupported algorithm %d", ErrInvalidParams, int(p.Algorithm))
	}
	return nil
}

// DigitsFromInt converts a plain digit count. Range checking is left to Params.Validate.
func DigitsFromInt(n int) otp.Digits {
	return otp.Digits(n)
}

// ParseAlgorithm maps SHA1, SHA256 or SHA512 (any case) onto otp.Algorithm.
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SHA1":
		return otp.AlgorithmSHA1, nil
	case "SHA256":
		return otp.AlgorithmSHA256, nil
	case "SHA512":
		return otp.AlgorithmSHA512, nil
	}
	return 0, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidParams, name)
}

// AlgorithmName is the otpauth spelling of a, or "" for values this package does not support.
func AlgorithmName(a otp.Algorithm) string {
	switch a {
	case otp.AlgorithmSHA1, otp.AlgorithmSHA256, otp.AlgorithmSHA512:
		return a.String()
	}
	return ""
}

// TimeStep returns floor(unix / period).
func TimeStep(at time.Time, period uint) int64 {
	u := at.Unix()
	p := int64(period)
	step := u / p
	if u%p != 0 && u < 0 {
		step--
	}
	return step
}

// Remaining returns how many seconds the code for at stays valid.
func Remaining(at time.Time, period uint) int {
	p := int64(period)
	return int(p - (at.Unix()%p+p)%p)
}

// HOTP derives the RFC 4226 code for counter.
func HOTP(secret []byte, counter uint64, p Params) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecret
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(func() hash.Hash { return p.Algorithm.Hash() }, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)
	value %= pow10(int(p.Digits))
	return p.Digits.Format(int32(value)), nil
}

func pow10(n int) uint64 {
	v := uint64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// Generate returns the code for the step containing at. A zero at means now.
// Times before the unix epoch have no step and are rejected.
func Generate(secret []byte, at time.Time, p Params) (string, error) {
	if at.IsZero() {
		at = time.Now()
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	step := TimeStep(at, p.Period)
	if step < 0 {
		return "", fmt.Errorf("%w: time %d is before the unix epoch", ErrInvalidParams, at.Unix())
	}
	return HOTP(secret, uint64(step), p)
}

// Verify reports whether code matches any step in [step-window, step+window].
func Verify(code string, secret []byte, at time.Time, p Params, window uint) (bool, error) {
	_, ok, err := MatchStep(code, secret, at, p, window)
	return ok, err
}

// MatchStep is Verify returning the step that matched, for replay bookkeeping.
func MatchStep(code string, secret []byte, at time.Time, p Params, window uint) (int64, bool, error) {
	if at.IsZero() {
		at = time.Now()
	}
	if len(secret) == 0 {
		return 0, false, ErrInvalidSecret
	}
	if err := p.Validate(); err != nil {
		return 0, false, err
	}
	if window > MaxWindow {
		return 0, false, fmt.Errorf("%w: window %d exceeds %d", ErrInvalidParams, window, MaxWindow)
	}
	current := TimeStep(at, p.Period)
	w := int64(window)
	lo, hi := current-w, current+w
	if lo < 0 || lo > current {
		lo = 0
	}
	if hi < current {
		hi = math.MaxInt64
	}
	for step := lo; step <= hi; step++ {
		want, err := HOTP(secret, uint64(step), p)
		if err != nil {
			return 0, false, err
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return step, true, nil
		}
		if step == math.MaxInt64 {
			break
		}
	}
	return 0, false, nil
}

// NewSecret creates a random base32 seed suitable for enrolment in an authenticator app.
func NewSecret(issuer, account string, p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      p.Period,
		Digits:      p.Digits,
		Algorithm:   p.Algorithm,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/soulteary/totp-seed/internal/totp"
)

// ErrInvalidURI is returned for a wrong scheme, unknown type, missing secret or malformed parameter.
var ErrInvalidURI = errors.New("otpauth: invalid URI")

const (
	// Scheme is the URI scheme authenticator apps register for.
	Scheme = "otpauth"
	// TypeTOTP marks a time-based key.
	TypeTOTP = "totp"
	// TypeHOTP marks a counter-based key.
	TypeHOTP = "hotp"
)

// URI is a parsed otpauth:// key URI.
type URI struct {
	Type      string
	Label     string
	Secret    string
	Issuer    string
	Algorithm string
	Digits    int
	Period    int
	Counter   uint64
}

// Encode builds otpauth://totp/<issuer>:<account>?... for p. The secret is not validated.
func Encode(secret, account, issuer string, p totp.Params) string {
	label := url.PathEscape(account)
	q := url.Values{}
	q.Set("secret", secret)
	if issuer != "" {
		label = url.PathEscape(issuer) + ":" + label
		q.Set("issuer", issuer)
	}
	if name := totp.AlgorithmName(p.Algorithm); name != "" {
		q.Set("algorithm", name)
	}
	q.Set("digits", strconv.Itoa(int(p.Digits)))
	q.Set("period", strconv.FormatUint(uint64(p.Period), 10))
	return fmt.Sprintf("%s://%s/%s?%s", Scheme, TypeTOTP, label, q.Encode())
}

// Decode parses raw. Absent algorithm, digits and period take their defaults;
// present but malformed values are an error.
func Decode(raw string) (*URI, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return nil, fmt.Errorf("%w: scheme must be %s, got %q", ErrInvalidURI, Scheme, u.Scheme)
	}
	typ := strings.ToLower(u.Host)
	if typ != TypeTOTP && typ != TypeHOTP {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidURI, u.Host)
	}
	label, err := url.PathUnescape(strings.TrimPrefix(u.EscapedPath(), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: label: %v", ErrInvalidURI, err)
	}

	q := u.Query()
	out := &URI{
		Type:      typ,
		Label:     label,
		Secret:    q.Get("secret"),
		Issuer:    q.Get("issuer"),
		Algorithm: "SHA1",
		Digits:    totp.DefaultDigits,
		Period:    totp.DefaultPeriod,
	}
	if out.Secret == "" {
		return nil, fmt.Errorf("%w: missing secret", ErrInvalidURI)
	}
	if q.Has("algorithm") {
		algo, err := totp.ParseAlgorithm(q.Get("algorithm"))
		if err != nil {
			return nil, fmt.Errorf("%w: algorithm %q", ErrInvalidURI, q.Get("algorithm"))
		}
		out.Algorithm = totp.AlgorithmName(algo)
	}
	if out.Digits, err = positiveInt(q, "digits", out.Digits); err != nil {
		return nil, err
	}
	if out.Period, err = positiveInt(q, "period", out.Period); err != nil {
		return nil, err
	}
	if q.Has("counter") {
		c, err := strconv.ParseUint(q.Get("counter"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: counter %q", ErrInvalidURI, q.Get("counter"))
		}
		out.Counter = c
	}
	return out, nil
}

func positiveInt(q url.Values, key string, def int) (int, error) {
	if !q.Has(key) {
		return def, nil
	}
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a positive integer", ErrInvalidURI, key, q.Get(key))
	}
	return n, nil
}

// Account returns the label with any "issuer:" prefix removed.
func (u *URI) Account() string {
	if i := strings.Index(u.Label, ":"); i >= 0 {
		return strings.TrimSpace(u.Label[i+1:])
	}
	return u.Label
}

// LabelIssuer returns the issuer prefix of the label, if any.
func (u *URI) LabelIssuer() string {
	if i := strings.Index(u.Label, ":"); i >= 0 {
		return u.Label[:i]
	}
	return ""
}

// IssuerName prefers the issuer parameter and falls back to the label prefix.
func (u *URI) IssuerName() string {
	if u.Issuer != "" {
		return u.Issuer
	}
	return u.LabelIssuer()
}

// Params converts the URI fields into engine parameters.
func (u *URI) Params() (totp.Params, error) {
	algo, err := totp.ParseAlgorithm(u.Algorithm)
	if err != nil {
		return totp.Params{}, err
	}
	p := totp.Params{
		Algorithm: algo,
		Digits:    totp.DigitsFromInt(u.Digits),
		Period:    uint(u.Period),
	}
	return p, p.Validate()
}

// String re-encodes u field by field, so a decoded URI encodes back to an
// equivalent one even when its parameters would not pass Params.
func (u *URI) String() string {
	typ := u.Type
	if typ == "" {
		typ = TypeTOTP
	}
	label := url.PathEscape(u.Label)
	if i := strings.Index(u.Label, ":"); i >= 0 {
		label = url.PathEscape(u.Label[:i]) + ":" + url.PathEscape(u.Label[i+1:])
	}
	q := url.Values{}
	q.Set("secret", u.Secret)
	if u.Issuer != "" {
		q.Set("issuer", u.Issuer)
	}
	if u.Algorithm != "" {
		q.Set("algorithm", u.Algorithm)
	}
	if u.Digits != 0 {
		q.Set("digits", strconv.Itoa(u.Digits))
	}
	if u.Period != 0 {
		q.Set("period", strconv.Itoa(u.Period))
	}
	if typ == TypeHOTP {
		q.Set("counter", strconv.FormatUint(u.Counter, 10))
	}
	return fmt.Sprintf("%s://%s/%s?%s", Scheme, typ, label, q.Encode())
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soulteary/cli-kit/env"
	logger "github.com/soulteary/logger-kit"

	"github.com/soulteary/totp-seed/internal/secret"
	"github.com/soulteary/totp-seed/internal/seed"
	"github.com/soulteary/totp-seed/internal/totp"
)

// ErrNoSeed is returned by ResolveSeed when neither an argument nor TOTP_SEED is set.
var ErrNoSeed = errors.New("no seed given and TOTP_SEED is not set")

var log *logger.Logger

var (
	Port     = env.Get("PORT", ":8085")
	LogLevel = env.Get("LOG_LEVEL", "info")

	// Redis (replay markers and rate counters for serve)
	RedisAddr     = env.Get("REDIS_ADDR", "localhost:6379")
	RedisPassword = env.Get("REDIS_PASSWORD", "")
	RedisDB       = env.GetInt("REDIS_DB", 0)

	// Seed source for commands run without an explicit seed; may be sealed.
	Seed    = env.Get("TOTP_SEED", "")
	SeedKey = env.Get("TOTP_SEED_KEY", "")

	// TOTP
	TOTPIssuer    = env.Get("TOTP_ISSUER", "Microsoft")
	TOTPPeriod    = env.GetInt("TOTP_PERIOD", totp.DefaultPeriod)
	TOTPDigits    = env.GetInt("TOTP_DIGITS", totp.DefaultDigits)
	TOTPAlgorithm = env.Get("TOTP_ALGORITHM", "SHA1")
	TOTPSkew      = env.GetUint("TOTP_SKEW", totp.DefaultWindow)
	TOTPMaxSkew   = env.GetUint("TOTP_MAX_SKEW", 10)

	// Seed validation floor (characters after whitespace removal)
	SeedMinLength = env.GetInt("SEED_MIN_LENGTH", seed.DefaultMinLength)

	QRSize    = env.GetInt("QR_SIZE", 256)
	ReplayTTL = env.GetDuration("REPLAY_TTL", 5*time.Minute)

	// Service auth: API Key or HMAC
	APIKey       = env.Get("API_KEY", "")
	HMACSecret   = env.Get("HMAC_SECRET", "")
	HMACKeysJSON = env.Get("TOTP_SEED_HMAC_KEYS", "")
	ServiceName  = env.Get("SERVICE_NAME", "totp-seed")

	hmacKeysMap      map[string]string
	hmacDefaultKeyID string

	RateLimitPerIP = env.GetInt("RATE_LIMIT_PER_IP", 60) // per minute

	// When false, serve never echoes normalized seeds back in responses.
	ExposeSeedInResponses = ParseBoolEnv("EXPOSE_SEED_IN_RESPONSES", true)
)

// Initialize sets the logger, parses HMAC keys and warns about unusable TOTP settings.
func Initialize(l *logger.Logger) {
	log = l
	if HMACKeysJSON != "" {
		if err := parseHMACKeys(); err != nil {
			log.Warn().Err(err).Msg("Failed to parse TOTP_SEED_HMAC_KEYS")
		} else {
			for keyID := range hmacKeysMap {
				hmacDefaultKeyID = keyID
				break
			}
		}
	}
	if _, err := TOTPParams(); err != nil {
		log.Warn().Err(err).Msg("TOTP_PERIOD / TOTP_DIGITS / TOTP_ALGORITHM are invalid; code generation will fail")
	}
	if err := CheckWindow(uint(TOTPSkew)); err != nil {
		log.Warn().Err(err).Msg("TOTP_SKEW is above TOTP_MAX_SKEW; verification will fail")
	}
}

func parseHMACKeys() error {
	return json.Unmarshal([]byte(HMACKeysJSON), &hmacKeysMap)
}

// ParseBoolEnv reads an env var as bool: "true"/"1"/"yes" (case-insensitive) = true, "false"/"0"/etc = false, empty = defaultVal.
func ParseBoolEnv(key string, defaultVal bool) bool {
	v := strings.ToLower(strings.TrimSpace(env.Get(key, "")))
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1" || v == "yes"
}

// GetHMACSecret returns the HMAC secret for the given key ID.
func GetHMACSecret(keyID string) string {
	if len(hmacKeysMap) > 0 {
		if keyID == "" {
			keyID = hmacDefaultKeyID
		}
		if s, ok := hmacKeysMap[keyID]; ok {
			return s
		}
		return ""
	}
	return HMACSecret
}

// HasHMACKeys returns true if multiple HMAC keys are configured.
func HasHMACKeys() bool {
	return len(hmacKeysMap) > 0
}

// AllowNoAuth returns true when no API key or HMAC is set (dev only).
func AllowNoAuth() bool {
	return APIKey == "" && HMACSecret == "" && !HasHMACKeys()
}

// TOTPParams builds engine parameters from TOTP_PERIOD, TOTP_DIGITS and TOTP_ALGORITHM.
func TOTPParams() (totp.Params, error) {
	algo, err := totp.ParseAlgorithm(TOTPAlgorithm)
	if err != nil {
		return totp.Params{}, err
	}
	if TOTPPeriod <= 0 {
		return totp.Params{}, totp.ErrInvalidParams
	}
	p := totp.Params{
		Algorithm: algo,
		Digits:    totp.DigitsFromInt(TOTPDigits),
		Period:    uint(TOTPPeriod),
	}
	return p, p.Validate()
}

// CheckWindow rejects drift windows above TOTP_MAX_SKEW (and the engine's own limit).
func CheckWindow(window uint) error {
	limit := uint(TOTPMaxSkew)
	if limit > totp.MaxWindow {
		limit = totp.MaxWindow
	}
	if window > limit {
		return fmt.Errorf("%w: window %d exceeds TOTP_MAX_SKEW (%d)", totp.ErrInvalidParams, window, limit)
	}
	return nil
}

// Validator returns a seed validator using SEED_MIN_LENGTH and the configured parameters.
func Validator() (*seed.Validator, error) {
	p, err := TOTPParams()
	if err != nil {
		return nil, err
	}
	v := seed.New()
	v.MinLength = SeedMinLength
	v.Params = p
	return v, nil
}

// ResolveSeed returns arg, or TOTP_SEED when arg is empty, opening sealed values with TOTP_SEED_KEY.
func ResolveSeed(arg string) (string, error) {
	value := arg
	if strings.TrimSpace(value) == "" {
		value = Seed
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrNoSeed
	}
	if !secret.IsSealed(value) {
		return value, nil
	}
	key, err := secret.KeyBytes(SeedKey)
	if err != nil {
		return "", err
	}
	return secret.Open(key, value)
}

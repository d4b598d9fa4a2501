package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creachadair/command"
	"github.com/pterm/pterm"

	"github.com/soulteary/totp-seed/internal/base32"
	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/otpauth"
	"github.com/soulteary/totp-seed/internal/qrcode"
	"github.com/soulteary/totp-seed/internal/secret"
	"github.com/soulteary/totp-seed/internal/seed"
	"github.com/soulteary/totp-seed/internal/totp"
)

const (
	defaultCount    = 5
	defaultInterval = 5 * time.Second
	dataURLPreview  = 64
)

// reject prints a validation failure and returns errReported.
func (s *Settings) reject(r seed.Result) error {
	pterm.Error.WithWriter(s.errOut()).Printfln("%s (%s)", r.Message(), r.FullReason())
	return errReported
}

// decodeSeed validates raw with the configured validator and returns the
// decoded secret together with the validation result.
func (s *Settings) decodeSeed(raw string) ([]byte, seed.Result, error) {
	v, err := config.Validator()
	if err != nil {
		return nil, seed.Result{}, err
	}
	v.Now = s.now
	key, r := v.Decode(raw)
	if !r.OK {
		return nil, r, s.reject(r)
	}
	return key, r, nil
}

func (s *Settings) runValidate(args []string) error {
	raw, _, err := splitSeed(args, 0, func(string) bool { return true })
	if err != nil {
		return err
	}
	_, r, err := s.decodeSeed(raw)
	if err != nil {
		return err
	}
	w := s.out()
	pterm.Success.WithWriter(w).Println(r.Message())
	pterm.Fprintln(w, "Seed:        "+r.Normalized)
	pterm.Fprintln(w, "Sample code: "+r.SampleCode)
	return nil
}

func (s *Settings) runGenerate(ctx context.Context, args []string) error {
	raw, rest, err := splitSeed(args, 2, notInteger)
	if err != nil {
		return err
	}
	count, interval := defaultCount, defaultInterval
	if len(rest) > 0 {
		if count, err = parseNonNegative("count", rest[0]); err != nil {
			return err
		}
		if count == 0 {
			return errors.New("count must be at least 1")
		}
	}
	if len(rest) > 1 {
		secs, err := parseNonNegative("interval", rest[1])
		if err != nil {
			return err
		}
		interval = time.Duration(secs) * time.Second
	}

	p, err := config.TOTPParams()
	if err != nil {
		return err
	}
	key, _, err := s.decodeSeed(raw)
	if err != nil {
		return err
	}
	w := s.out()
	for i := 0; i < count; i++ {
		at := s.now()
		code, err := totp.Generate(key, at, p)
		if err != nil {
			return err
		}
		pterm.Fprintln(w, fmt.Sprintf("%s  %s", pterm.Bold.Sprint(code),
			pterm.Gray(fmt.Sprintf("(%ds remaining)", totp.Remaining(at, p.Period)))))
		if i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

func (s *Settings) runParse(args []string) error {
	if len(args) != 1 {
		return command.ErrUsage
	}
	u, err := otpauth.Decode(args[0])
	if err != nil {
		return err
	}
	rows := pterm.TableData{
		{"Field", "Value"},
		{"Type", u.Type},
		{"Label", u.Label},
		{"Account", u.Account()},
		{"Secret", u.Secret},
		{"Issuer", u.IssuerName()},
		{"Algorithm", u.Algorithm},
		{"Digits", strconv.Itoa(u.Digits)},
		{"Period", strconv.Itoa(u.Period)},
	}
	if u.Type == otpauth.TypeHOTP {
		rows = append(rows, []string{"Counter", strconv.FormatUint(u.Counter, 10)})
	} else if code, err := currentCode(u, s.now()); err == nil {
		rows = append(rows, []string{"Current code", code})
	}
	return pterm.DefaultTable.WithWriter(s.out()).WithHasHeader().WithData(rows).Render()
}

// currentCode derives the code a totp URI yields at.
func currentCode(u *otpauth.URI, at time.Time) (string, error) {
	p, err := u.Params()
	if err != nil {
		return "", err
	}
	key, err := base32.Decode(u.Secret)
	if err != nil {
		return "", err
	}
	return totp.Generate(key, at, p)
}

// accountArgs resolves "[seed] <account> [issuer]".
func (s *Settings) accountArgs(args []string) (raw, account, issuer string, err error) {
	raw, rest, err := splitSeed(args, 2, looksLikeSeed)
	if err != nil {
		return "", "", "", err
	}
	if len(rest) == 0 {
		return "", "", "", command.ErrUsage
	}
	account, issuer = rest[0], config.TOTPIssuer
	if len(rest) > 1 {
		issuer = rest[1]
	}
	return raw, account, issuer, nil
}

func (s *Settings) runQRCode(args []string) error {
	raw, account, issuer, err := s.accountArgs(args)
	if err != nil {
		return err
	}
	p, err := config.TOTPParams()
	if err != nil {
		return err
	}
	_, r, err := s.decodeSeed(raw)
	if err != nil {
		return err
	}
	uri := otpauth.Encode(r.Normalized, account, issuer, p)

	art, err := qrcode.Terminal(uri)
	if err != nil {
		return err
	}
	dataURL, err := qrcode.GenerateDataURL(uri, s.qrSize)
	if err != nil {
		return err
	}
	w := s.out()
	pterm.Fprintln(w, "URI: "+uri)
	pterm.Fprintln(w, art)
	if len(dataURL) > dataURLPreview {
		dataURL = dataURL[:dataURLPreview] + "..."
	}
	pterm.Fprintln(w, "Data URL: "+dataURL)

	if s.qrOut != "" {
		png, err := qrcode.Generate(uri, s.qrSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.qrOut, png, 0o600); err != nil {
			return err
		}
		pterm.Success.WithWriter(w).Println("QR code written to " + s.qrOut)
	}
	return nil
}

func (s *Settings) runVerify(args []string) error {
	raw, rest, err := splitSeed(args, 2, looksLikeSeed)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return command.ErrUsage
	}
	code := rest[0]
	window := uint(config.TOTPSkew)
	if len(rest) > 1 {
		n, err := parseNonNegative("window", rest[1])
		if err != nil {
			return err
		}
		window = uint(n)
	}
	if err := config.CheckWindow(window); err != nil {
		return err
	}
	p, err := config.TOTPParams()
	if err != nil {
		return err
	}
	key, _, err := s.decodeSeed(raw)
	if err != nil {
		return err
	}
	at := s.now()
	step, ok, err := totp.MatchStep(code, key, at, p, window)
	if err != nil {
		return err
	}
	if !ok {
		pterm.Error.WithWriter(s.errOut()).Printfln("code does not match (window %d)", window)
		return errReported
	}
	pterm.Success.WithWriter(s.out()).Printfln("code matches (step offset %+d)", step-totp.TimeStep(at, p.Period))
	return nil
}

func (s *Settings) runNew(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return command.ErrUsage
	}
	account, issuer := args[0], config.TOTPIssuer
	if len(args) > 1 {
		issuer = args[1]
	}
	p, err := config.TOTPParams()
	if err != nil {
		return err
	}
	fresh, err := totp.NewSecret(issuer, account, p)
	if err != nil {
		return err
	}
	w := s.out()
	pterm.Fprintln(w, "Seed: "+fresh)
	pterm.Fprintln(w, "URI:  "+otpauth.Encode(fresh, account, issuer, p))
	return nil
}

func (s *Settings) runSeal(args []string) error {
	raw, _, err := splitSeed(args, 0, func(string) bool { return true })
	if err != nil {
		return err
	}
	key, err := secret.KeyBytes(config.SeedKey)
	if err != nil {
		return fmt.Errorf("TOTP_SEED_KEY: %w", err)
	}
	_, r, err := s.decodeSeed(raw)
	if err != nil {
		return err
	}
	sealed, err := secret.Seal(key, r.Normalized)
	if err != nil {
		return err
	}
	pterm.Fprintln(s.out(), sealed)
	return nil
}

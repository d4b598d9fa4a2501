// Package cli implements the totp-seed command tree. Commands resolve their
// inputs, call the core packages and render the structured results.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creachadair/command"
	"github.com/pterm/pterm"

	"github.com/soulteary/totp-seed/internal/base32"
	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/secret"
)

// errReported is returned after a command has already printed why it failed.
var errReported = errors.New("failure reported")

// Settings carries the collaborators shared by every command.
type Settings struct {
	Name string
	Out  io.Writer
	Err  io.Writer
	Now  func() time.Time

	// Serve runs the HTTP service until ctx is done.
	Serve func(ctx context.Context) error

	qrOut  string
	qrSize int
}

func (s *Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Settings) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

func (s *Settings) errOut() io.Writer {
	if s.Err != nil {
		return s.Err
	}
	return os.Stderr
}

// Root builds the command tree.
func Root(ctx context.Context, s *Settings) *command.C {
	return &command.C{
		Name:  s.Name,
		Usage: "<command> [arguments]",
		Help: `Validate, generate and transcode TOTP seeds.

Wherever [seed] is optional the value of TOTP_SEED is used instead.
Sealed seeds (sealed:...) are opened with TOTP_SEED_KEY.`,

		Commands: []*command.C{
			{
				Name:  "validate",
				Usage: "[seed]",
				Help:  "Check that a seed is usable and print a sample code.",
				Run: func(env *command.Env, args []string) error {
					return s.runValidate(args)
				},
			},
			{
				Name:  "generate",
				Usage: "[seed] [count] [interval]",
				Help: `Print count codes (default 5), one every interval seconds (default 5).

Each line shows the code and the seconds left in its time step.`,
				Run: func(env *command.Env, args []string) error {
					return s.runGenerate(ctx, args)
				},
			},
			{
				Name:  "parse",
				Usage: "<otpauth-uri>",
				Help:  "Decode an otpauth:// URI and print its fields.",
				Run: func(env *command.Env, args []string) error {
					return s.runParse(args)
				},
			},
			{
				Name:  "qrcode",
				Usage: "[-out file.png] [-size px] [seed] <account> [issuer]",
				Help: `Build the otpauth:// URI for a seed and render it as a QR code.

The issuer defaults to TOTP_ISSUER.`,
				SetFlags: func(env *command.Env, fs *flag.FlagSet) {
					fs.StringVar(&s.qrOut, "out", "", "Also write the QR code as a PNG to this file")
					fs.IntVar(&s.qrSize, "size", config.QRSize, "PNG edge in pixels")
				},
				Run: func(env *command.Env, args []string) error {
					return s.runQRCode(args)
				},
			},
			{
				Name:  "verify",
				Usage: "[seed] <code> [window]",
				Help:  "Check a code against the current time, allowing window steps of drift (default TOTP_SKEW).",
				Run: func(env *command.Env, args []string) error {
					return s.runVerify(args)
				},
			},
			{
				Name:  "new",
				Usage: "<account> [issuer]",
				Help:  "Create a random seed and print it with its otpauth:// URI.",
				Run: func(env *command.Env, args []string) error {
					return s.runNew(args)
				},
			},
			{
				Name:  "seal",
				Usage: "[seed]",
				Help:  "Encrypt a seed with TOTP_SEED_KEY so it can be stored in TOTP_SEED.",
				Run: func(env *command.Env, args []string) error {
					return s.runSeal(args)
				},
			},
			{
				Name: "serve",
				Help: "Run the HTTP service.",
				Run: func(env *command.Env, args []string) error {
					if len(args) != 0 {
						return command.ErrUsage
					}
					if s.Serve == nil {
						return errors.New("serve is not available")
					}
					return s.Serve(ctx)
				},
			},
			command.HelpCommand(nil),
		},
	}
}

// Main runs the command named by args and returns the process exit code.
func Main(ctx context.Context, s *Settings, args []string) int {
	env := Root(ctx, s).NewEnv(nil)
	err := command.Execute(env, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errReported):
	case errors.Is(err, command.ErrUsage):
		pterm.Error.WithWriter(s.errOut()).Println("invalid usage; see: " + s.Name + " help")
	default:
		pterm.Error.WithWriter(s.errOut()).Println(err.Error())
	}
	return 1
}

// splitSeed separates an optional leading seed from the remaining arguments.
// A seed is taken from args when there are more than maxRest arguments, or
// when the first argument satisfies isSeed. Otherwise TOTP_SEED is used.
func splitSeed(args []string, maxRest int, isSeed func(string) bool) (string, []string, error) {
	arg := ""
	if len(args) > maxRest || (len(args) > 0 && isSeed(args[0])) {
		arg, args = args[0], args[1:]
	}
	if len(args) > maxRest {
		return "", nil, command.ErrUsage
	}
	seed, err := config.ResolveSeed(arg)
	if err != nil {
		return "", nil, err
	}
	return seed, args, nil
}

// looksLikeSeed reports whether s is a sealed value or clean base32 at least
// SEED_MIN_LENGTH characters long.
func looksLikeSeed(s string) bool {
	if secret.IsSealed(s) {
		return true
	}
	clean := base32.StripSpace(s)
	return len(clean) >= config.SeedMinLength && base32.Valid(clean)
}

// notInteger is the seed test for commands whose trailing arguments are numbers.
func notInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err != nil
}

func parseNonNegative(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return n, nil
}

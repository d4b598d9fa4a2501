package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/soulteary/logger-kit"
	version "github.com/soulteary/version-kit"

	"github.com/soulteary/totp-seed/internal/cli"
	"github.com/soulteary/totp-seed/internal/config"
	"github.com/soulteary/totp-seed/internal/router"
)

func showBanner() {
	pterm.DefaultBox.Println(
		putils.CenterText(
			"TOTP Seed\n" +
				"Seed validation, code generation and otpauth:// transcoding\n" +
				"Version: " + version.Version,
		),
	)
	time.Sleep(time.Millisecond)
}

func main() {
	level := logger.ParseLevelFromEnv("LOG_LEVEL", logger.InfoLevel)
	log := logger.New(logger.Config{
		Level:          level,
		ServiceName:    "totp-seed",
		ServiceVersion: version.Version,
	})
	config.Initialize(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	s := &cli.Settings{
		Name:  filepath.Base(os.Args[0]),
		Serve: func(ctx context.Context) error { return serve(ctx, log) },
	}
	code := cli.Main(ctx, s, os.Args[1:])
	stop()
	os.Exit(code)
}

// serve runs the HTTP service until ctx is cancelled.
func serve(ctx context.Context, log *logger.Logger) error {
	showBanner()

	port := config.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	if config.AllowNoAuth() {
		log.Warn().Msg("API_KEY / HMAC_SECRET not set; /v1 is open to any caller")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: false})
	if _, err := router.Setup(app, log); err != nil {
		log.Warn().Err(err).Msg("router setup failed")
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(port)
	}()

	select {
	case err := <-errc:
		log.Warn().Err(err).Msg("listen failed")
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// Exit codes.
const (
	exitOK     = 0
	exitEngine = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := loadConfig(args, os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "mcastchat: %v\n", err)
		return exitConfig
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcastchat: %v\n", err)
		return exitConfig
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := NewSession(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		fmt.Fprintf(os.Stderr, "mcastchat: %v\n", err)
		return exitConfig
	}

	switch cfg.UI {
	case uiLine:
		err = session.RunLine(ctx, os.Stdin, os.Stdout)
	default:
		var notifier *Notifier
		if cfg.NotifySound != "" {
			if notifier, err = NewNotifier(cfg.NotifySound); err != nil {
				logger.Warn().Err(err).Msg("notification sound disabled")
			}
		}
		err = session.RunTUI(ctx, notifier)
	}

	if err != nil {
		logger.Error().Err(err).Msg("network engine failed")
		fmt.Fprintf(os.Stderr, "mcastchat: %v\n", err)
		return exitEngine
	}
	return exitOK
}

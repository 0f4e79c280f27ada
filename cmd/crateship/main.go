package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/cli"
	"github.com/crateship/crateship/internal/logging"
)

func main() {
	logger, err := logging.NewLogger(os.Getenv("CRATESHIP_ENV"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Interrupting the tool also stops the build: cancelling the
	// context kills the engine child process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, logger); err != nil {
		logger.Error("crateship failed", zap.Error(err))
		os.Exit(build.ExitCode(err))
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/airrdigital/taskmatrix/adapter/cli"
	"github.com/airrdigital/taskmatrix/internal/app"
	"github.com/airrdigital/taskmatrix/pkg/config"
	"github.com/airrdigital/taskmatrix/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	cli.SetLogger(logger)
	cli.SetContainer(container)
	cli.Execute(ctx)
}

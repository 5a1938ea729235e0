package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"taskSync/internal/app"
	"taskSync/internal/config"
	"taskSync/internal/logger"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "путь к config.yml")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Server stopped", err)
		os.Exit(1)
	}
}

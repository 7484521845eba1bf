package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/velopay/walletd/internal/config"
	"github.com/velopay/walletd/internal/container"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load("configs", "config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	c := container.New(cfg)
	if err := c.Initialize(context.Background()); err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	if err := c.Run(); err != nil {
		c.Logger().Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

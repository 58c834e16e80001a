package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spotctl/internal/auth"
	"github.com/desertthunder/spotctl/internal/services"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}
	shared.ApplyEnv(config)

	storePath, err := config.StorePath()
	if err != nil {
		logger.Fatalf("failed to resolve credential store path: %v", err)
	}

	store := auth.NewStore(storePath)
	session := auth.NewSessionManager(config, store, logger)
	gateway := services.NewSpotifyClient(session, "", nil, logger)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Session: session,
		Gateway: gateway,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "spotctl",
		Usage:    "Control Spotify playback from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not logged in, run 'spotctl auth login'")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}

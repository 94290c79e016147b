package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/config"
	"github.com/Sternrassler/catalog-viewer/internal/loader"
	"github.com/Sternrassler/catalog-viewer/pkg/client"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/rs/zerolog"
)

// deps is the wired application shared by all commands.
type deps struct {
	cfg    *config.Config
	client *client.Client
	app    *app.App
	logger zerolog.Logger
}

// buildDeps loads the configuration and wires client, loader and app.
// Nothing is fetched yet.
func buildDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(globalConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if globalLogLevel != "" {
		cfg.Log.Level = globalLogLevel
	}

	logger := logging.Setup(cfg.LoggingConfig())

	redisClient := cfg.Redis()
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Response cache enabled")
	}

	c, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	l := loader.New(c, cfg.FanoutConfig())

	return &deps{
		cfg:    cfg,
		client: c,
		app:    app.New(l, cfg.AppConfig()),
		logger: logger,
	}, nil
}

// Close stops pending work and releases connections.
func (d *deps) Close() {
	d.app.Close()
	if err := d.client.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("Closing api client failed")
	}
}

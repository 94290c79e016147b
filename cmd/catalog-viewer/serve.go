package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/server"
	"github.com/spf13/cobra"
)

// sweepInterval is how often idle sessions are expired.
const sweepInterval = time.Minute

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog viewer over HTTP",
		Long: "Loads the catalog in the background and serves the HTML viewer, " +
			"the JSON API and the operational endpoints.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if port > 0 {
		d.cfg.Server.Port = port
	}

	// The viewer shows the loading state until the first load completes.
	go func() {
		if err := d.app.Load(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Initial catalog load failed")
		}
	}()
	go d.app.RunSweeper(ctx, sweepInterval)

	srv := &http.Server{
		Addr: d.cfg.Addr(),
		Handler: server.New(d.app, server.Options{
			CORSOrigins:   d.cfg.Server.CORSOrigins,
			SecureCookies: d.cfg.Server.SecureCookies,
			Ping:          d.client.Ping,
			AdminToken:    d.cfg.Server.AdminToken,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info().
			Str("addr", srv.Addr).
			Str("api", d.client.BaseURL()).
			Str("version", version).
			Msg("Catalog viewer listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	d.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

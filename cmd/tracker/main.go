package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"faceit-tracker/internal/config"
	"faceit-tracker/internal/constants"
	fxmodules "faceit-tracker/internal/fx"
	"faceit-tracker/internal/logger"
	"faceit-tracker/internal/server"
	"faceit-tracker/internal/tracker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runTracker),
	).Run()
}

func runTracker(
	lc fx.Lifecycle,
	loop *tracker.Loop,
	admin *server.AdminServer,
	cfg *config.Config,
	db *sql.DB,
	log zerolog.Logger,
) {
	log = logger.SetLevel(log, cfg.LogLevel)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AdminPort),
		Handler: admin.Handler(),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	g, loopCtx := errgroup.WithContext(loopCtx)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			g.Go(func() error {
				return loop.Run(loopCtx)
			})
			g.Go(func() error {
				log.Info().Str("addr", srv.Addr).Msg("admin server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("admin server shutdown failed")
			}

			if err := g.Wait(); err != nil {
				log.Error().Err(err).Msg("background task failed")
			}

			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
			}

			log.Info().Msg("stopped gracefully")
			return nil
		},
	})
}

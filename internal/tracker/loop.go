package tracker

import (
	"context"
	"time"

	"faceit-tracker/internal/config"

	"github.com/rs/zerolog"
)

// Loop ticks the engine at the configured poll interval until ctx is done.
// It is the single thread of control for the roster pass.
type Loop struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
}

func NewLoop(engine *Engine, cfg *config.Config, logger zerolog.Logger) *Loop {
	return &Loop{engine: engine, interval: cfg.PollInterval, logger: logger}
}

func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().Dur("interval", l.interval).Msg("tracker loop starting")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.engine.Tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("tracker loop stopping")
			l.engine.Close()
			return nil
		case now := <-ticker.C:
			l.engine.Tick(ctx, now)
		}
	}
}

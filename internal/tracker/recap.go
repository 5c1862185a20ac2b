package tracker

import (
	"context"
	"fmt"
	"time"

	"faceit-tracker/internal/config"
	"faceit-tracker/internal/notify"

	"github.com/rs/zerolog"
)

// RecapScheduler fires the weekly recap exactly once per calendar window.
// A window is identified by the date of its trigger instant (the configured
// weekday and hour in the configured timezone); the identifier of the last
// fired window is persisted, so restarts and tick jitter inside the firing
// hour cannot produce a second recap.
type RecapScheduler struct {
	store  Store
	sink   notify.Sink
	logger zerolog.Logger

	weekday  time.Weekday
	hour     int
	location *time.Location
}

func NewRecapScheduler(store Store, sink notify.Sink, cfg *config.Config, logger zerolog.Logger) (*RecapScheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load recap timezone: %w", err)
	}
	return &RecapScheduler{
		store:    store,
		sink:     sink,
		logger:   logger,
		weekday:  cfg.RecapWeekday,
		hour:     cfg.RecapHour,
		location: loc,
	}, nil
}

// MaybeFire runs once per tick, after the roster pass. It emits the recap
// and resets the aggregates iff the current window has not been consumed
// yet. An empty week still advances the cursor.
func (r *RecapScheduler) MaybeFire(ctx context.Context, now time.Time) error {
	window := r.currentWindow(now)

	last, err := r.store.LastWindow(ctx)
	if err != nil {
		return fmt.Errorf("load recap cursor: %w", err)
	}
	if window == last {
		return nil
	}

	stats, err := r.store.Weekly(ctx)
	if err != nil {
		return fmt.Errorf("load weekly stats: %w", err)
	}

	msg := recapMessage(stats)
	if len(msg.Fields) > 0 {
		if _, err := r.sink.Send(ctx, msg); err != nil {
			// Cursor not advanced: the recap is retried on the next tick.
			return fmt.Errorf("send recap: %w", err)
		}
		r.logger.Info().Str("window", window).Int("players", len(msg.Fields)).Msg("weekly recap sent")
	} else {
		r.logger.Info().Str("window", window).Msg("empty week, consuming window without recap")
	}

	if err := r.store.ResetWeekly(ctx); err != nil {
		return fmt.Errorf("reset weekly stats: %w", err)
	}
	if err := r.store.SetLastWindow(ctx, window); err != nil {
		return fmt.Errorf("advance recap cursor: %w", err)
	}
	return nil
}

// currentWindow returns the identifier of the most recent trigger instant at
// or before now: the date (in the recap timezone) of the configured weekday
// once its hour has been reached.
func (r *RecapScheduler) currentWindow(now time.Time) string {
	local := now.In(r.location)

	daysBack := (int(local.Weekday()) - int(r.weekday) + 7) % 7
	trigger := time.Date(local.Year(), local.Month(), local.Day(), r.hour, 0, 0, 0, r.location)
	trigger = trigger.AddDate(0, 0, -daysBack)
	if trigger.After(local) {
		trigger = trigger.AddDate(0, 0, -7)
	}
	return trigger.Format("2006-01-02")
}

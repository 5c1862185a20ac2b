package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"faceit-tracker/internal/api"
	"faceit-tracker/internal/config"
	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/notify"
	"faceit-tracker/internal/resolve"

	"github.com/rs/zerolog"
)

// StatsProvider is the retry-wrapped provider surface the engine consumes.
// Errors are either api.ErrNotFound (terminal) or fetch.ErrUnavailable
// (skip and retry next tick).
type StatsProvider interface {
	ResolvePlayer(ctx context.Context, handle string) (string, error)
	Elo(ctx context.Context, playerID string) (int, error)
	RecentMatches(ctx context.Context, playerID string, limit int) ([]domain.MatchRef, error)
	MatchDetail(ctx context.Context, matchID string) (*api.MatchDetail, error)
	MatchStats(ctx context.Context, matchID string) (*api.MatchStats, error)
}

// Store is the durable record surface the engine mutates.
type Store interface {
	Roster(ctx context.Context) ([]domain.Player, error)
	GetPlayer(ctx context.Context, handle string) (*domain.Player, error)
	UpsertPlayer(ctx context.Context, p *domain.Player) error
	Weekly(ctx context.Context) ([]domain.WeeklyStats, error)
	AddResult(ctx context.Context, handle string, won bool, eloDelta int) error
	ResetWeekly(ctx context.Context) error
	LastWindow(ctx context.Context) (string, error)
	SetLastWindow(ctx context.Context, window string) error
	AddEloHistory(ctx context.Context, record *domain.EloHistory) error
}

// Engine drives the per-player match-detection state machine. One Tick walks
// the roster sequentially, detects newly finished matches, emits exactly one
// notification per match and accumulates the weekly aggregate, then lets the
// recap scheduler run.
//
// All store mutations go through mu; the deferred stats recheck is the only
// concurrent writer and takes the same lock.
type Engine struct {
	provider StatsProvider
	store    Store
	sink     notify.Sink
	recap    *RecapScheduler
	logger   zerolog.Logger

	recheckDelay time.Duration
	startTime    time.Time

	mu   sync.Mutex
	jobs map[jobKey]*recheckJob
	done chan struct{}
}

func NewEngine(provider StatsProvider, store Store, sink notify.Sink, recap *RecapScheduler, cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		provider:     provider,
		store:        store,
		sink:         sink,
		recap:        recap,
		logger:       logger,
		recheckDelay: cfg.RecheckDelay,
		startTime:    time.Now().UTC(),
		jobs:         make(map[jobKey]*recheckJob),
		done:         make(chan struct{}),
	}
}

// Tick runs one full roster pass followed by the recap check. A failure in
// one player's processing never aborts the pass.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	roster, err := e.store.Roster(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to load roster, skipping tick")
		return
	}

	for i := range roster {
		e.safeProcess(ctx, &roster[i])
	}

	if err := e.recap.MaybeFire(ctx, now); err != nil {
		e.logger.Error().Err(err).Msg("recap check failed")
	}
}

func (e *Engine) safeProcess(ctx context.Context, p *domain.Player) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("handle", p.Handle).Interface("panic", r).Msg("player processing panicked")
		}
	}()

	if err := e.processPlayer(ctx, p); err != nil {
		e.logger.Warn().Err(err).Str("handle", p.Handle).Msg("player processing failed, will retry next tick")
	}
}

func (e *Engine) processPlayer(ctx context.Context, p *domain.Player) error {
	playerID := p.PlayerID
	if playerID == "" {
		var err error
		playerID, err = e.provider.ResolvePlayer(ctx, p.Handle)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				e.logger.Debug().Str("handle", p.Handle).Msg("handle not resolvable, skipping")
				return nil
			}
			return fmt.Errorf("resolve: %w", err)
		}
	}

	matches, err := e.provider.RecentMatches(ctx, playerID, 1)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("recent matches: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}
	latest := matches[0]

	// Baseline: first contact, or history predating the tracker's start.
	// Record where the player is without replaying old matches.
	if !p.Seen || latest.FinishedAt.Before(e.startTime) {
		if p.LastMatch == latest.MatchID && p.PlayerID == playerID {
			return nil
		}
		elo, err := e.provider.Elo(ctx, playerID)
		if err != nil {
			return fmt.Errorf("baseline elo: %w", err)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		p.PlayerID = playerID
		p.LastMatch = latest.MatchID
		p.LastElo = elo
		p.Seen = true
		p.Streak = 0
		if err := e.store.UpsertPlayer(ctx, p); err != nil {
			return fmt.Errorf("persist baseline: %w", err)
		}
		e.logger.Info().Str("handle", p.Handle).Str("match_id", latest.MatchID).Int("elo", elo).Msg("baseline recorded")
		return nil
	}

	// Idempotence: the latest match was already notified on.
	if p.LastMatch == latest.MatchID {
		return nil
	}

	currentElo, err := e.provider.Elo(ctx, playerID)
	if err != nil {
		return fmt.Errorf("elo: %w", err)
	}
	eloDelta := currentElo - p.LastElo

	detail, err := e.provider.MatchDetail(ctx, latest.MatchID)
	if err != nil {
		// The match stays undetected and is re-processed next tick; a
		// notification is delayed, never dropped.
		return fmt.Errorf("match detail: %w", err)
	}

	outcome := resolve.Outcome(detail, p.Handle)
	streak := nextStreak(p.Streak, outcome.Won)

	var box *domain.BoxScore
	stats, err := e.provider.MatchStats(ctx, latest.MatchID)
	if err == nil {
		box = resolve.BoxScore(stats, p.Handle)
	}

	msg := matchMessage(p.Handle, outcome, box, p.LastElo, currentElo, eloDelta, streak)
	msgHandle, err := e.sink.Send(ctx, msg)
	if err != nil {
		// Skip without state change so the match is re-detected next tick.
		return fmt.Errorf("send notification: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p.PlayerID = playerID
	p.LastMatch = latest.MatchID
	prevElo := p.LastElo
	p.LastElo = currentElo
	p.Streak = streak
	if box == nil {
		p.PendingMatch = latest.MatchID
	} else {
		p.PendingMatch = ""
	}

	if err := e.store.UpsertPlayer(ctx, p); err != nil {
		return fmt.Errorf("persist player: %w", err)
	}
	if err := e.store.AddResult(ctx, p.Handle, outcome.Won, eloDelta); err != nil {
		e.logger.Error().Err(err).Str("handle", p.Handle).Msg("failed to record weekly result")
	}
	if err := e.store.AddEloHistory(ctx, &domain.EloHistory{
		Handle:    p.Handle,
		MatchID:   latest.MatchID,
		EloBefore: prevElo,
		EloAfter:  currentElo,
		EloDelta:  eloDelta,
		Won:       outcome.Won,
		MapName:   outcome.MapName,
		Score:     outcome.Score,
		PlayedAt:  latest.FinishedAt,
	}); err != nil {
		e.logger.Error().Err(err).Str("handle", p.Handle).Msg("failed to record elo history")
	}

	if box == nil {
		e.scheduleRecheck(p.Handle, latest.MatchID, msgHandle, msg)
	}

	e.logger.Info().
		Str("handle", p.Handle).
		Str("match_id", latest.MatchID).
		Bool("won", outcome.Won).
		Int("elo_delta", eloDelta).
		Int("streak", streak).
		Bool("stats_pending", box == nil).
		Msg("match processed")

	return nil
}

// nextStreak extends the run when the result agrees with the current sign
// and resets to ±1 when it flips.
func nextStreak(streak int, won bool) int {
	if won {
		if streak <= 0 {
			return 1
		}
		return streak + 1
	}
	if streak >= 0 {
		return -1
	}
	return streak - 1
}

// Close stops pending recheck jobs. Unfired jobs are dropped; their
// notifications keep the placeholder line.
func (e *Engine) Close() {
	close(e.done)
}

package fetch

import (
	"context"
	"errors"
	"time"

	"faceit-tracker/internal/api"
	"faceit-tracker/internal/config"
	"faceit-tracker/internal/constants"
	"faceit-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// ErrUnavailable marks a provider call that kept failing transiently until
// the retry budget ran out. Callers skip and try again next tick.
var ErrUnavailable = errors.New("provider unavailable")

// Fetcher wraps the provider client with bounded retry and fixed backoff.
// A successful-but-empty result (no matches yet) is terminal, not a failure,
// and is never retried. NotFound is terminal as well.
type Fetcher struct {
	client *api.FaceitClient
	cfg    *config.Config
	logger zerolog.Logger
}

func NewFetcher(client *api.FaceitClient, cfg *config.Config, logger zerolog.Logger) *Fetcher {
	return &Fetcher{client: client, cfg: cfg, logger: logger}
}

func (f *Fetcher) ResolvePlayer(ctx context.Context, handle string) (string, error) {
	return withRetry(ctx, f, "resolve_player", func(ctx context.Context) (string, error) {
		return f.client.ResolvePlayer(ctx, handle)
	})
}

func (f *Fetcher) Elo(ctx context.Context, playerID string) (int, error) {
	return withRetry(ctx, f, "elo", func(ctx context.Context) (int, error) {
		return f.client.Elo(ctx, playerID)
	})
}

func (f *Fetcher) RecentMatches(ctx context.Context, playerID string, limit int) ([]domain.MatchRef, error) {
	items, err := withRetry(ctx, f, "recent_matches", func(ctx context.Context) ([]api.HistoryItem, error) {
		return f.client.RecentMatches(ctx, playerID, limit)
	})
	if err != nil {
		return nil, err
	}
	refs := make([]domain.MatchRef, 0, len(items))
	for _, it := range items {
		refs = append(refs, domain.MatchRef{
			MatchID:    it.MatchID,
			FinishedAt: unixTime(it.FinishedAt),
		})
	}
	return refs, nil
}

func (f *Fetcher) MatchDetail(ctx context.Context, matchID string) (*api.MatchDetail, error) {
	return withRetry(ctx, f, "match_detail", func(ctx context.Context) (*api.MatchDetail, error) {
		return f.client.MatchDetail(ctx, matchID)
	})
}

func (f *Fetcher) MatchStats(ctx context.Context, matchID string) (*api.MatchStats, error) {
	return withRetry(ctx, f, "match_stats", func(ctx context.Context) (*api.MatchStats, error) {
		return f.client.MatchStats(ctx, matchID)
	})
}

func withRetry[T any](ctx context.Context, f *Fetcher, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T

	attempts := f.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(f.cfg.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		defer cancel()

		v, err := fn(attemptCtx)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return err
			}
			f.logger.Debug().Err(err).Str("op", op).Msg("transient provider failure, will retry")
			return retry.RetryableError(err)
		}
		result = v
		return nil
	})
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return result, err
		}
		f.logger.Warn().Err(err).Str("op", op).Msg("provider call exhausted retries")
		return result, ErrUnavailable
	}
	return result, nil
}

func unixTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

package tracker

import (
	"context"
	"errors"
	"time"

	"faceit-tracker/internal/constants"
	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/notify"
	"faceit-tracker/internal/resolve"
)

// recheckJob is a one-shot deferred attempt to fill in a match's box score
// after the provider publishes it late. Exactly one attempt per job; if
// the stats are still missing the notification keeps its placeholder.
type recheckJob struct {
	handle    string
	matchID   string
	msgHandle string
	msg       notify.Message
}

// jobKey is per player, not per match: teammates can finish the same match
// and each owns their own notification and pending marker.
type jobKey struct {
	handle  string
	matchID string
}

func (e *Engine) scheduleRecheck(handle, matchID, msgHandle string, msg notify.Message) {
	job := &recheckJob{handle: handle, matchID: matchID, msgHandle: msgHandle, msg: msg}

	key := jobKey{handle: handle, matchID: matchID}
	if _, exists := e.jobs[key]; exists {
		return
	}
	e.jobs[key] = job

	timer := time.NewTimer(e.recheckDelay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			e.runRecheck(job)
		case <-e.done:
		}

		e.mu.Lock()
		delete(e.jobs, key)
		e.mu.Unlock()
	}()

	e.logger.Debug().
		Str("handle", handle).
		Str("match_id", matchID).
		Dur("delay", e.recheckDelay).
		Msg("stats recheck scheduled")
}

func (e *Engine) runRecheck(job *recheckJob) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	var box *domain.BoxScore
	stats, err := e.provider.MatchStats(ctx, job.matchID)
	if err == nil {
		box = resolve.BoxScore(stats, job.handle)
	}

	if box != nil {
		edited := job.msg
		edited.Fields = make([]notify.Field, len(job.msg.Fields))
		copy(edited.Fields, job.msg.Fields)
		for i := range edited.Fields {
			if edited.Fields[i].Name == statsFieldName {
				edited.Fields[i].Value = statsLine(box)
			}
		}

		if err := e.sink.Edit(ctx, job.msgHandle, edited); err != nil {
			if !errors.Is(err, notify.ErrMessageGone) {
				e.logger.Warn().Err(err).Str("match_id", job.matchID).Msg("failed to edit notification stats")
			}
		} else {
			e.logger.Info().Str("handle", job.handle).Str("match_id", job.matchID).Msg("notification stats filled in")
		}
	} else {
		e.logger.Debug().Str("match_id", job.matchID).Msg("stats still unavailable, abandoning recheck")
	}

	// Pending is cleared whether the stats arrived or the single attempt is
	// abandoned.
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetPlayer(ctx, job.handle)
	if err != nil {
		return
	}
	if p.PendingMatch != job.matchID {
		return
	}
	p.PendingMatch = ""
	if err := e.store.UpsertPlayer(ctx, p); err != nil {
		e.logger.Error().Err(err).Str("handle", job.handle).Msg("failed to clear pending stats marker")
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	"faceit-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func (s *Store) AddEloHistory(ctx context.Context, record *domain.EloHistory) error {
	id := record.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elo_history (id, handle, match_id, elo_before, elo_after, elo_delta, won, map_name, score, played_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(handle, match_id) DO NOTHING`,
		id, record.Handle, record.MatchID, record.EloBefore, record.EloAfter, record.EloDelta,
		record.Won, record.MapName, record.Score, record.PlayedAt, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert elo history: %w", err)
	}
	return nil
}

func (s *Store) EloHistoryFor(ctx context.Context, handle string, limit int) ([]domain.EloHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, handle, match_id, elo_before, elo_after, elo_delta, won, map_name, score, played_at, created_at
		FROM elo_history
		WHERE handle = ?
		ORDER BY played_at DESC
		LIMIT ?`, handle, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load elo history for %s: %w", handle, err)
	}
	defer rows.Close()

	var records []domain.EloHistory
	for rows.Next() {
		var r domain.EloHistory
		if err := rows.Scan(&r.ID, &r.Handle, &r.MatchID, &r.EloBefore, &r.EloAfter, &r.EloDelta,
			&r.Won, &r.MapName, &r.Score, &r.PlayedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

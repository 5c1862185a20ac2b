package store

import (
	"context"
	"fmt"

	"faceit-tracker/internal/domain"
)

func (s *Store) Weekly(ctx context.Context) ([]domain.WeeklyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, games, wins, losses, elo_delta
		FROM weekly_stats
		ORDER BY handle ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.WeeklyStats
	for rows.Next() {
		var w domain.WeeklyStats
		if err := rows.Scan(&w.Handle, &w.Games, &w.Wins, &w.Losses, &w.EloDelta); err != nil {
			return nil, fmt.Errorf("failed to scan weekly stats: %w", err)
		}
		stats = append(stats, w)
	}
	return stats, rows.Err()
}

// AddResult folds one match result into the player's weekly row, creating it
// on first use. games stays equal to wins + losses.
func (s *Store) AddResult(ctx context.Context, handle string, won bool, eloDelta int) error {
	win, loss := 0, 1
	if won {
		win, loss = 1, 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_stats (handle, games, wins, losses, elo_delta)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			games = games + 1,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			elo_delta = elo_delta + excluded.elo_delta`,
		handle, win, loss, eloDelta)
	if err != nil {
		return fmt.Errorf("failed to record weekly result for %s: %w", handle, err)
	}
	return nil
}

func (s *Store) ResetWeekly(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM weekly_stats`); err != nil {
		return fmt.Errorf("failed to reset weekly stats: %w", err)
	}
	return nil
}

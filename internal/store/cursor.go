package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LastWindow returns the identifier of the last recap window fired, or ""
// when no recap has ever been sent.
func (s *Store) LastWindow(ctx context.Context) (string, error) {
	var window string
	err := s.db.QueryRowContext(ctx, `SELECT last_window FROM recap_cursor WHERE id = 1`).Scan(&window)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load recap cursor: %w", err)
	}
	return window, nil
}

func (s *Store) SetLastWindow(ctx context.Context, window string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recap_cursor (id, last_window) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_window = excluded.last_window`,
		window)
	if err != nil {
		return fmt.Errorf("failed to advance recap cursor: %w", err)
	}
	return nil
}

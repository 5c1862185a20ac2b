package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"faceit-tracker/internal/domain"
)

var ErrPlayerNotFound = errors.New("player not found")

func (s *Store) Roster(ctx context.Context) ([]domain.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, player_id, last_match, last_elo, seen, streak, pending_match, created_at, updated_at
		FROM players
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.Handle, &p.PlayerID, &p.LastMatch, &p.LastElo, &p.Seen, &p.Streak, &p.PendingMatch, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Store) GetPlayer(ctx context.Context, handle string) (*domain.Player, error) {
	var p domain.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT handle, player_id, last_match, last_elo, seen, streak, pending_match, created_at, updated_at
		FROM players
		WHERE handle = ?`, handle).
		Scan(&p.Handle, &p.PlayerID, &p.LastMatch, &p.LastElo, &p.Seen, &p.Streak, &p.PendingMatch, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", handle, err)
	}
	return &p, nil
}

func (s *Store) UpsertPlayer(ctx context.Context, p *domain.Player) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (handle, player_id, last_match, last_elo, seen, streak, pending_match, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			player_id = excluded.player_id,
			last_match = excluded.last_match,
			last_elo = excluded.last_elo,
			seen = excluded.seen,
			streak = excluded.streak,
			pending_match = excluded.pending_match,
			updated_at = excluded.updated_at`,
		p.Handle, p.PlayerID, p.LastMatch, p.LastElo, p.Seen, p.Streak, p.PendingMatch, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", p.Handle, err)
	}
	return nil
}

func (s *Store) DeletePlayer(ctx context.Context, handle string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete player %s: %w", handle, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

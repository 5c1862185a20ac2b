package domain

import (
	"time"
)

// Player is one tracked roster entry. Handle is the provider-facing nickname
// and the case-insensitive store key.
//
// LastMatch and LastElo are set together on first observation (baseline) and
// updated together on every processed match; Seen reports whether that first
// observation has happened. LastMatch never moves backwards to an older match.
type Player struct {
	Handle       string    `json:"handle"`
	PlayerID     string    `json:"player_id"` // resolved lazily, cached across ticks
	LastMatch    string    `json:"last_match"`
	LastElo      int       `json:"last_elo"`
	Seen         bool      `json:"seen"`
	Streak       int       `json:"streak"` // sign = win/loss run, magnitude = run length
	PendingMatch string    `json:"pending_match"` // match whose box score was unavailable at send time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WeeklyStats accumulates per player between recaps. Games = Wins + Losses
// at all times.
type WeeklyStats struct {
	Handle   string `json:"handle"`
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	EloDelta int    `json:"elo_delta"`
}

// EloHistory is one processed match's rating transition.
type EloHistory struct {
	ID        string    `json:"id"` // nanoid
	Handle    string    `json:"handle"`
	MatchID   string    `json:"match_id"`
	EloBefore int       `json:"elo_before"`
	EloAfter  int       `json:"elo_after"`
	EloDelta  int       `json:"elo_delta"`
	Won       bool      `json:"won"`
	MapName   string    `json:"map_name"`
	Score     string    `json:"score"`
	PlayedAt  time.Time `json:"played_at"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchRef identifies one completed match in a player's history.
type MatchRef struct {
	MatchID    string
	FinishedAt time.Time
}

// Outcome is what the resolver derives from raw match detail for a single
// tracked player.
type Outcome struct {
	Won     bool
	MapName string
	Score   string
}

// BoxScore is a player's kill/death line for one match. The provider may
// publish it with a delay after match completion.
type BoxScore struct {
	Kills  int
	Deaths int
}

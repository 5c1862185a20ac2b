package store

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// Store is the durable keyed record layer behind the tracker: roster players,
// weekly aggregates, the recap cursor and elo history, all in SQLite. Handles
// are case-insensitive keys (COLLATE NOCASE in the schema).
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

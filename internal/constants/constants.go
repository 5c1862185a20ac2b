package constants

import "time"

const (
	DefaultPollInterval  = 2 * time.Minute
	DefaultRecheckDelay  = 2 * time.Minute
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	EloHistoryLimit = 50
)

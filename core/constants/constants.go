package constants

import "time"

// Database pool settings
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Echo context keys
const (
	ContextTokenData = "token_data"
)

// Magic token settings
const (
	MagicTokenAudience    = "gameplan-availability"
	MagicTokenIssuer      = "gameplan-api"
	MagicTokenDefaultTTL  = 24 * time.Hour
	MagicTokenGracePeriod = 5 * time.Minute
	MagicTokenClockSkew   = 30 * time.Second
	MagicTokenCacheTTL    = 2 * time.Minute
)

// Scheduler settings
const (
	SchedulerQueue   = "scheduler"
	AnalyticsQueue   = "analytics"
	MinReminderDelay = 5 * time.Minute
	ReminderCooldown = 6 * time.Hour
)

// Aggregation / hold settings
const (
	DefaultMinParticipants = 2
	PreferredSlotWeight    = 0.5
	TentativeHoldLimit     = 3
)

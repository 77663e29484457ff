package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for lookups of records which don't exist, where
// the zero value is not an appropriate default.
var ErrNotFound = errors.New("store: record not found")

// ActivityKey identifies one user's state within one guild. It is the
// composite key for all per-user-per-guild records.
type ActivityKey struct {
	UserID  string
	GuildID string
}

func (k ActivityKey) String() string {
	return k.UserID + "/" + k.GuildID
}

// Store is the persistence boundary for all durable moderation state.
// Increment operations are atomic at the storage layer: concurrent
// callers for the same key never lose an update.
type Store interface {
	// guild settings
	GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error)
	SetGuildSettings(ctx context.Context, settings GuildSettings) error
	GetPrefix(ctx context.Context, guildID string) (string, error)
	SetPrefix(ctx context.Context, guildID, prefix string) error

	// spam warnings
	GetWarnings(ctx context.Context, key ActivityKey) (int, error)
	IncrementWarnings(ctx context.Context, key ActivityKey) (int, error)
	ClearWarnings(ctx context.Context, key ActivityKey) error

	// leveling
	GetUserXP(ctx context.Context, key ActivityKey) (xp, level int64, err error)
	AddXP(ctx context.Context, key ActivityKey, amount int64) (int64, error)
	SetLevel(ctx context.Context, key ActivityKey, level int64) error
	Leaderboard(ctx context.Context, guildID string, limit int) ([]UserXP, error)

	// auto-clean configuration (created and edited by admin commands;
	// read-only from the cleaner's perspective)
	ListAutoCleanConfigs(ctx context.Context) ([]AutoCleanConfig, error)
	GetAutoCleanConfig(ctx context.Context, guildID, channelID string) (*AutoCleanConfig, error)
	SetAutoCleanConfig(ctx context.Context, cfg AutoCleanConfig) error
	RemoveAutoCleanConfig(ctx context.Context, guildID, channelID string) error

	// moderation audit log
	LogModAction(ctx context.Context, action ModAction) error
	ModActionStats(ctx context.Context, guildID string) ([]ModActionStat, error)
}

// GuildSettings is per-guild configuration. A missing row means defaults:
// spam filtering off, leveling on.
type GuildSettings struct {
	GuildID           string
	Prefix            string
	SpamFilterEnabled bool
	LevelingEnabled   bool
}

type UserXP struct {
	UserID  string
	GuildID string
	XP      int64
	Level   int64
}

type SpamWarning struct {
	UserID      string
	GuildID     string
	Warnings    int
	LastWarning time.Time
}

// AutoCleanConfig configures scheduled cleanup for one channel.
type AutoCleanConfig struct {
	GuildID         string
	ChannelID       string
	IntervalMinutes int
	MessageCount    int
	Enabled         bool
}

type ModAction struct {
	GuildID     string
	ModeratorID string
	TargetID    string
	ActionType  string
	Reason      string
	CreatedAt   time.Time
}

type ModActionStat struct {
	ModeratorID string
	ActionType  string
	Count       int64
}

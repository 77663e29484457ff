package store

import (
	"time"
)

// gorm models. Field names match the schema of the original sqlite
// database so existing deployments can be migrated in place.

type guildSettingsModel struct {
	GuildID           string `gorm:"primarykey;column:guild_id"`
	Prefix            string `gorm:"default:'.'"`
	SpamFilterEnabled bool
	LevelingEnabled   bool `gorm:"default:true"`
}

func (guildSettingsModel) TableName() string { return "guild_settings" }

type userXPModel struct {
	UserID  string `gorm:"primarykey;column:user_id"`
	GuildID string `gorm:"primarykey;column:guild_id;index:idx_user_xp_guild"`
	XP      int64  `gorm:"column:xp;default:0"`
	Level   int64  `gorm:"default:0"`
}

func (userXPModel) TableName() string { return "user_xp" }

type spamWarningModel struct {
	UserID      string `gorm:"primarykey;column:user_id"`
	GuildID     string `gorm:"primarykey;column:guild_id"`
	Warnings    int    `gorm:"default:0"`
	LastWarning time.Time
}

func (spamWarningModel) TableName() string { return "spam_warnings" }

type autoCleanConfigModel struct {
	GuildID         string `gorm:"primarykey;column:guild_id"`
	ChannelID       string `gorm:"primarykey;column:channel_id"`
	IntervalMinutes int    `gorm:"default:60"`
	MessageCount    int    `gorm:"default:100"`
	Enabled         bool   `gorm:"default:true"`
}

func (autoCleanConfigModel) TableName() string { return "auto_clean_config" }

type modActionModel struct {
	ID          uint   `gorm:"primarykey"`
	GuildID     string `gorm:"column:guild_id;index:idx_mod_actions_guild"`
	ModeratorID string `gorm:"column:moderator_id;index:idx_mod_actions_moderator"`
	TargetID    string `gorm:"column:target_id"`
	ActionType  string
	Reason      string
	CreatedAt   time.Time
}

func (modActionModel) TableName() string { return "mod_actions" }

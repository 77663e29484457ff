package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// both implementations must satisfy the same contract
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	gs, err := NewGormStore(db)
	require.NoError(t, err)
	return map[string]Store{
		"mem":  NewMemStore(),
		"gorm": gs,
	}
}

func TestGuildSettings(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			_, err := st.GetGuildSettings(ctx, "guild-1")
			assert.ErrorIs(err, ErrNotFound)

			require.NoError(st.SetGuildSettings(ctx, GuildSettings{
				GuildID:           "guild-1",
				Prefix:            "!",
				SpamFilterEnabled: true,
				LevelingEnabled:   true,
			}))
			settings, err := st.GetGuildSettings(ctx, "guild-1")
			require.NoError(err)
			assert.Equal("!", settings.Prefix)
			assert.True(settings.SpamFilterEnabled)

			// updates overwrite
			settings.SpamFilterEnabled = false
			require.NoError(st.SetGuildSettings(ctx, *settings))
			settings, err = st.GetGuildSettings(ctx, "guild-1")
			require.NoError(err)
			assert.False(settings.SpamFilterEnabled)

			require.NoError(st.SetPrefix(ctx, "guild-1", "?"))
			prefix, err := st.GetPrefix(ctx, "guild-1")
			require.NoError(err)
			assert.Equal("?", prefix)
		})
	}
}

func TestWarningCounts(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()
			key := ActivityKey{UserID: "user-1", GuildID: "guild-1"}

			count, err := st.GetWarnings(ctx, key)
			require.NoError(err)
			assert.Equal(0, count)

			for i := 1; i <= 3; i++ {
				count, err = st.IncrementWarnings(ctx, key)
				require.NoError(err)
				assert.Equal(i, count)
			}

			// another user in the same guild is independent
			other := ActivityKey{UserID: "user-2", GuildID: "guild-1"}
			count, err = st.IncrementWarnings(ctx, other)
			require.NoError(err)
			assert.Equal(1, count)

			require.NoError(st.ClearWarnings(ctx, key))
			count, err = st.GetWarnings(ctx, key)
			require.NoError(err)
			assert.Equal(0, count)

			// clearing an absent row is a no-op
			require.NoError(st.ClearWarnings(ctx, ActivityKey{UserID: "ghost", GuildID: "guild-1"}))
		})
	}
}

func TestXPAndLeaderboard(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				key := ActivityKey{UserID: fmt.Sprintf("user-%d", i), GuildID: "guild-1"}
				for j := 0; j <= i; j++ {
					_, err := st.AddXP(ctx, key, 20)
					require.NoError(err)
				}
			}

			xp, level, err := st.GetUserXP(ctx, ActivityKey{UserID: "user-4", GuildID: "guild-1"})
			require.NoError(err)
			assert.Equal(int64(100), xp)
			assert.Equal(int64(0), level)

			require.NoError(st.SetLevel(ctx, ActivityKey{UserID: "user-4", GuildID: "guild-1"}, 1))
			_, level, err = st.GetUserXP(ctx, ActivityKey{UserID: "user-4", GuildID: "guild-1"})
			require.NoError(err)
			assert.Equal(int64(1), level)

			top, err := st.Leaderboard(ctx, "guild-1", 3)
			require.NoError(err)
			require.Len(top, 3)
			assert.Equal("user-4", top[0].UserID)
			assert.Equal("user-3", top[1].UserID)
			assert.Equal("user-2", top[2].UserID)
		})
	}
}

func TestAutoCleanConfigs(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			cfgs, err := st.ListAutoCleanConfigs(ctx)
			require.NoError(err)
			assert.Empty(cfgs)

			require.NoError(st.SetAutoCleanConfig(ctx, AutoCleanConfig{
				GuildID:         "guild-1",
				ChannelID:       "chan-1",
				IntervalMinutes: 10,
				MessageCount:    50,
				Enabled:         true,
			}))
			require.NoError(st.SetAutoCleanConfig(ctx, AutoCleanConfig{
				GuildID:         "guild-1",
				ChannelID:       "chan-2",
				IntervalMinutes: 5,
				MessageCount:    20,
				Enabled:         true,
			}))

			// invalid values rejected
			err = st.SetAutoCleanConfig(ctx, AutoCleanConfig{
				GuildID: "guild-1", ChannelID: "chan-3", IntervalMinutes: 0, MessageCount: 50, Enabled: true,
			})
			assert.Error(err)

			cfgs, err = st.ListAutoCleanConfigs(ctx)
			require.NoError(err)
			assert.Len(cfgs, 2)

			cfg, err := st.GetAutoCleanConfig(ctx, "guild-1", "chan-1")
			require.NoError(err)
			assert.Equal(50, cfg.MessageCount)

			// upsert on the same pair replaces
			require.NoError(st.SetAutoCleanConfig(ctx, AutoCleanConfig{
				GuildID:         "guild-1",
				ChannelID:       "chan-1",
				IntervalMinutes: 10,
				MessageCount:    75,
				Enabled:         true,
			}))
			cfg, err = st.GetAutoCleanConfig(ctx, "guild-1", "chan-1")
			require.NoError(err)
			assert.Equal(75, cfg.MessageCount)

			require.NoError(st.RemoveAutoCleanConfig(ctx, "guild-1", "chan-2"))
			_, err = st.GetAutoCleanConfig(ctx, "guild-1", "chan-2")
			assert.ErrorIs(err, ErrNotFound)
		})
	}
}

func TestModActionStats(t *testing.T) {
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				require.NoError(st.LogModAction(ctx, ModAction{
					GuildID: "guild-1", ModeratorID: "auto", TargetID: fmt.Sprintf("user-%d", i), ActionType: "timeout", Reason: "Spam",
				}))
			}
			require.NoError(st.LogModAction(ctx, ModAction{
				GuildID: "guild-1", ModeratorID: "mod-1", TargetID: "chan-1", ActionType: "auto-clean-enable",
			}))
			// other guild excluded
			require.NoError(st.LogModAction(ctx, ModAction{
				GuildID: "guild-2", ModeratorID: "auto", TargetID: "user-9", ActionType: "timeout",
			}))

			stats, err := st.ModActionStats(ctx, "guild-1")
			require.NoError(err)

			byKey := make(map[string]int64)
			for _, s := range stats {
				byKey[s.ModeratorID+"/"+s.ActionType] = s.Count
			}
			assert.Equal(int64(3), byKey["auto/timeout"])
			assert.Equal(int64(1), byKey["mod-1/auto-clean-enable"])
		})
	}
}

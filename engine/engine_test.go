package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-bot/warden/store"
)

func enableSpamFilter(t *testing.T, eng *Engine, guildID string) {
	t.Helper()
	err := eng.UpdateGuildSettings(context.Background(), store.GuildSettings{
		GuildID:           guildID,
		Prefix:            ".",
		SpamFilterEnabled: true,
		LevelingEnabled:   true,
	})
	require.NoError(t, err)
}

func msgAt(guild, user string, i int, content string, ts time.Time) MessageEvent {
	return MessageEvent{
		ID:        fmt.Sprintf("msg-%d", i),
		GuildID:   guild,
		ChannelID: "chan-1",
		AuthorID:  user,
		Content:   content,
		Timestamp: ts,
	}
}

// A burst of five identical messages inside two seconds: the duplicate
// rule fires from the third message on, the warning count climbs to the
// threshold, and the author is timed out with the ledger reset to zero.
func TestSpamBurstEscalation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-1")

	base := time.Now()
	for i := 0; i < 5; i++ {
		evt := msgAt("guild-1", "user-1", i, "buy followers now", base.Add(time.Duration(i)*400*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	// messages 3, 4, 5 flagged (duplicate threshold, then rate as well)
	assert.Len(actions.Deleted, 3)
	assert.Len(actions.Timeouts, 1)
	assert.Equal([2]string{"guild-1", "user-1"}, actions.Timeouts[0])

	// ledger reset after the timeout
	count, err := eng.Warnings.Count(ctx, store.ActivityKey{UserID: "user-1", GuildID: "guild-1"})
	require.NoError(err)
	assert.Equal(0, count)

	// timeout notice sent to the channel
	var sawTimeoutNotice bool
	for _, sent := range actions.Sent {
		if strings.Contains(sent[1], "timed out") {
			sawTimeoutNotice = true
		}
	}
	assert.True(sawTimeoutNotice)
}

func TestSpamFilterDisabledByDefault(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()

	base := time.Now()
	for i := 0; i < 6; i++ {
		evt := msgAt("guild-1", "user-1", i, "same thing", base.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	assert.Empty(actions.Deleted)
	assert.Empty(actions.Timeouts)

	// leveling defaults on, so XP accrued
	xp, _, err := eng.Store.GetUserXP(ctx, store.ActivityKey{UserID: "user-1", GuildID: "guild-1"})
	require.NoError(err)
	assert.Greater(xp, int64(0))
}

// Messages sent while the filter is off must not count toward the
// thresholds after it is turned on: the first identical message
// post-enable is occurrence one, not a continuation of the burst.
func TestFilterToggleMidBurstStartsFresh(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()

	base := time.Now()
	for i := 0; i < 2; i++ {
		evt := msgAt("guild-1", "user-1", i, "same message", base.Add(time.Duration(i)*300*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}
	// filter disabled: no window state accrued at all
	assert.Equal(0, eng.Filter.WindowLen("user-1", "guild-1", base.Add(time.Second)))

	enableSpamFilter(t, eng, "guild-1")

	evt := msgAt("guild-1", "user-1", 2, "same message", base.Add(600*time.Millisecond))
	require.NoError(eng.ProcessMessage(ctx, evt))

	// occurrence one post-enable, never flagged
	assert.Empty(actions.Deleted)
	count, err := eng.Warnings.Count(ctx, store.ActivityKey{UserID: "user-1", GuildID: "guild-1"})
	require.NoError(err)
	assert.Equal(0, count)

	// the burst has to rebuild from scratch: two more identical
	// messages reach the duplicate threshold
	for i := 3; i < 5; i++ {
		evt := msgAt("guild-1", "user-1", i, "same message", base.Add(time.Duration(i)*300*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}
	assert.Len(actions.Deleted, 1)
}

// A failed timeout leaves the ledger at the threshold, so the next
// flagged message retries enforcement instead of starting over.
func TestTimeoutFailureKeepsLedgerArmed(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-1")
	actions.TimeoutErr = fmt.Errorf("injected timeout failure")

	base := time.Now()
	for i := 0; i < 5; i++ {
		evt := msgAt("guild-1", "user-1", i, "buy followers now", base.Add(time.Duration(i)*300*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	// threshold reached but the timeout could not be applied
	key := store.ActivityKey{UserID: "user-1", GuildID: "guild-1"}
	count, err := eng.Warnings.Count(ctx, key)
	require.NoError(err)
	assert.Equal(3, count)
	assert.Empty(actions.Timeouts)

	// platform recovers: the next flagged message times the user out
	// and only then resets the ledger
	actions.Lk.Lock()
	actions.TimeoutErr = nil
	actions.Lk.Unlock()

	evt := msgAt("guild-1", "user-1", 5, "buy followers now", base.Add(1500*time.Millisecond))
	require.NoError(eng.ProcessMessage(ctx, evt))

	assert.Len(actions.Timeouts, 1)
	count, err = eng.Warnings.Count(ctx, key)
	require.NoError(err)
	assert.Equal(0, count)
}

func TestDistinctMessagesBelowRateNotFlagged(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-1")

	base := time.Now()
	for i := 0; i < 4; i++ {
		evt := msgAt("guild-1", "user-1", i, fmt.Sprintf("hello %d", i), base.Add(time.Duration(i)*2*time.Second))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	assert.Empty(actions.Deleted)
	assert.Empty(actions.Timeouts)
}

func TestBlockedWordFlagged(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-1")

	evt := msgAt("guild-1", "user-2", 0, "you are a SLUR", time.Now())
	require.NoError(eng.ProcessMessage(ctx, evt))

	require.Len(actions.Deleted, 1)
	count, err := eng.Warnings.Count(ctx, store.ActivityKey{UserID: "user-2", GuildID: "guild-1"})
	require.NoError(err)
	assert.Equal(1, count)
}

func TestXPGrantedAndLevelUpAnnounced(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	key := store.ActivityKey{UserID: "user-3", GuildID: "guild-2"}

	// seed just below level one so a single message crosses the boundary
	_, err := eng.Leveling.AddXP(ctx, key, 99)
	require.NoError(err)
	actionsBefore := len(actions.Sent)

	evt := msgAt("guild-2", "user-3", 0, "gm", time.Now())
	require.NoError(eng.ProcessMessage(ctx, evt))

	_, level, err := eng.Store.GetUserXP(ctx, key)
	require.NoError(err)
	assert.Equal(int64(1), level)

	require.Greater(len(actions.Sent), actionsBefore)
	assert.Contains(actions.Sent[len(actions.Sent)-1][1], "leveled up to level 1")
}

func TestLevelingDisabledGrantsNoXP(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	require.NoError(eng.UpdateGuildSettings(ctx, store.GuildSettings{
		GuildID: "guild-3",
		Prefix:  ".",
	}))

	evt := msgAt("guild-3", "user-4", 0, "hello", time.Now())
	require.NoError(eng.ProcessMessage(ctx, evt))

	xp, _, err := eng.Store.GetUserXP(ctx, store.ActivityKey{UserID: "user-4", GuildID: "guild-3"})
	require.NoError(err)
	assert.Equal(int64(0), xp)
}

func TestSettingsCachePurgedOnUpdate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()

	settings, err := eng.GuildSettings(ctx, "guild-4")
	require.NoError(err)
	assert.False(settings.SpamFilterEnabled)

	enableSpamFilter(t, eng, "guild-4")

	settings, err = eng.GuildSettings(ctx, "guild-4")
	require.NoError(err)
	assert.True(settings.SpamFilterEnabled)
}

func TestCountersPersisted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-5")

	base := time.Now()
	for i := 0; i < 3; i++ {
		evt := msgAt("guild-5", "user-5", i, "dup dup dup", base.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	total, err := eng.Counters.GetCount(ctx, "spam-flagged", "guild-5", "total")
	require.NoError(err)
	assert.Equal(1, total)

	distinct, err := eng.Counters.GetCountDistinct(ctx, "spammers", "guild-5", "total")
	require.NoError(err)
	assert.Equal(1, distinct)
}

func TestBotEventsIgnored(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, actions := EngineTestFixture()
	enableSpamFilter(t, eng, "guild-6")

	base := time.Now()
	for i := 0; i < 6; i++ {
		evt := msgAt("guild-6", "bot-1", i, "same", base.Add(time.Duration(i)*100*time.Millisecond))
		evt.Bot = true
		require.NoError(eng.ProcessMessage(ctx, evt))
	}

	assert.Empty(actions.Deleted)
	assert.Empty(actions.Sent)
}

func TestIsMasterUser(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()
	ctx := context.Background()

	assert.True(eng.IsMasterUser(ctx, "master-1"))
	assert.False(eng.IsMasterUser(ctx, "rando"))
}

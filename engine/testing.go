package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warden-bot/warden/cachestore"
	"github.com/warden-bot/warden/countstore"
	"github.com/warden-bot/warden/leveling"
	"github.com/warden-bot/warden/setstore"
	"github.com/warden-bot/warden/spamfilter"
	"github.com/warden-bot/warden/store"
	"github.com/warden-bot/warden/warnings"
)

// RecorderActions is a ModerationActions stub which records every call.
// Intentionally exported, for use in other packages' tests.
type RecorderActions struct {
	Lk       sync.Mutex
	Deleted  [][2]string // channelID, messageID
	Timeouts [][2]string // guildID, userID
	Sent     [][2]string // channelID, content

	// when set, TimeoutMember fails with this error and records nothing
	TimeoutErr error
}

func (a *RecorderActions) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	a.Lk.Lock()
	defer a.Lk.Unlock()
	a.Deleted = append(a.Deleted, [2]string{channelID, messageID})
	return nil
}

func (a *RecorderActions) TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error {
	a.Lk.Lock()
	defer a.Lk.Unlock()
	if a.TimeoutErr != nil {
		return a.TimeoutErr
	}
	a.Timeouts = append(a.Timeouts, [2]string{guildID, userID})
	return nil
}

func (a *RecorderActions) SendMessage(ctx context.Context, channelID, content string) error {
	a.Lk.Lock()
	defer a.Lk.Unlock()
	a.Sent = append(a.Sent, [2]string{channelID, content})
	return nil
}

func EngineTestFixture() (*Engine, *RecorderActions) {
	st := store.NewMemStore()
	sets := setstore.NewMemSetStore()
	sets.Add("blocked-words", "slur")
	sets.Add("master-users", "master-1")
	actions := &RecorderActions{}
	eng := &Engine{
		Logger:   slog.Default(),
		Store:    st,
		Filter:   spamfilter.NewFilter(),
		Warnings: warnings.NewLedger(st),
		Leveling: leveling.NewAccumulator(st),
		Counters: countstore.NewMemCountStore(),
		Cache:    cachestore.NewMemCacheStore(100, time.Hour),
		Sets:     sets,
		Rules:    DefaultRules(),
		Actions:  actions,
	}
	return eng, actions
}

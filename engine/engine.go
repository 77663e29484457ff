// Enforcement engine: dispatches inbound guild events through the
// moderation ruleset, then applies the resulting effects (message
// deletion, warnings, timeouts, XP) against the platform and the store.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/warden-bot/warden/cachestore"
	"github.com/warden-bot/warden/countstore"
	"github.com/warden-bot/warden/leveling"
	"github.com/warden-bot/warden/setstore"
	"github.com/warden-bot/warden/spamfilter"
	"github.com/warden-bot/warden/store"
	"github.com/warden-bot/warden/warnings"
)

// DefaultTimeoutDuration is how long a user is timed out after reaching
// the warning threshold.
const DefaultTimeoutDuration = 10 * time.Minute

// ModerationActions is the external moderation collaborator. The engine
// decides; the platform layer acts. Calls are best-effort per event and
// never retried by the engine.
type ModerationActions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	TimeoutMember(ctx context.Context, guildID, userID string, d time.Duration, reason string) error
	SendMessage(ctx context.Context, channelID, content string) error
}

// MessageEvent is the inbound event shape consumed by the engine.
// Bot-authored events are filtered upstream.
type MessageEvent struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	Content   string
	Timestamp time.Time
	Bot       bool
}

// runtime for executing rules, managing state, and applying moderation
// actions.
//
// NOTE: all fields except Notifier must be set; see the daemon wiring
// and the test fixture.
type Engine struct {
	Logger   *slog.Logger
	Store    store.Store
	Filter   *spamfilter.Filter
	Warnings *warnings.Ledger
	Leveling *leveling.Accumulator
	Counters countstore.CountStore
	Cache    cachestore.CacheStore
	Sets     setstore.SetStore
	Rules    RuleSet
	Actions  ModerationActions
	// optional; nil disables enforcement notifications
	Notifier Notifier

	// warning count at which a timeout is applied and the ledger reset
	MaxWarnings int
	// how long threshold breaches time a user out for
	TimeoutDuration time.Duration
}

// ProcessMessage runs one inbound message through classification and
// enforcement. Persistence and platform failures are logged and the
// event dropped; they never crash the handling task.
func (eng *Engine) ProcessMessage(ctx context.Context, evt MessageEvent) error {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("message processing exception", "err", r, "guild", evt.GuildID, "author", evt.AuthorID)
		}
	}()
	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues("message").Inc()

	if evt.Bot {
		// should have been filtered upstream
		eng.Logger.Debug("ignoring bot-authored event", "guild", evt.GuildID, "author", evt.AuthorID)
		return nil
	}

	settings, err := eng.GuildSettings(ctx, evt.GuildID)
	if err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return fmt.Errorf("loading guild settings: %w", err)
	}

	c := NewMessageContext(ctx, eng, evt, settings)
	if err := eng.Rules.CallMessageRules(&c); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return fmt.Errorf("executing rules: %w", err)
	}

	if c.effects.SpamFlagged {
		if err := eng.enforceSpam(&c); err != nil {
			eventErrorCount.WithLabelValues("message").Inc()
			return err
		}
	} else if settings.LevelingEnabled {
		if err := eng.awardXP(&c); err != nil {
			eventErrorCount.WithLabelValues("message").Inc()
			return err
		}
	}

	c.CanonicalLogLine()
	if err := eng.persistCounters(ctx, c.effects); err != nil {
		eventErrorCount.WithLabelValues("message").Inc()
		return fmt.Errorf("persisting counters: %w", err)
	}
	return nil
}

const settingsCacheName = "guild-settings"

// GuildSettings returns per-guild configuration, with defaults when no
// row exists (spam filtering off, leveling on). Lookups go through the
// cachestore; writers must call with UpdateGuildSettings or purge.
func (eng *Engine) GuildSettings(ctx context.Context, guildID string) (store.GuildSettings, error) {
	if cached, err := eng.Cache.Get(ctx, settingsCacheName, guildID); err == nil && cached != "" {
		var settings store.GuildSettings
		if err := json.Unmarshal([]byte(cached), &settings); err == nil {
			return settings, nil
		}
	}

	settings, err := eng.Store.GetGuildSettings(ctx, guildID)
	if errors.Is(err, store.ErrNotFound) {
		settings = &store.GuildSettings{
			GuildID:         guildID,
			Prefix:          ".",
			LevelingEnabled: true,
		}
	} else if err != nil {
		return store.GuildSettings{}, err
	}

	if raw, err := json.Marshal(settings); err == nil {
		if err := eng.Cache.Set(ctx, settingsCacheName, guildID, string(raw)); err != nil {
			eng.Logger.Warn("caching guild settings", "guild", guildID, "err", err)
		}
	}
	return *settings, nil
}

// UpdateGuildSettings persists new settings and purges the cache so
// subsequent events observe them.
func (eng *Engine) UpdateGuildSettings(ctx context.Context, settings store.GuildSettings) error {
	if err := eng.Store.SetGuildSettings(ctx, settings); err != nil {
		return err
	}
	return eng.Cache.Purge(ctx, settingsCacheName, settings.GuildID)
}

// IsMasterUser checks membership in the configured master-user set.
func (eng *Engine) IsMasterUser(ctx context.Context, userID string) bool {
	ok, err := eng.Sets.InSet(ctx, "master-users", userID)
	if err != nil {
		eng.Logger.Warn("master-user set lookup failed", "err", err)
		return false
	}
	return ok
}

func (eng *Engine) maxWarnings() int {
	if eng.MaxWarnings > 0 {
		return eng.MaxWarnings
	}
	return warnings.DefaultMaxWarnings
}

func (eng *Engine) timeoutDuration() time.Duration {
	if eng.TimeoutDuration > 0 {
		return eng.TimeoutDuration
	}
	return DefaultTimeoutDuration
}

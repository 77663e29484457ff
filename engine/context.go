package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/warden-bot/warden/spamfilter"
	"github.com/warden-bot/warden/store"
)

// MessageContext is the state passed to every rule invocation for a
// single inbound message. Rules read event data and record effects;
// the engine applies effects after all rules have run.
//
// Not safe for concurrent use; one instance per event.
type MessageContext struct {
	// actual golang type; rules should use helpers which accumulate Err instead
	Ctx context.Context

	Logger *slog.Logger

	// rolled-up error from helper calls; checked by the engine after rules run
	Err error

	Event    MessageEvent
	Settings store.GuildSettings

	engine  *Engine
	effects *Effects

	// memoized classifier verdict, so multiple rules share one window append
	verdict *spamfilter.Verdict
}

func NewMessageContext(ctx context.Context, eng *Engine, evt MessageEvent, settings store.GuildSettings) MessageContext {
	return MessageContext{
		Ctx:    ctx,
		Logger: eng.Logger.With("guild", evt.GuildID, "author", evt.AuthorID, "message", evt.ID),

		Event:    evt,
		Settings: settings,

		engine:  eng,
		effects: &Effects{},
	}
}

// Key identifies the (actor, scope) pair for persisted state.
func (c *MessageContext) Key() store.ActivityKey {
	return store.ActivityKey{UserID: c.Event.AuthorID, GuildID: c.Event.GuildID}
}

// Classify appends this message to the author's sliding window and
// returns the spam verdict. The verdict is computed at most once per
// event regardless of how many rules call this.
func (c *MessageContext) Classify() spamfilter.Verdict {
	if c.verdict == nil {
		ts := c.Event.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		v := c.engine.Filter.Classify(c.Event.AuthorID, c.Event.GuildID, c.Event.Content, ts)
		c.verdict = &v
	}
	return *c.verdict
}

// GetCount fetches a counter total, rolling any error into c.Err.
func (c *MessageContext) GetCount(name, val, period string) int {
	out, err := c.engine.Counters.GetCount(c.Ctx, name, val, period)
	if err != nil {
		c.Err = err
		return 0
	}
	return out
}

// InSet checks membership in a named config set, rolling any error
// into c.Err.
func (c *MessageContext) InSet(name, val string) bool {
	out, err := c.engine.Sets.InSet(c.Ctx, name, val)
	if err != nil {
		c.Err = err
		return false
	}
	return out
}

func (c *MessageContext) FlagSpam(reason string) {
	c.effects.FlagSpam(reason)
}

func (c *MessageContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *MessageContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *MessageContext) Notify(service string) {
	c.effects.Notify(service)
}

// Effects exposes accumulated effects, mostly for tests and logging.
func (c *MessageContext) Effects() Effects {
	return *c.effects
}

// CanonicalLogLine emits one summary line per processed event.
func (c *MessageContext) CanonicalLogLine() {
	c.Logger.Info("canonical-event-line",
		"spamFlagged", c.effects.SpamFlagged,
		"reasons", c.effects.SpamReasons,
		"warnings", c.effects.WarningCount,
		"timedOut", c.effects.TimedOut,
		"xpAwarded", c.effects.XPAwarded,
		"leveledUp", c.effects.LeveledUp,
	)
}

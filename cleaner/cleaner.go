// Scheduled channel cleanup: a periodic control loop which prunes old
// messages from configured channels, honoring a bounded per-channel
// snooze budget.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/warden-bot/warden/store"
)

const (
	// MaxDelays caps how many times cleanup of one channel can be
	// postponed before it must execute. The budget replenishes only
	// when a clean cycle actually completes.
	MaxDelays = 3
	// DefaultTickInterval is how often the control loop re-checks all
	// configured channels.
	DefaultTickInterval = 60 * time.Second
	// historyFetchLimit is how many recent messages are considered per
	// clean pass.
	historyFetchLimit = 100
)

// MessageRef identifies one message in a channel, with enough metadata
// to order by age.
type MessageRef struct {
	ID        string
	Timestamp time.Time
}

// ChannelHistory is the external collaborator which fetches and deletes
// channel messages. The cleaner never talks to the platform directly.
type ChannelHistory interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]MessageRef, error)
	DeleteMessages(ctx context.Context, channelID string, ids []string) error
}

type delayState struct {
	lk    sync.Mutex
	count int
	until time.Time
}

// Cleaner runs the per-(guild, channel) cleanup state machine. Delay
// state is in-memory only; the clean configuration itself is externally
// owned and read from the store each tick.
type Cleaner struct {
	store   store.Store
	history ChannelHistory
	logger  *slog.Logger

	tickInterval time.Duration
	delays       *xsync.Map[string, *delayState]
}

func NewCleaner(st store.Store, history ChannelHistory, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		store:        st,
		history:      history,
		logger:       logger.With("system", "cleaner"),
		tickInterval: DefaultTickInterval,
		delays:       xsync.NewMap[string, *delayState](),
	}
}

func pairKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

// Run drives the control loop until ctx is cancelled. An in-flight
// sweep is cancelled along with ctx; a cancelled clean leaves delay
// state unchanged.
func (c *Cleaner) Run(ctx context.Context) error {
	c.logger.Info("auto-cleaner starting", "tick", c.tickInterval)
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep(ctx)
		case <-ctx.Done():
			c.logger.Info("auto-cleaner shutting down")
			return nil
		}
	}
}

// Sweep processes every enabled config once. Failures are isolated per
// pair: one bad channel never blocks the rest of the tick.
func (c *Cleaner) Sweep(ctx context.Context) {
	configs, err := c.store.ListAutoCleanConfigs(ctx)
	if err != nil {
		c.logger.Error("listing auto-clean configs", "err", err)
		return
	}

	sweepCount.Inc()
	for _, cfg := range configs {
		if ctx.Err() != nil {
			return
		}
		if c.snoozed(cfg.GuildID, cfg.ChannelID) {
			continue
		}
		if err := c.cleanChannel(ctx, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			pairErrorCount.Inc()
			c.logger.Error("cleaning channel failed", "guild", cfg.GuildID, "channel", cfg.ChannelID, "err", err)
			continue
		}
		// budget replenishes only on a completed clean
		c.resetDelays(cfg.GuildID, cfg.ChannelID)
	}
}

// RequestDelay postpones cleanup of a pair by the given duration.
// Returns false, with no state change, once the budget of MaxDelays is
// exhausted.
func (c *Cleaner) RequestDelay(guildID, channelID string, minutes int) bool {
	ds, _ := c.delays.LoadOrCompute(pairKey(guildID, channelID), func() (*delayState, bool) {
		return &delayState{}, false
	})
	ds.lk.Lock()
	defer ds.lk.Unlock()
	if ds.count >= MaxDelays {
		return false
	}
	ds.count++
	ds.until = time.Now().Add(time.Duration(minutes) * time.Minute)
	delayGrantedCount.Inc()
	return true
}

// RemainingDelays reports how much of the snooze budget is left for a
// pair.
func (c *Cleaner) RemainingDelays(guildID, channelID string) int {
	ds, ok := c.delays.Load(pairKey(guildID, channelID))
	if !ok {
		return MaxDelays
	}
	ds.lk.Lock()
	defer ds.lk.Unlock()
	return MaxDelays - ds.count
}

// SnoozedUntil returns the current snooze deadline for a pair, or the
// zero time if none is set.
func (c *Cleaner) SnoozedUntil(guildID, channelID string) time.Time {
	ds, ok := c.delays.Load(pairKey(guildID, channelID))
	if !ok {
		return time.Time{}
	}
	ds.lk.Lock()
	defer ds.lk.Unlock()
	return ds.until
}

func (c *Cleaner) snoozed(guildID, channelID string) bool {
	ds, ok := c.delays.Load(pairKey(guildID, channelID))
	if !ok {
		return false
	}
	ds.lk.Lock()
	defer ds.lk.Unlock()
	// an expired snooze does not replenish the budget; only a completed
	// clean does
	return !ds.until.IsZero() && time.Now().Before(ds.until)
}

func (c *Cleaner) resetDelays(guildID, channelID string) {
	c.delays.Delete(pairKey(guildID, channelID))
}

// CleanNow prunes a channel immediately, outside the scheduled loop,
// keeping the newest keep messages. A completed manual clean counts as
// a clean cycle and replenishes the pair's delay budget.
func (c *Cleaner) CleanNow(ctx context.Context, guildID, channelID string, keep int) (int, error) {
	deleted, err := c.prune(ctx, guildID, channelID, keep)
	if err != nil {
		return 0, err
	}
	c.resetDelays(guildID, channelID)
	return deleted, nil
}

// cleanChannel deletes the oldest messages beyond the configured
// ceiling for one channel.
func (c *Cleaner) cleanChannel(ctx context.Context, cfg store.AutoCleanConfig) error {
	_, err := c.prune(ctx, cfg.GuildID, cfg.ChannelID, cfg.MessageCount)
	return err
}

func (c *Cleaner) prune(ctx context.Context, guildID, channelID string, keep int) (int, error) {
	msgs, err := c.history.RecentMessages(ctx, channelID, historyFetchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetching channel history: %w", err)
	}
	if len(msgs) <= keep {
		return 0, nil
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	doomed := msgs[:len(msgs)-keep]
	ids := make([]string, len(doomed))
	for i, m := range doomed {
		ids[i] = m.ID
	}

	if err := c.history.DeleteMessages(ctx, channelID, ids); err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}
	messagesDeletedCount.Add(float64(len(ids)))
	c.logger.Info("cleaned channel", "guild", guildID, "channel", channelID, "deleted", len(ids))
	return len(ids), nil
}

package engine

import (
	"context"
	"fmt"

	"github.com/warden-bot/warden/store"
)

// enforceSpam applies the spam outcome: delete the offending message,
// record a warning, and time the author out when the warning count
// reaches the threshold. Platform calls are best-effort; the warning
// ledger write is authoritative and its failure drops the event.
func (eng *Engine) enforceSpam(c *MessageContext) error {
	evt := c.Event
	key := c.Key()

	// best-effort; the message may already be gone
	if err := eng.Actions.DeleteMessage(c.Ctx, evt.ChannelID, evt.ID); err != nil {
		c.Logger.Warn("deleting flagged message", "err", err)
	}
	messagesDeleted.Inc()

	count, err := eng.Warnings.Record(c.Ctx, key)
	if err != nil {
		return fmt.Errorf("recording warning: %w", err)
	}
	c.effects.WarningCount = count
	warningsRecorded.Inc()

	if count >= eng.maxWarnings() {
		d := eng.timeoutDuration()
		if err := eng.Actions.TimeoutMember(c.Ctx, evt.GuildID, evt.AuthorID, d, "Spam"); err != nil {
			// the ledger stays armed; the next flagged message retries
			// the timeout rather than letting the user start from zero
			c.Logger.Warn("applying timeout", "err", err)
		} else {
			if err := eng.Warnings.Reset(c.Ctx, key); err != nil {
				return fmt.Errorf("resetting warnings: %w", err)
			}
			act := store.ModAction{
				GuildID:     evt.GuildID,
				ModeratorID: "auto",
				TargetID:    evt.AuthorID,
				ActionType:  "timeout",
				Reason:      "Spam",
			}
			if err := eng.Store.LogModAction(c.Ctx, act); err != nil {
				c.Logger.Warn("logging mod action", "err", err)
			}
			c.effects.TimedOut = true
			timeoutsApplied.Inc()

			notice := fmt.Sprintf("<@%s> has been timed out for spamming.", evt.AuthorID)
			if err := eng.Actions.SendMessage(c.Ctx, evt.ChannelID, notice); err != nil {
				c.Logger.Warn("sending timeout notice", "err", err)
			}
		}
	} else {
		notice := fmt.Sprintf("<@%s> please stop spamming. Warning %d/%d.", evt.AuthorID, count, eng.maxWarnings())
		if err := eng.Actions.SendMessage(c.Ctx, evt.ChannelID, notice); err != nil {
			c.Logger.Warn("sending warning notice", "err", err)
		}
	}

	if eng.Notifier != nil {
		for _, svc := range c.effects.NotifyServices {
			if err := eng.Notifier.SendEnforcement(c.Ctx, svc, c); err != nil {
				c.Logger.Warn("sending enforcement notification", "service", svc, "err", err)
			}
		}
	}
	return nil
}

// awardXP grants message XP and announces level-ups in the channel the
// message arrived on.
func (eng *Engine) awardXP(c *MessageContext) error {
	res, err := eng.Leveling.AddMessageXP(c.Ctx, c.Key())
	if err != nil {
		return fmt.Errorf("awarding xp: %w", err)
	}
	c.effects.XPAwarded = res.Gained
	xpAwarded.Add(float64(res.Gained))

	if res.LeveledUp() {
		c.effects.LeveledUp = true
		levelUps.Inc()
		notice := fmt.Sprintf("<@%s> leveled up to level %d!", c.Event.AuthorID, res.NewLevel)
		if err := eng.Actions.SendMessage(c.Ctx, c.Event.ChannelID, notice); err != nil {
			c.Logger.Warn("sending level-up notice", "err", err)
		}
	}
	return nil
}

// persistCounters flushes queued counter increments to the countstore.
func (eng *Engine) persistCounters(ctx context.Context, e *Effects) error {
	for _, ref := range e.CounterIncrements {
		if err := eng.Counters.Increment(ctx, ref.Name, ref.Val); err != nil {
			return err
		}
	}
	for _, ref := range e.CounterDistinctIncrements {
		if err := eng.Counters.IncrementDistinct(ctx, ref.Name, ref.Bucket, ref.Val); err != nil {
			return err
		}
	}
	return nil
}

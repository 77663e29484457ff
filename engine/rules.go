package engine

import (
	"strings"
)

// SpamBurstRule flags messages classified as spam by the sliding-window
// filter. Guilds with the filter disabled skip classification entirely:
// no window state accrues, so messages sent before the filter is turned
// on never count toward the thresholds.
func SpamBurstRule(c *MessageContext) error {
	if !c.Settings.SpamFilterEnabled {
		return nil
	}
	verdict := c.Classify()
	if !verdict.Spam {
		return nil
	}

	if verdict.RateExceeded {
		c.FlagSpam("message-rate")
	}
	if verdict.Duplicate {
		c.FlagSpam("duplicate-content")
	}
	c.Increment("spam-flagged", c.Event.GuildID)
	c.IncrementDistinct("spammers", c.Event.GuildID, c.Event.AuthorID)
	c.Notify("webhook")
	return nil
}

// BlockedWordRule flags messages containing a word from the
// "blocked-words" config set. Matching is per whitespace token, case
// insensitive.
func BlockedWordRule(c *MessageContext) error {
	for _, tok := range strings.Fields(strings.ToLower(c.Event.Content)) {
		if c.InSet("blocked-words", tok) {
			c.FlagSpam("blocked-word")
			c.Increment("blocked-word-hits", c.Event.GuildID)
			c.Notify("webhook")
			return nil
		}
	}
	return nil
}

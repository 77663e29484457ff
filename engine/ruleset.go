package engine

type MessageRuleFunc = func(c *MessageContext) error

// RuleSet is the list of rules executed for each event type. Rules run
// in order; all rules run even if an earlier one flagged the message.
type RuleSet struct {
	MessageRules []MessageRuleFunc
}

func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	for _, f := range r.MessageRules {
		if err := f(c); err != nil {
			return err
		}
	}
	if c.Err != nil {
		return c.Err
	}
	return nil
}

// DefaultRules returns the standard moderation ruleset.
func DefaultRules() RuleSet {
	return RuleSet{
		MessageRules: []MessageRuleFunc{
			SpamBurstRule,
			BlockedWordRule,
		},
	}
}

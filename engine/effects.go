package engine

// CounterRef is an increment queued for persistence after rule
// execution.
type CounterRef struct {
	Name string
	Val  string
}

// CounterDistinctRef marks a value as seen within a bucket, for
// distinct-cardinality counters.
type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

// Effects hold both rule outputs (flags, counter increments) and the
// enforcement outcome the engine records while applying them.
type Effects struct {
	SpamFlagged bool
	SpamReasons []string

	CounterIncrements         []CounterRef
	CounterDistinctIncrements []CounterDistinctRef

	NotifyServices []string

	// filled in by enforcement, after rules run
	WarningCount int
	TimedOut     bool
	XPAwarded    int64
	LeveledUp    bool
}

// FlagSpam marks the message for enforcement. Multiple reasons
// accumulate; duplicates are kept (each names a distinct rule).
func (e *Effects) FlagSpam(reason string) {
	e.SpamFlagged = true
	e.SpamReasons = append(e.SpamReasons, reason)
}

func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

func (e *Effects) Notify(service string) {
	for _, s := range e.NotifyServices {
		if s == service {
			return
		}
	}
	e.NotifyServices = append(e.NotifyServices, service)
}

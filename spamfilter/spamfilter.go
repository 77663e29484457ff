// Sliding-window spam classification: rate and duplicate detection over
// recent message activity, keyed per (user, guild).
//
// Window state is in-memory only and resets on restart; durable counters
// (warnings etc) live behind the store instead.
package spamfilter

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	// number of messages within RateInterval which triggers the rate rule
	MaxMessagesPerInterval = 5
	// lookback for the rate rule
	RateInterval = 5 * time.Second
	// number of identical messages within the retention horizon which
	// triggers the duplicate rule
	DuplicateThreshold = 3
	// samples older than this are evicted; the only memory bound on
	// window growth, so eviction runs on every Classify call
	RetentionHorizon = 60 * time.Second
)

// Verdict is the classification result for a single message.
type Verdict struct {
	Spam bool
	// which rule(s) fired, for logging and metrics
	RateExceeded bool
	Duplicate    bool
}

type sample struct {
	ts          time.Time
	fingerprint uint64
}

// window holds recent samples for one key, chronological order. Samples
// arrive in real time, so append order is timestamp order.
type window struct {
	lk      sync.Mutex
	samples []sample
}

// Filter classifies message events as spam or not. Each (user, guild)
// key gets an independent window with its own lock: same-key calls are
// serialized, different keys never contend.
type Filter struct {
	windows *xsync.Map[string, *window]
}

func NewFilter() *Filter {
	return &Filter{
		windows: xsync.NewMap[string, *window](),
	}
}

// Fingerprint returns the fixed-size hash used for duplicate detection.
// Content is hashed raw, without normalization: duplicate means literal
// repetition, and hash collisions are an accepted approximation.
func Fingerprint(content string) uint64 {
	return xxhash.Sum64String(content)
}

// Classify records the message in the key's window and reports whether
// it is spam. Pure in-memory, never blocks on external systems.
//
// A brand-new key starts with an empty window and is never flagged on
// its first message.
func (f *Filter) Classify(userID, guildID, content string, now time.Time) Verdict {
	w, _ := f.windows.LoadOrCompute(windowKey(userID, guildID), func() (*window, bool) {
		return &window{}, false
	})

	w.lk.Lock()
	defer w.lk.Unlock()

	w.evict(now)

	fp := Fingerprint(content)
	w.samples = append(w.samples, sample{ts: now, fingerprint: fp})

	v := Verdict{
		RateExceeded: w.countSince(now.Add(-RateInterval)) >= MaxMessagesPerInterval,
		Duplicate:    w.countFingerprint(fp) >= DuplicateThreshold,
	}
	v.Spam = v.RateExceeded || v.Duplicate
	return v
}

// ClearUser drops all window state for a key (eg, after a moderator
// clears a user, or on timeout enforcement).
func (f *Filter) ClearUser(userID, guildID string) {
	f.windows.Delete(windowKey(userID, guildID))
}

// WindowLen reports the retained sample count for a key, evicting stale
// samples first. Mostly useful for tests and debug surfaces.
func (f *Filter) WindowLen(userID, guildID string, now time.Time) int {
	w, ok := f.windows.Load(windowKey(userID, guildID))
	if !ok {
		return 0
	}
	w.lk.Lock()
	defer w.lk.Unlock()
	w.evict(now)
	return len(w.samples)
}

func windowKey(userID, guildID string) string {
	return userID + "/" + guildID
}

// evict drops samples older than the retention horizon. Must hold lk.
func (w *window) evict(now time.Time) {
	cutoff := now.Add(-RetentionHorizon)
	i := 0
	for i < len(w.samples) && w.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

func (w *window) countSince(cutoff time.Time) int {
	n := 0
	// recent samples are at the tail; scan backwards and stop early
	for i := len(w.samples) - 1; i >= 0; i-- {
		if w.samples[i].ts.Before(cutoff) {
			break
		}
		n++
	}
	return n
}

func (w *window) countFingerprint(fp uint64) int {
	n := 0
	for _, s := range w.samples {
		if s.fingerprint == fp {
			n++
		}
	}
	return n
}

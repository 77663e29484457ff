// Escalating spam-warning ledger, backed by the persistence store.
package warnings

import (
	"context"
	"fmt"

	"github.com/warden-bot/warden/store"
)

// DefaultMaxWarnings is the default escalation threshold: reaching it
// triggers a timeout and a ledger reset. The comparison itself belongs
// to the enforcement layer.
const DefaultMaxWarnings = 3

type Ledger struct {
	store store.Store
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// Record adds one warning for the key and returns the new total. The
// increment is atomic at the storage layer, so concurrent handlers for
// the same key never lose an update.
//
// A persistence failure is fatal for the calling event: the caller
// drops the event rather than retrying.
func (l *Ledger) Record(ctx context.Context, key store.ActivityKey) (int, error) {
	count, err := l.store.IncrementWarnings(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("recording warning: %w", err)
	}
	return count, nil
}

// Count returns the current warning total for a key (0 if none).
func (l *Ledger) Count(ctx context.Context, key store.ActivityKey) (int, error) {
	return l.store.GetWarnings(ctx, key)
}

// Reset clears all warnings for a key. Called after threshold
// enforcement, or by an explicit administrative reset.
func (l *Ledger) Reset(ctx context.Context, key store.ActivityKey) error {
	if err := l.store.ClearWarnings(ctx, key); err != nil {
		return fmt.Errorf("resetting warnings: %w", err)
	}
	return nil
}

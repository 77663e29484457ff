// Message-activity leveling: converts chat activity into persisted XP
// and derives discrete levels.
package leveling

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/warden-bot/warden/store"
)

// XP gained per qualifying message is uniform in [MinXPGain, MaxXPGain].
const (
	MinXPGain = 15
	MaxXPGain = 25
)

// Result of one XP addition. XP is the new total; Gained is the amount
// this addition contributed.
type Result struct {
	XP       int64
	Gained   int64
	OldLevel int64
	NewLevel int64
}

// LeveledUp reports whether this addition crossed a level boundary.
// Levels never decrease through AddXP, since XP only grows.
func (r Result) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

// LevelForXP derives the level for an XP total: floor(sqrt(xp/100)).
// The persisted level column is a cache of this value, never
// independently authoritative.
func LevelForXP(xp int64) int64 {
	if xp <= 0 {
		return 0
	}
	return int64(math.Sqrt(float64(xp) / 100.0))
}

type Accumulator struct {
	store store.Store
}

func NewAccumulator(st store.Store) *Accumulator {
	return &Accumulator{store: st}
}

// AddXP adds amount to the key's persisted XP total and recomputes the
// derived level. A key with no record starts from xp=0, level=0.
func (a *Accumulator) AddXP(ctx context.Context, key store.ActivityKey, amount int64) (Result, error) {
	_, oldLevel, err := a.store.GetUserXP(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("reading xp record: %w", err)
	}

	xp, err := a.store.AddXP(ctx, key, amount)
	if err != nil {
		return Result{}, fmt.Errorf("adding xp: %w", err)
	}

	res := Result{
		XP:       xp,
		Gained:   amount,
		OldLevel: oldLevel,
		NewLevel: LevelForXP(xp),
	}
	if res.LeveledUp() {
		if err := a.store.SetLevel(ctx, key, res.NewLevel); err != nil {
			return Result{}, fmt.Errorf("persisting level: %w", err)
		}
	}
	return res, nil
}

// AddMessageXP awards the standard randomized per-message amount.
func (a *Accumulator) AddMessageXP(ctx context.Context, key store.ActivityKey) (Result, error) {
	return a.AddXP(ctx, key, MessageXPGain())
}

// SetLevel overrides the persisted level directly (admin surface). The
// next AddXP recompute may raise it again if XP justifies more.
func (a *Accumulator) SetLevel(ctx context.Context, key store.ActivityKey, level int64) error {
	return a.store.SetLevel(ctx, key, level)
}

// Leaderboard returns the top users by XP within one guild.
func (a *Accumulator) Leaderboard(ctx context.Context, guildID string, limit int) ([]store.UserXP, error) {
	return a.store.Leaderboard(ctx, guildID, limit)
}

// MessageXPGain picks a uniform random amount in [MinXPGain, MaxXPGain].
func MessageXPGain() int64 {
	return MinXPGain + rand.Int64N(MaxXPGain-MinXPGain+1)
}

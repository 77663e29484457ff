package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store, for tests and local development.
// All methods are safe for concurrent use.
type MemStore struct {
	lk        sync.Mutex
	settings  map[string]GuildSettings
	warnings  map[ActivityKey]SpamWarning
	xp        map[ActivityKey]UserXP
	cleanCfgs map[string]AutoCleanConfig
	actions   []ModAction
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		settings:  make(map[string]GuildSettings),
		warnings:  make(map[ActivityKey]SpamWarning),
		xp:        make(map[ActivityKey]UserXP),
		cleanCfgs: make(map[string]AutoCleanConfig),
	}
}

func cleanCfgKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

func (s *MemStore) GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.settings[guildID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemStore) SetGuildSettings(ctx context.Context, settings GuildSettings) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.settings[settings.GuildID] = settings
	return nil
}

func (s *MemStore) GetPrefix(ctx context.Context, guildID string) (string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.settings[guildID].Prefix, nil
}

func (s *MemStore) SetPrefix(ctx context.Context, guildID, prefix string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.settings[guildID]
	if !ok {
		v = GuildSettings{GuildID: guildID, LevelingEnabled: true}
	}
	v.Prefix = prefix
	s.settings[guildID] = v
	return nil
}

func (s *MemStore) GetWarnings(ctx context.Context, key ActivityKey) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.warnings[key].Warnings, nil
}

func (s *MemStore) IncrementWarnings(ctx context.Context, key ActivityKey) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	w := s.warnings[key]
	w.UserID = key.UserID
	w.GuildID = key.GuildID
	w.Warnings++
	w.LastWarning = time.Now().UTC()
	s.warnings[key] = w
	return w.Warnings, nil
}

func (s *MemStore) ClearWarnings(ctx context.Context, key ActivityKey) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.warnings, key)
	return nil
}

func (s *MemStore) GetUserXP(ctx context.Context, key ActivityKey) (int64, int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	v := s.xp[key]
	return v.XP, v.Level, nil
}

func (s *MemStore) AddXP(ctx context.Context, key ActivityKey, amount int64) (int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	v := s.xp[key]
	v.UserID = key.UserID
	v.GuildID = key.GuildID
	v.XP += amount
	s.xp[key] = v
	return v.XP, nil
}

func (s *MemStore) SetLevel(ctx context.Context, key ActivityKey, level int64) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v, ok := s.xp[key]
	if !ok {
		return nil
	}
	v.Level = level
	s.xp[key] = v
	return nil
}

func (s *MemStore) Leaderboard(ctx context.Context, guildID string, limit int) ([]UserXP, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []UserXP
	for k, v := range s.xp {
		if k.GuildID == guildID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListAutoCleanConfigs(ctx context.Context) ([]AutoCleanConfig, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	var out []AutoCleanConfig
	for _, cfg := range s.cleanCfgs {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return cleanCfgKey(out[i].GuildID, out[i].ChannelID) < cleanCfgKey(out[j].GuildID, out[j].ChannelID)
	})
	return out, nil
}

func (s *MemStore) GetAutoCleanConfig(ctx context.Context, guildID, channelID string) (*AutoCleanConfig, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	cfg, ok := s.cleanCfgs[cleanCfgKey(guildID, channelID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (s *MemStore) SetAutoCleanConfig(ctx context.Context, cfg AutoCleanConfig) error {
	if cfg.IntervalMinutes <= 0 || cfg.MessageCount <= 0 {
		return fmt.Errorf("invalid auto-clean config: interval=%d messageCount=%d", cfg.IntervalMinutes, cfg.MessageCount)
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	s.cleanCfgs[cleanCfgKey(cfg.GuildID, cfg.ChannelID)] = cfg
	return nil
}

func (s *MemStore) RemoveAutoCleanConfig(ctx context.Context, guildID, channelID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.cleanCfgs, cleanCfgKey(guildID, channelID))
	return nil
}

func (s *MemStore) LogModAction(ctx context.Context, action ModAction) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	s.actions = append(s.actions, action)
	return nil
}

func (s *MemStore) ModActionStats(ctx context.Context, guildID string) ([]ModActionStat, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	counts := make(map[[2]string]int64)
	for _, a := range s.actions {
		if a.GuildID == guildID {
			counts[[2]string{a.ModeratorID, a.ActionType}]++
		}
	}
	var out []ModActionStat
	for k, v := range counts {
		out = append(out, ModActionStat{ModeratorID: k[0], ActionType: k[1], Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModeratorID != out[j].ModeratorID {
			return out[i].ModeratorID < out[j].ModeratorID
		}
		return out[i].ActionType < out[j].ActionType
	})
	return out, nil
}

// Named string sets used for policy configuration: master users,
// blocked words. Loaded once at startup from a JSON file.
package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

type MemSetStore struct {
	lk   sync.RWMutex
	sets map[string]map[string]bool
}

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	set, ok := s.sets[name]
	if !ok {
		// an entirely missing set reads as empty
		return false, nil
	}
	return set[val], nil
}

// Add inserts values into a named set, creating it if needed.
func (s *MemSetStore) Add(name string, vals ...string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	set, ok := s.sets[name]
	if !ok {
		set = make(map[string]bool)
		s.sets[name] = set
	}
	for _, v := range vals {
		set[v] = true
	}
}

// LoadFromFileJSON replaces sets from a JSON file shaped as
// {"set-name": ["val", ...], ...}.
func (s *MemSetStore) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	for name, l := range sets {
		m := make(map[string]bool, len(l))
		for _, val := range l {
			m[val] = true
		}
		s.sets[name] = m
	}
	return nil
}

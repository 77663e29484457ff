package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerKeyOrdering(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	seen := make(map[string][]int)

	s := NewScheduler[[2]interface{}](8, "test", func(ctx context.Context, v [2]interface{}) error {
		lk.Lock()
		defer lk.Unlock()
		key := v[0].(string)
		seen[key] = append(seen[key], v[1].(int))
		return nil
	})

	const perKey = 50
	for i := 0; i < perKey; i++ {
		for k := 0; k < 4; k++ {
			key := fmt.Sprintf("key-%d", k)
			require.NoError(t, s.AddWork(ctx, key, [2]interface{}{key, i}))
		}
	}
	s.Shutdown()

	// same-key items observed in submission order
	for k := 0; k < 4; k++ {
		key := fmt.Sprintf("key-%d", k)
		assert.Len(seen[key], perKey)
		for i, v := range seen[key] {
			assert.Equal(i, v, "out of order for %s", key)
		}
	}
}

func TestHandlerErrorDoesNotStall(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	var processed int

	s := NewScheduler[int](2, "test-err", func(ctx context.Context, v int) error {
		lk.Lock()
		defer lk.Unlock()
		processed++
		if v%2 == 0 {
			return fmt.Errorf("injected failure")
		}
		return nil
	})

	for i := 0; i < 20; i++ {
		require.NoError(t, s.AddWork(ctx, "k", i))
	}
	s.Shutdown()

	lk.Lock()
	defer lk.Unlock()
	assert.Equal(20, processed)
}

// Fixed-size worker pool with per-key ordered delivery: work items for
// the same key are processed one at a time in submission order, while
// different keys run concurrently.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
)

type Scheduler[T any] struct {
	maxConcurrency int

	do func(context.Context, T) error

	feeder chan *task[T]
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*task[T]

	ident string

	log *slog.Logger
}

type task[T any] struct {
	key     string
	val     T
	control string
}

func NewScheduler[T any](maxC int, ident string, do func(context.Context, T) error) *Scheduler[T] {
	s := &Scheduler[T]{
		maxConcurrency: maxC,

		do: do,

		feeder: make(chan *task[T]),
		active: make(map[string][]*task[T]),
		out:    make(chan struct{}),

		ident: ident,

		log: slog.Default().With("system", "scheduler", "ident", ident),
	}

	for i := 0; i < maxC; i++ {
		go s.worker()
	}
	workersActive.WithLabelValues(ident).Set(float64(maxC))

	return s
}

// Shutdown stops all workers after in-flight work completes.
func (s *Scheduler[T]) Shutdown() {
	s.log.Info("shutting down scheduler")

	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &task[T]{control: "stop"}
	}

	close(s.feeder)

	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}

	s.log.Info("scheduler shutdown complete")
}

// AddWork submits a work item. Items sharing a key are queued behind
// any in-flight item for that key, preserving submission order.
func (s *Scheduler[T]) AddWork(ctx context.Context, key string, val T) error {
	itemsAdded.WithLabelValues(s.ident).Inc()
	t := &task[T]{
		key: key,
		val: val,
	}
	s.lk.Lock()

	a, ok := s.active[key]
	if ok {
		s.active[key] = append(a, t)
		s.lk.Unlock()
		return nil
	}

	s.active[key] = []*task[T]{}
	s.lk.Unlock()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler[T]) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.control == "stop" {
				s.out <- struct{}{}
				return
			}

			if err := s.do(context.TODO(), work.val); err != nil {
				s.log.Error("event handler failed", "err", err)
			}
			itemsProcessed.WithLabelValues(s.ident).Inc()

			s.lk.Lock()
			rem, ok := s.active[work.key]
			if !ok {
				s.log.Error("should always have an 'active' entry if a worker is processing a job")
			}

			if len(rem) == 0 {
				delete(s.active, work.key)
				work = nil
			} else {
				work = rem[0]
				s.active[work.key] = rem[1:]
			}
			s.lk.Unlock()
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warden-bot/warden/cachestore"
	"github.com/warden-bot/warden/cleaner"
	"github.com/warden-bot/warden/countstore"
	"github.com/warden-bot/warden/engine"
	"github.com/warden-bot/warden/leveling"
	"github.com/warden-bot/warden/platform"
	"github.com/warden-bot/warden/scheduler"
	"github.com/warden-bot/warden/setstore"
	"github.com/warden-bot/warden/spamfilter"
	"github.com/warden-bot/warden/store"
	"github.com/warden-bot/warden/warnings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Server struct {
	logger  *slog.Logger
	store   store.Store
	engine  *engine.Engine
	cleaner *cleaner.Cleaner
	client  *platform.Client
	gateway *platform.Gateway
	sched   *scheduler.Scheduler[platform.Message]
	rdb     *redis.Client
}

type Config struct {
	DiscordToken     string
	RedisURL         string
	SetsFileJSON     string
	WebhookURL       string
	EventConcurrency int
	Logger           *slog.Logger
}

func newPlatformClient(token string) *platform.Client {
	return platform.NewClient(token)
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if config.DiscordToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	st, err := store.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		}
		logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
	}

	client := newPlatformClient(config.DiscordToken)

	eng := &engine.Engine{
		Logger:   logger,
		Store:    st,
		Filter:   spamfilter.NewFilter(),
		Warnings: warnings.NewLedger(st),
		Leveling: leveling.NewAccumulator(st),
		Counters: counters,
		Cache:    cache,
		Sets:     sets,
		Rules:    engine.DefaultRules(),
		Actions:  client,
	}
	if config.WebhookURL != "" {
		eng.Notifier = engine.NewWebhookNotifier(config.WebhookURL)
	}

	cln := cleaner.NewCleaner(st, client, logger)

	s := &Server{
		logger:  logger,
		store:   st,
		engine:  eng,
		cleaner: cln,
		client:  client,
		rdb:     rdb,
	}

	parallelism := config.EventConcurrency
	if parallelism <= 0 {
		parallelism = 8
	}
	s.sched = scheduler.NewScheduler[platform.Message](parallelism, "events", s.processMessage)
	s.gateway = platform.NewGateway(config.DiscordToken, platform.EventCallbacks{
		MessageCreate:     s.handleMessageCreate,
		InteractionCreate: s.handleInteraction,
		Ready: func(sessionID string) error {
			logger.Info("event stream ready", "session", sessionID)
			return nil
		},
	}, logger)

	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Run starts the gateway consumer and the auto-clean loop, blocking
// until a shutdown signal or a fatal error.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.gateway.Run(ctx) })
	eg.Go(func() error { return s.cleaner.Run(ctx) })

	err := eg.Wait()
	s.sched.Shutdown()
	if errors.Is(err, context.Canceled) {
		s.logger.Info("shutdown complete")
		return nil
	}
	return err
}

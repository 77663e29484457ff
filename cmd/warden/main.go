package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/warden-bot/warden/store"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "chat moderation daemon (spam filter, warnings, leveling, auto-clean)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token for the chat platform API",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN", "WARDEN_DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/warden/warden.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		registerCommandsCmd,
	}

	return app.Run(args)
}

func configLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the moderation service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; enables redis-backed counters and caches",
			EnvVars: []string{"WARDEN_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON config sets (master users, blocked words)",
			EnvVars: []string{"WARDEN_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "incoming webhook URL for enforcement notifications",
			EnvVars: []string{"WARDEN_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "event-concurrency",
			Usage:   "max concurrent event handling tasks",
			Value:   8,
			EnvVars: []string{"WARDEN_EVENT_CONCURRENCY"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := configLogger()

		db, err := store.OpenDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				DiscordToken:     cctx.String("discord-token"),
				RedisURL:         cctx.String("redis-url"),
				SetsFileJSON:     cctx.String("sets-json-path"),
				WebhookURL:       cctx.String("webhook-url"),
				EventConcurrency: cctx.Int("event-concurrency"),
				Logger:           logger,
			},
		)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

var registerCommandsCmd = &cli.Command{
	Name:  "register-commands",
	Usage: "register slash commands with the platform and exit",
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := configLogger()

		client := newPlatformClient(cctx.String("discord-token"))
		appID, err := client.CurrentApplicationID(ctx)
		if err != nil {
			return fmt.Errorf("resolving application ID: %w", err)
		}
		if err := client.RegisterCommands(ctx, appID, slashCommands()); err != nil {
			return fmt.Errorf("registering commands: %w", err)
		}
		logger.Info("registered slash commands", "app", appID, "count", len(slashCommands()))
		return nil
	},
}

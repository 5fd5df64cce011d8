// Command relay drains the outbox: it completes claim side effects left
// behind by the API and forwards every event to RabbitMQ.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/mnhsh/letterbox/internal/broker"
	"github.com/mnhsh/letterbox/internal/config"
	"github.com/mnhsh/letterbox/internal/database"
	"github.com/mnhsh/letterbox/internal/errtrack"
	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/outbox"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("relay: %v", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "couldn't load config")
	}
	if cfg.Database.DSN == "" {
		return errors.Wrap(config.ErrMissingDSN, "invalid config")
	}
	if cfg.Rabbit.URL == "" {
		return errors.New("invalid config: rabbit.url is required")
	}

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "couldn't build logger")
	}
	defer lg.Sync()

	if err := errtrack.Init(cfg.Sentry, "relay", lg); err != nil {
		lg.Error("error tracking disabled", "err", err)
	}
	defer errtrack.Flush(2 * time.Second)
	defer func() {
		if err != nil {
			lg.Error("relay stopped", "err", err)
			errtrack.CaptureError(err, nil)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "couldn't open database")
	}
	defer db.Close()
	store := database.NewStore(db)

	rabbit := broker.NewRabbitClient(cfg.Rabbit.URL, cfg.Rabbit.Queue, lg)
	defer rabbit.Close()

	svc := letter.NewService(store,
		letter.WithLogger(lg),
		letter.WithRetries(cfg.Claim.ReadRetries, cfg.Claim.EffectRetries),
	)

	relay := outbox.NewRelay(store, rabbit, svc, letter.SystemClock{}, lg, outbox.Options{
		Interval:    cfg.Relay.Interval,
		BatchSize:   cfg.Relay.BatchSize,
		MaxAttempts: cfg.Relay.MaxAttempts,
		PublishRPS:  cfg.Relay.PublishRPS,
	})
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "run relay")
	}
	return nil
}

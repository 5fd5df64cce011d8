package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnhsh/letterbox/internal/auth"
	"github.com/mnhsh/letterbox/internal/config"
	"github.com/mnhsh/letterbox/internal/database"
	"github.com/mnhsh/letterbox/internal/errtrack"
	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/memstore"
	"github.com/mnhsh/letterbox/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("api: %v", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "couldn't load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	lg, err := logger.NewLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "couldn't build logger")
	}
	defer lg.Sync()

	if err := errtrack.Init(cfg.Sentry, "api", lg); err != nil {
		lg.Error("error tracking disabled", "err", err)
	}
	defer errtrack.Flush(2 * time.Second)
	defer func() {
		if err != nil {
			lg.Error("api stopped", "err", err)
			errtrack.CaptureError(err, nil)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, lg)
	if err != nil {
		return errors.Wrap(err, "couldn't open store")
	}
	defer closeRepo()

	opts := []letter.Option{
		letter.WithLogger(lg),
		letter.WithRetries(cfg.Claim.ReadRetries, cfg.Claim.EffectRetries),
	}
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.Storage)
		if err != nil {
			return errors.Wrap(err, "couldn't create S3 client")
		}
		opts = append(opts, letter.WithAttachments(s3Storage, cfg.Storage.PresignTTL))
	}
	svc := letter.NewService(repo, opts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newServer(cfg, svc, lg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown failed", "err", err)
		}
	}()

	lg.Info("server starting", "port", cfg.Server.Port, "memory", cfg.Server.Memory)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve http")
	}
	return nil
}

func newServer(cfg *config.Config, svc *letter.Service, lg *logger.Logger) http.Handler {
	app := newAPI(svc, lg)
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.Handler {
		return auth.WithAuthMiddleware(cfg.JWT.Secret, h)
	}
	throttled := func(h http.Handler) http.Handler {
		return auth.RateLimit(cfg.RateLimit, h)
	}

	// Public routes
	mux.Handle("GET /v1/invites/{token}", throttled(http.HandlerFunc(app.handlerPreviewInvite)))
	mux.HandleFunc("GET /healthz", handlerHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Protected routes
	mux.Handle("POST /v1/invites/{token}/claim", throttled(protected(app.handlerClaimInvite)))
	mux.Handle("POST /v1/letters", protected(app.handlerCreateLetter))
	mux.Handle("GET /v1/letters", protected(app.handlerListLetters))
	mux.Handle("GET /v1/letters/{id}", protected(app.handlerGetLetter))
	mux.Handle("DELETE /v1/letters/{id}", protected(app.handlerDeleteLetter))
	mux.Handle("POST /v1/letters/{id}/open", protected(app.handlerOpenLetter))
	mux.Handle("POST /v1/letters/{id}/reply", protected(app.handlerAddReply))
	mux.Handle("GET /v1/letters/{id}/reply", protected(app.handlerGetReply))
	mux.Handle("POST /v1/letters/{id}/reply/viewed", protected(app.handlerReplyViewed))
	mux.Handle("POST /v1/letters/{id}/reflection", protected(app.handlerSubmitReflection))
	mux.Handle("GET /v1/connections", protected(app.handlerListConnections))

	// Wrap with CORS middleware
	return errtrack.Middleware(auth.CORSMiddleware(mux, cfg.Server.AllowedOrigins...))
}

func openRepository(ctx context.Context, cfg *config.Config, lg *logger.Logger) (letter.Repository, func(), error) {
	if cfg.Server.Memory {
		lg.Warn("running with the in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewStore(db), func() { db.Close() }, nil
}

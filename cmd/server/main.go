// Command server runs the content-trust API: the submission pipeline, the
// report queue, the moderation executor, and the audit log behind a Gin
// HTTP surface.
//
// Startup order: .env → config → logging → OTel → SQLite → counter store
// (Redis when configured, in-process otherwise) → router → serve with
// graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/rueidis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/config"
	httpapi "github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/http"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/moderation"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/observability"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/ratelimit"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/repo"
	"github.com/AtharvaSin/bharatvarsh-website-gcp-sub000/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments inject env directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	// Counter store for admission control: Redis shares counters across
	// replicas; the in-process store is the single-node default.
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Rate.RedisAddr != "" {
		rc, err := rueidis.NewClient(rueidis.ClientOption{
			InitAddress:  []string{cfg.Rate.RedisAddr},
			DisableCache: true,
		})
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Rate.RedisAddr).Msg("redis connect failed")
		}
		defer rc.Close()
		store = ratelimit.NewRedisStore(rc, log.With().Str("component", "ratelimit").Logger())
	}

	checker := moderation.NewClient(moderation.ClientOptions{
		BaseURL:    cfg.AICheck.BaseURL,
		Timeout:    cfg.AICheck.Timeout,
		MaxRetries: uint64(cfg.AICheck.MaxRetries),
		RPS:        cfg.AICheck.RPS,
		Burst:      cfg.AICheck.Burst,
	}, log.With().Str("component", "ai_check").Logger())

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, store, checker, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

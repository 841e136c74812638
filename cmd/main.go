// jobmate-research-service
//
// Job-market research backend. Exposes a REST API for:
//   - accounts and sessions (JWT + Postgres sessions, Redis cache)
//   - jobs, research papers and the three resource families
//   - bookmarks, votes and threaded comments on any of them
//   - projects with progress tracking
//   - rule-based recommendations
//   - admin-triggered and scheduled ingestion of public listings
//
// Every backing store is optional at boot: a missing DATABASE_URL, REDIS_URL,
// JWT_SECRET or OPENAI_API_KEY disables the features that need it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/bookmarks"
	"jobmate/research-service/internal/comments"
	"jobmate/research-service/internal/config"
	"jobmate/research-service/internal/db"
	"jobmate/research-service/internal/events"
	"jobmate/research-service/internal/grpcserver"
	"jobmate/research-service/internal/health"
	"jobmate/research-service/internal/httpx"
	"jobmate/research-service/internal/ingest"
	"jobmate/research-service/internal/jobs"
	"jobmate/research-service/internal/papers"
	"jobmate/research-service/internal/projects"
	"jobmate/research-service/internal/recommend"
	"jobmate/research-service/internal/resources"
	"jobmate/research-service/internal/scheduler"
	"jobmate/research-service/internal/target"
	"jobmate/research-service/internal/votes"
)

const (
	service = "research-service"
	version = "1.0.0"

	healthRefreshSpec = "@every 30s"
)

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[research-service] Config error: %v", err)
	}
	setupLogging(cfg)
	httpx.SetDebugErrors(cfg.DebugErrors)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := &health.Checker{Service: service, Version: version}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	conn := db.Unavailable()
	if cfg.DatabaseURL == "" {
		log.Println("[research-service] DATABASE_URL not set, persistence disabled")
	} else {
		log.Println("[research-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("[research-service] PostgreSQL unavailable: %v", err)
			checker.Database = health.PingFunc(func(context.Context) error { return err })
		} else {
			defer pool.Close()
			conn = pool
			checker.Database = pool
			log.Println("[research-service] PostgreSQL connected ✓")

			if cfg.AutoMigrate {
				if err := db.Bootstrap(ctx, pool); err != nil {
					log.Fatalf("[research-service] Schema bootstrap: %v", err)
				}
				log.Println("[research-service] Schema bootstrap applied ✓")
			}
		}
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL == "" {
		log.Println("[research-service] REDIS_URL not set, cache and events disabled")
	} else {
		log.Println("[research-service] Connecting to Redis…")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("[research-service] Redis unavailable: %v", err)
			redisErr := err
			checker.Redis = health.PingFunc(func(context.Context) error { return redisErr })
		} else {
			defer rdb.Close()
			checker.Redis = health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
			log.Println("[research-service] Redis connected ✓")
		}
	}
	pub := events.NewRedisPublisher(rdb)

	// ── Auth ─────────────────────────────────────────────────────────────────
	var tokens *auth.TokenManager
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenManager(cfg.JWTSecret)
	} else {
		log.Println("[research-service] JWT_SECRET not set, authentication disabled")
	}
	var cache auth.SessionCache = auth.NopCache{}
	if rdb != nil {
		cache = auth.NewRedisSessionCache(rdb)
	}
	authSvc := auth.NewService(auth.NewPGUserStore(conn), auth.NewPGSessionStore(conn), cache, tokens)
	stages := auth.Stages(authSvc)
	admin := httpx.AdminKey(cfg.AdminAPIKey)

	// ── Domain services ──────────────────────────────────────────────────────
	targets := target.NewPGChecker(conn)
	jobStore := jobs.NewPGStore(conn)
	paperStore := papers.NewPGStore(conn)
	jobSvc := jobs.NewService(jobStore)
	paperSvc := papers.NewService(paperStore)

	// ── Ingestion ────────────────────────────────────────────────────────────
	rules, err := ingest.LoadRules(cfg.IngestRulesFile)
	if err != nil {
		log.Fatalf("[research-service] Ingest rules: %v", err)
	}
	enricher := ingest.NewOpenAIEnricher(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if enricher == nil {
		log.Println("[research-service] OPENAI_API_KEY not set, enrichment disabled")
	}
	runner := ingest.NewRunner(rules,
		ingest.NewPipeline(ingest.NewRouter(), enricher, jobSvc, paperSvc),
		ingest.NewStatusStore(rdb), pub,
		ingest.RunnerConfig{Workers: cfg.IngestWorkers, QueueSize: cfg.IngestQueueSize, Timeout: cfg.IngestTimeout},
	)
	runner.Start(ctx)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/health", checker.Handler())

	auth.NewHandler(authSvc, cfg.CookieSecure).RegisterRoutes(mux)
	jobs.NewHandler(jobSvc, stages, admin).RegisterRoutes(mux)
	papers.NewHandler(paperSvc, stages, admin).RegisterRoutes(mux)
	resources.NewHandler(resources.NewService(resources.NewPGStore(conn)), stages).RegisterRoutes(mux)
	bookmarks.NewHandler(bookmarks.NewService(bookmarks.NewPGStore(conn), targets), stages).RegisterRoutes(mux)
	votes.NewHandler(votes.NewService(votes.NewPGStore(conn), targets), stages).RegisterRoutes(mux)
	comments.NewHandler(comments.NewService(comments.NewPGStore(conn), targets), stages).RegisterRoutes(mux)
	projects.NewHandler(projects.NewService(projects.NewPGStore(conn), pub), stages).RegisterRoutes(mux)
	recommend.NewHandler(recommend.NewService(recommend.NewPGProfileStore(conn), jobStore, paperStore), stages).RegisterRoutes(mux)
	ingest.NewHandler(runner, admin).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      httpx.Chain(mux, httpx.Recover, httpx.Logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("[research-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[research-service] HTTP server error: %v", err)
		}
	}()

	// ── gRPC health ──────────────────────────────────────────────────────────
	grpcSrv := grpcserver.NewServer(checker)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("[research-service] gRPC listen: %v", err)
		}
		go func() {
			log.Printf("[research-service] gRPC health listening on :%s", cfg.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("[research-service] gRPC server error: %v", err)
			}
		}()
	}

	// ── Cron ─────────────────────────────────────────────────────────────────
	sched := scheduler.New()
	sched.SweepSessions(cfg.SessionSweepSchedule, authSvc)
	sched.Ingest(cfg.IngestSchedule, runner)
	sched.RefreshHealth(healthRefreshSpec, grpcSrv)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[research-service] Scheduler: %v", err)
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[research-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[research-service] Shutdown error: %v", err)
	}
	sched.Stop()
	grpcSrv.Stop()
	cancel()
	runner.Wait()
	log.Println("[research-service] Stopped.")
}

// setupLogging installs the default slog handler from LOG_FORMAT and LOG_LEVEL.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// creatorsync — creator discovery and sync service
//
// Discovers creator candidates from an external discovery source,
// deduplicates them against known creators, scores candidates against
// quality gates, aggregates cross-platform metrics into a composite score
// and tier, and adaptively reschedules each creator's next sync.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creatorsync/internal/aggregate"
	"creatorsync/internal/config"
	"creatorsync/internal/db"
	"creatorsync/internal/dedup"
	"creatorsync/internal/discovery"
	"creatorsync/internal/evaluate"
	"creatorsync/internal/pipeline"
	"creatorsync/internal/platform"
	"creatorsync/internal/queue"
	"creatorsync/internal/scheduler"
	"creatorsync/internal/status"
	"creatorsync/internal/store"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[creatorsync] no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[creatorsync] config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[creatorsync] connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[creatorsync] postgres: %v", err)
	}
	defer pool.Close()

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[creatorsync] connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[creatorsync] redis: %v", err)
	}
	defer rdb.Close()

	// ── Pipeline wiring ──────────────────────────────────────────────────────
	creators := store.New(pool)
	api := platform.NewClient(cfg.PlatformAPIBaseURL, cfg.PlatformAPIKey)
	source := discovery.NewHTTPSource(cfg.DiscoveryBaseURL, cfg.DiscoveryAPIKey)
	detector := dedup.New(creators, rdb)
	evaluator := evaluate.New(api, evaluate.Thresholds{
		MinFollowers:   cfg.MinFollowers,
		MaxFollowers:   cfg.MaxFollowers,
		MinEngagement:  cfg.MinEngagement,
		ScoreThreshold: cfg.ScoreThreshold,
	})
	engine := aggregate.NewEngine(creators, api)

	q := queue.New(queue.Options{
		Name:         "pipeline",
		Concurrency:  cfg.QueueConcurrency,
		PollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		MaxAttempts:  cfg.MaxAttempts,
		Sink:         queue.NewRedisSink(rdb),
	})

	svc := pipeline.New(q, source, detector, evaluator, engine, creators)
	sched := scheduler.New(q, creators, nil)

	svc.Start(ctx)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[creatorsync] scheduler: %v", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	status.NewHandler(svc, version).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[creatorsync] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[creatorsync] http server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[creatorsync] shutting down…")
	sched.Stop()
	svc.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[creatorsync] shutdown error: %v", err)
	}
	log.Println("[creatorsync] stopped.")
}

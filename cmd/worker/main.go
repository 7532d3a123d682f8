package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shoptalk/shoptalk/internal/cache"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/database"
	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/queue"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable, worker requires persistent stores", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Warn("migrations failed", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unavailable, worker cannot start", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	gateway, err := llm.NewGateway(cfg.LLM)
	if err != nil {
		slog.Error("failed to build LLM gateway", "error", err)
		os.Exit(1)
	}
	embedSvc, err := embedding.NewService(cfg.Embeddings, gateway)
	if err != nil {
		slog.Error("failed to build embedding service", "error", err)
		os.Exit(1)
	}

	var store vectorstore.VectorStore
	if cfg.Vectorstore.Provider == "memory" {
		store = vectorstore.NewMemoryStore()
	} else {
		store = vectorstore.NewPgVectorStore(db, cfg.Vectorstore.Collection)
	}

	marker := cache.NewIngestMarker(cache.NewCache(rdb))
	loaders := []ingest.Loader{
		ingest.NewCSVLoader(cfg.Sources.CSVPath, cfg.Sources.CSVStrict),
		ingest.NewAPILoader(cfg.Sources.APIURL, cfg.Sources.APIStrict),
	}
	pipeline := ingest.NewPipeline(loaders, embedSvc, store, marker)
	histStore := history.NewPostgresStore(db)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeIngestRun, queue.NewIngestWorker(pipeline))
	mux.Handle(queue.TypeSessionPrune, queue.NewPruneWorker(histStore))

	// The prune task is scheduled here rather than enqueued by the API so a
	// single worker deployment owns the cadence.
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	pruneTask, err := queue.NewSessionPruneTask(queue.SessionPrunePayload{
		MaxAgeSeconds: int64(cfg.Session.MaxAge.Seconds()),
	})
	if err != nil {
		slog.Error("failed to build prune task", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register("@every "+cfg.Session.PruneInterval.String(), pruneTask); err != nil {
		slog.Error("failed to register prune schedule", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	slog.Info("starting worker", "concurrency", 4, "prune_interval", cfg.Session.PruneInterval.String())
	if err := srv.Run(mux); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

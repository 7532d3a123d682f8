package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shoptalk/shoptalk/internal/cache"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/database"
	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	force := flag.Bool("force", false, "run even if a previous ingestion is recorded")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall run timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var marker ingest.Marker
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, last-run marker will not be recorded", "error", err)
	} else {
		marker = cache.NewIngestMarker(cache.NewCache(rdb))
		defer rdb.Close()
	}

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

	store := vectorstore.NewPgVectorStore(db, cfg.Vectorstore.Collection)
	loaders := []ingest.Loader{
		ingest.NewCSVLoader(cfg.Sources.CSVPath, cfg.Sources.CSVStrict),
		ingest.NewAPILoader(cfg.Sources.APIURL, cfg.Sources.APIStrict),
	}
	pipeline := ingest.NewPipeline(loaders, embedSvc, store, marker)

	if !*force && !pipeline.NeedsRun(ctx) {
		slog.Info("index already populated, nothing to do (use -force to re-run)")
		return
	}

	start := time.Now()
	n, err := pipeline.Run(ctx)
	if err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion complete", "documents", n, "elapsed", time.Since(start).String())
}

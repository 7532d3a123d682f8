package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shoptalk/shoptalk/internal/api"
	"github.com/shoptalk/shoptalk/internal/cache"
	"github.com/shoptalk/shoptalk/internal/chat"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/database"
	"github.com/shoptalk/shoptalk/internal/embedding"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/queue"
	"github.com/shoptalk/shoptalk/internal/rag"
	"github.com/shoptalk/shoptalk/internal/speech/stt"
	"github.com/shoptalk/shoptalk/internal/speech/tts"
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
	if err := cfg.Validate(); err != nil {
		slog.Warn("config incomplete", "error", err)
	}

	ctx := context.Background()

	// Database connection (optional — fall back to in-memory stores)
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, using in-memory stores", "error", err)
		db = nil
	} else {
		defer db.Close()

		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			slog.Warn("migrations failed", "error", err)
		}
	}

	// Redis connection (optional)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisOK := true
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and queue", "error", err)
		redisOK = false
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
	switch cfg.Vectorstore.Provider {
	case "pgvector":
		if db != nil {
			store = vectorstore.NewPgVectorStore(db, cfg.Vectorstore.Collection)
		} else {
			slog.Warn("pgvector configured but database missing, using memory store")
			store = vectorstore.NewMemoryStore()
		}
	case "memory":
		store = vectorstore.NewMemoryStore()
	default:
		slog.Error("unsupported vectorstore provider", "provider", cfg.Vectorstore.Provider)
		os.Exit(1)
	}

	var histStore history.Store
	if db != nil {
		histStore = history.NewPostgresStore(db)
	} else {
		histStore = history.NewMemoryStore()
	}

	var marker ingest.Marker
	var queueClient *queue.Client
	if redisOK {
		marker = cache.NewIngestMarker(cache.NewCache(rdb))
		queueClient = queue.NewClient(cfg.Redis)
		defer queueClient.Close()
	}

	loaders := []ingest.Loader{
		ingest.NewCSVLoader(cfg.Sources.CSVPath, cfg.Sources.CSVStrict),
		ingest.NewAPILoader(cfg.Sources.APIURL, cfg.Sources.APIStrict),
	}
	pipeline := ingest.NewPipeline(loaders, embedSvc, store, marker)

	// Populate an empty index once; never re-ingest unconditionally on boot.
	if pipeline.NeedsRun(ctx) {
		if queueClient != nil {
			if err := queueClient.EnqueueIngestRun(queue.IngestRunPayload{Trigger: "startup"}); err != nil {
				slog.Warn("could not enqueue initial ingestion", "error", err)
			}
		} else {
			go func() {
				if _, err := pipeline.Run(context.Background()); err != nil {
					slog.Error("initial ingestion failed", "error", err)
				}
			}()
		}
	}

	retriever := rag.NewRetriever(store, embedSvc)
	chatSvc := chat.NewService(retriever, histStore, gateway, chat.Options{
		Provider:    cfg.LLM.DefaultProvider,
		Model:       cfg.LLM.DefaultModel,
		Temperature: cfg.LLM.Temperature,
	})

	sttSvc := stt.NewOpenAISTT(stt.OpenAIConfig{
		APIKey:  cfg.STT.OpenAIKey,
		BaseURL: cfg.STT.BaseURL,
		Model:   cfg.STT.Model,
	})
	ttsSvc := tts.NewOpenAITTS(tts.OpenAIConfig{
		APIKey:  cfg.TTS.OpenAIKey,
		BaseURL: cfg.TTS.BaseURL,
		Model:   cfg.TTS.Model,
	})

	router := api.NewRouter(cfg, api.Deps{
		DB:           db,
		Redis:        rdb,
		ChatSvc:      chatSvc,
		HistoryStore: histStore,
		Pipeline:     pipeline,
		QueueClient:  queueClient,
		STT:          sttSvc,
		TTS:          ttsSvc,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

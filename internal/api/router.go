package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shoptalk/shoptalk/internal/api/handlers"
	"github.com/shoptalk/shoptalk/internal/api/middleware"
	"github.com/shoptalk/shoptalk/internal/chat"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/ingest"
	"github.com/shoptalk/shoptalk/internal/queue"
	"github.com/shoptalk/shoptalk/internal/speech/stt"
	"github.com/shoptalk/shoptalk/internal/speech/tts"
)

// Deps carries the wired services. Construction happens in cmd/api so the
// memory fallbacks for a missing database or redis are decided in one place.
type Deps struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	ChatSvc      *chat.Service
	HistoryStore history.Store
	Pipeline     *ingest.Pipeline
	QueueClient  *queue.Client
	STT          stt.Provider
	TTS          tts.Provider
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), cfg: cfg, deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.deps.DB, rt.deps.Redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Generated audio artifacts
	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(rt.cfg.Responses.Dir)))
	r.Get("/static/*", fs.ServeHTTP)

	chatH := handlers.NewChatHandler(rt.deps.ChatSvc, rt.deps.TTS, rt.cfg.Responses.Dir)
	voiceH := handlers.NewVoiceHandler(rt.deps.ChatSvc, rt.deps.STT, rt.deps.TTS)
	historyH := handlers.NewHistoryHandler(rt.deps.HistoryStore)
	adminH := handlers.NewAdminHandler(rt.deps.QueueClient, rt.deps.Pipeline)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ask_product", chatH.AskProduct)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/query", chatH.Query)
		})

		r.Route("/voice", func(r chi.Router) {
			r.Post("/chat", voiceH.Chat)
			r.Post("/stt", voiceH.Transcribe)
			r.Post("/tts", voiceH.Speak)
			r.Get("/voices", voiceH.Voices)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/{session_id}", historyH.Get)
			r.Post("/{session_id}", historyH.Append)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/ingest", adminH.Ingest)
		})
	})

	return r
}

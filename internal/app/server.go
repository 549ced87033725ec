package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Auditra/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Auditra/internal/api/middlewares"
	"github.com/markdave123-py/Auditra/internal/config"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/realtime"
	"github.com/markdave123-py/Auditra/internal/services"
)

type serverServices struct {
	users         *services.UserService
	documents     *services.DocumentService
	conversations *services.ConversationService
	activities    *services.ActivityService
	tokens        *services.TokenManager
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svc serverServices, hub *realtime.Hub, m *metrics.PipelineMetrics, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           newRouter(cfg, svc, hub, m, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.OrNop(log),
	}
}

func newRouter(cfg *config.Config, svc serverServices, hub *realtime.Hub, m *metrics.PipelineMetrics, log *logger.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(svc.users)
	userHandler := handlers.NewUserHandler(svc.users)
	docHandler := handlers.NewDocumentHandler(svc.documents, cfg.MaxUploadBytes)
	chatHandler := handlers.NewChatHandler(svc.conversations)
	activityHandler := handlers.NewActivityHandler(svc.activities)
	limiter := appMiddleware.NewUserRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// websocket upgrades must not sit behind the request timeout
	r.Handle("/ws", realtime.NewWSHandler(hub, svc.tokens.Verify, cfg.AllowedOrigins, log))

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(60 * time.Second))

		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(svc.tokens.Verify))

			protected.Get("/me", userHandler.Me)
			protected.Patch("/me", userHandler.UpdateMe)

			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{id}", docHandler.GetDocument)
			protected.Get("/documents/{id}/activities", docHandler.GetDocumentActivities)
			protected.Get("/activities", activityHandler.List)

			protected.Post("/conversations/active", chatHandler.Active)
			protected.Post("/conversations/{id}/close", chatHandler.Close)
			protected.Get("/conversations/{id}/messages", chatHandler.Messages)

			protected.Group(func(limited chi.Router) {
				limited.Use(limiter.Middleware)
				limited.Post("/documents/upload", docHandler.UploadDocument)
				limited.Post("/conversations/{id}/messages", chatHandler.Send)
			})
		})
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

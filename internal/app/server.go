package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/api/handlers"
	appMiddleware "github.com/MJ665/my-invest-mind-RAG-Application/internal/api/middlewares"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/config"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, chat *services.ChatService, mail core.Mailer) *Server {
	authHandler := handlers.NewAuthHandler(db, mail, cfg)
	chatHandler := handlers.NewChatHandler(chat)
	historyHandler := handlers.NewHistoryHandler(db)
	userHandler := handlers.NewUserHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	// Model streams can run long; keep the timeout generous.
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AppBaseURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// public endpoints
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Post("/auth/request-login-link", authHandler.RequestLoginLink)
		api.Post("/auth/verify-login-link", authHandler.VerifyLoginLink)
		api.Post("/auth/request-password-reset", authHandler.RequestPasswordReset)
		api.Post("/auth/reset-password", authHandler.ResetPassword)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Post("/chat", chatHandler.Chat)
			protected.Get("/history", historyHandler.List)
			protected.Delete("/history/{queryID}", historyHandler.Delete)
			protected.Get("/user/me", userHandler.Me)
			protected.Patch("/user/update", userHandler.Update)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

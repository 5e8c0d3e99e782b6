package presentation

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sglre6355/webhook-relay/internal/usecase"
)

//go:embed static/*
var staticFS embed.FS

const maxRequestBody = 1 << 20

// Server exposes the webhook use cases as same-origin JSON routes.
type Server struct {
	webhooks *usecase.WebhookUsecase
	spam     *usecase.SpamManager
	logger   *slog.Logger
	router   chi.Router
	http     *http.Server
}

// NewServer wires the use cases to HTTP routes.
func NewServer(webhooks *usecase.WebhookUsecase, spam *usecase.SpamManager, logger *slog.Logger) (*Server, error) {
	if webhooks == nil {
		return nil, fmt.Errorf("webhook use case cannot be nil")
	}
	if spam == nil {
		return nil, fmt.Errorf("spam manager cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		webhooks: webhooks,
		spam:     spam,
		logger:   logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxRequestBody))

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/*", http.FileServer(http.FS(staticSub)))
	r.Get("/healthz", s.handleHealth)

	r.Post("/verify-webhook", s.handleVerify)
	r.Post("/send-webhook", s.handleSend)
	r.Post("/update-webhook", s.handleUpdate)
	r.Post("/delete-webhook", s.handleDelete)
	r.Post("/webhook-info", s.handleInfo)
	r.Post("/compose-webhook", s.handleCompose)
	r.Post("/broadcast-webhook", s.handleBroadcast)
	r.Post("/parse-webhooks", s.handleParseWebhooks)

	r.Route("/spam", func(r chi.Router) {
		r.Post("/start", s.handleSpamStart)
		r.Get("/{sessionID}", s.handleSpamStatus)
		r.Post("/{sessionID}/stop", s.handleSpamStop)
	})

	s.router = r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server listening", slog.String("address", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, result{Success: false, Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

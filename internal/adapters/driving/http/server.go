package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/baumi-labs/baumi-core/docs"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	ownerID    string
	logger     *slog.Logger

	// Services
	kbService   driving.KnowledgeBaseService
	chatService driving.ChatService

	// Infrastructure
	store Pinger // knowledge base store
	lock  Pinger // distributed lock (optional)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	OwnerID        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		OwnerID:        "default-owner",
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server. lock may be nil.
func NewServer(
	cfg Config,
	kbService driving.KnowledgeBaseService,
	chatService driving.ChatService,
	store Pinger,
	lock Pinger,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		ownerID:     cfg.OwnerID,
		logger:      logger,
		kbService:   kbService,
		chatService: chatService,
		store:       store,
		lock:        lock,
	}
	s.setupRoutes()

	handler := NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	// No WriteTimeout: chat answers stream for as long as the model talks.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Knowledge base administration
	s.router.HandleFunc("GET /knowledge-bases", s.handleListKnowledgeBases)
	s.router.HandleFunc("POST /knowledge-bases", s.handleSyncKnowledgeBase)
	s.router.HandleFunc("GET /knowledge-bases/{id}/items", s.handleListItems)
	s.router.HandleFunc("DELETE /knowledge-bases/{id}", s.handleDeleteKnowledgeBase)

	// Visitor chat
	s.router.HandleFunc("POST /chat", s.handleChat)

	// API documentation
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr, "version", s.version)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			// stopped through Stop
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

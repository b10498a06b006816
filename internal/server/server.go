package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	_ "github.com/jackzampolin/adoread/docs/swagger" // registers the OpenAPI doc with swag
	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/assistant"
	"github.com/jackzampolin/adoread/internal/config"
	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/home"
	"github.com/jackzampolin/adoread/internal/kv"
	"github.com/jackzampolin/adoread/internal/llmcall"
	"github.com/jackzampolin/adoread/internal/metrics"
	"github.com/jackzampolin/adoread/internal/providers"
	"github.com/jackzampolin/adoread/internal/server/endpoints"
	"github.com/jackzampolin/adoread/internal/session"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// Server is the adoread HTTP server. It owns the SQLite database holding
// the LLM call ledger, the chat session registry and the provider registry.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	db         *sql.DB
	calls      *llmcall.Recorder
	registry   *providers.Registry
	assistant  *assistant.Service
	limiter    *limiter.Limiter
	metrics    *metrics.Recorder
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
	closed  bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Defaults apply when nil.
	ConfigManager *config.Manager
	// Home is the adoread home directory
	Home *home.Dir
	// DBPath overrides the SQLite database location (default: Home.DatabasePath())
	DBPath string
	// Registry overrides the provider registry built from config
	Registry *providers.Registry
	// Version is reported by /status
	Version string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a Server and opens its database.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		if cfg.Home == nil {
			return nil, errors.New("server needs a home directory or database path")
		}
		dbPath = cfg.Home.DatabasePath()
	}
	db, err := kv.OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	store, err := llmcall.NewStore(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Create provider registry
	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(appCfg.ToProviderRegistryConfig())
	}
	if cfg.ConfigManager != nil && cfg.Registry == nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	m := metrics.NewRecorder()
	calls := llmcall.NewRecorder(llmcall.RecorderConfig{Store: store, Logger: cfg.Logger})
	sessions := session.NewRegistry(session.Config{
		IdleTTL:     appCfg.SessionIdleTTL(),
		MaxSessions: appCfg.Sessions.MaxSessions,
		Logger:      cfg.Logger,
		OnEvict:     func(string) { m.SessionEvicted() },
	})
	svc := assistant.New(assistant.Config{
		DefineModel:      appCfg.Assistant.DefineModel,
		ChatModel:        appCfg.Assistant.ChatModel,
		SuggestModel:     appCfg.Assistant.SuggestModel,
		MaxPhraseWords:   appCfg.Assistant.MaxPhraseWords,
		MaxContextTokens: appCfg.Assistant.MaxContextTokens,
	}, assistant.Deps{
		Registry: registry,
		Sessions: sessions,
		Calls:    calls,
		Metrics:  m,
		Counter:  assistant.NewCounter(appCfg.Assistant.TokenEncoding, cfg.Logger),
		Logger:   cfg.Logger,
	})

	s := &Server{
		db:        db,
		calls:     calls,
		registry:  registry,
		assistant: svc,
		metrics:   m,
		logger:    cfg.Logger,
	}
	s.services = &svcctx.Services{
		Registry:      registry,
		ConfigManager: cfg.ConfigManager,
		Logger:        cfg.Logger,
		Home:          cfg.Home,
		Assistant:     svc,
		Ingester: &document.Ingester{
			Paginator: document.Paginator{WordsPerPage: appCfg.Defaults.WordsPerPage},
			MaxBytes:  appCfg.MaxUploadBytes(),
		},
		LLMCallStore: store,
		Metrics:      m,
	}
	if appCfg.RateLimit.Enabled && appCfg.RateLimit.Requests > 0 {
		s.limiter = limiter.New(memory.NewStore(), limiter.Rate{
			Period: appCfg.RateLimitPeriod(),
			Limit:  appCfg.RateLimit.Requests,
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = endpoints.NewRegistry(endpoints.Config{Version: cfg.Version})

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.handler = s.withServices(s.rateLimit(mux))

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start serves HTTP until the context is cancelled or the listener fails,
// then shuts down and releases the database.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	if s.closed {
		s.mu.Unlock()
		return errors.New("server closed")
	}
	s.running = true
	s.mu.Unlock()

	if !s.registry.Ready() {
		s.logger.Warn("no LLM provider configured; define, chat and feed will return 503")
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, then flushes pending call records.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	err := s.Close()
	s.logger.Info("server stopped")
	return err
}

// Close flushes the call ledger and closes the
// database. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.calls.Stop()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Assistant returns the assistant service.
func (s *Server) Assistant() *assistant.Service {
	return s.assistant
}

// Calls returns the LLM call recorder.
func (s *Server) Calls() *llmcall.Recorder {
	return s.calls
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit rejects /api requests over the per-client rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := s.limiter.Get(r.Context(), s.limiter.GetIPKey(r))
		if err != nil {
			s.logger.Error("rate limiter error", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			s.metrics.RateLimited(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireInit is middleware that ensures an LLM provider is available.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.assistant == nil || !s.registry.Ready() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no LLM provider configured"}`))
			return
		}
		next(w, r)
	}
}

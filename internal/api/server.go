// Package api provides the Bolder HTTP API: one-shot document annotation,
// settings, and live highlight sessions over websockets.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/internal/cache"
	"github.com/FocuswithJustin/Bolder/internal/logging"
	"github.com/FocuswithJustin/Bolder/internal/server"
	"github.com/FocuswithJustin/Bolder/internal/settings"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server serves the API. Create one with NewServer.
type Server struct {
	cfg      Config
	store    *settings.Store
	settings *cache.Snapshot[settings.Settings]
	results  *cache.LRU[string, annotation]
	hub      *Hub
	upgrader *websocket.Upgrader
	started  time.Time

	// ctx is the server lifetime; sessions derive from it.
	ctx context.Context
}

// NewServer validates cfg and builds a server backed by store.
func NewServer(cfg Config, store *settings.Store) (*Server, error) {
	if store == nil {
		return nil, errors.NewValidation("store", "settings store is required")
	}
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, errors.NewValidation("max_body_bytes", "must be positive")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, errors.NewValidation("tls", "TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return nil, fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return nil, fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	if cfg.WebSocket.MaxMessageSize <= 0 {
		cfg.WebSocket.MaxMessageSize = DefaultWebSocketSecurityConfig().MaxMessageSize
	}
	if len(cfg.WebSocket.AllowedOrigins) == 0 {
		cfg.WebSocket.AllowedOrigins = cfg.AllowedOrigins
	}

	return &Server{
		cfg:      cfg,
		store:    store,
		settings: cache.NewSnapshot[settings.Settings](cfg.SettingsTTL),
		results:  cache.NewLRU[string, annotation](cfg.Cache, annotationSize),
		hub:      NewHub(),
		upgrader: newUpgrader(cfg.WebSocket),
		started:  time.Now(),
		ctx:      context.Background(),
	}, nil
}

// sessionConfig is the configuration handed to each new session.
func (s *Server) sessionConfig() sessionConfig {
	return sessionConfig{
		engine:      s.cfg.Engine,
		messageRate: s.cfg.WebSocket.MaxMessageRate,
		loadSettings: func(ctx context.Context) (settings.Settings, error) {
			return s.settings.Load(func() (settings.Settings, error) {
				return s.store.Load(ctx)
			})
		},
	}
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/annotate", s.handleAnnotate)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/stylesheet.css", s.handleStylesheet)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/session", s.handleSession)

	return mux
}

// Handler starts the session hub and returns the full middleware chain.
// Sessions and the rate limiter's cleanup stop when ctx is done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.ctx = ctx
	go s.hub.Run(ctx)

	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())

	if s.cfg.Auth.Enabled {
		handler = AuthMiddleware(s.cfg.Auth, handler)
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"note", "API key required")
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests allowed")
	}

	if s.cfg.RateLimitRequests > 0 {
		rateLimiter := NewRateLimiter(ctx, RateLimiterConfig{
			RequestsPerMinute: s.cfg.RateLimitRequests,
			BurstSize:         s.cfg.RateLimitBurst,
		})
		handler = rateLimiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimitRequests,
			"burst_size", rateLimiter.config.BurstSize)
	}

	handler = server.TimingMiddleware(handler)

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	return logging.CombinedMiddleware(handler)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	protocol := "http"
	wsProtocol := "ws"
	if s.cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
		logging.Info("TLS enabled", "cert_file", server.AbsPath(s.cfg.TLS.CertFile))
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port, "websocket_protocol", wsProtocol)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Start builds a server from cfg and runs it until ctx is done.
func Start(ctx context.Context, cfg Config, store *settings.Store) error {
	s, err := NewServer(cfg, store)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

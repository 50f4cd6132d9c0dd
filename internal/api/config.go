package api

import (
	"time"

	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/internal/cache"
)

// Config holds server configuration.
type Config struct {
	Port              int
	Engine            engine.Config // engine settings for /annotate and sessions
	MaxBodyBytes      int64         // request body limit for /annotate and /settings
	RateLimitRequests int           // Requests per minute (0 = disabled)
	RateLimitBurst    int           // Burst size
	Auth              AuthConfig    // Authentication configuration
	TLS               TLSConfig     // TLS configuration
	AllowedOrigins    []string      // CORS and websocket allowed origins (empty = allow all)
	WebSocket         WebSocketSecurityConfig
	SettingsTTL       time.Duration // how long loaded settings are reused
	Cache             cache.Config  // annotation result cache
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

// DefaultConfig returns a configuration for local use.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		Engine:       engine.DefaultConfig(),
		MaxBodyBytes: 8 << 20,
		WebSocket:    DefaultWebSocketSecurityConfig(),
		SettingsTTL:  30 * time.Second,
		Cache:        cache.DefaultConfig(),
	}
}

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/Bolder/internal/logging"
)

// WebSocketSecurityConfig holds live-session security configuration.
type WebSocketSecurityConfig struct {
	// AllowedOrigins lists allowed Origin values. Empty or "*" allows all;
	// "*.example.com" allows subdomains of example.com.
	AllowedOrigins []string

	// MaxMessageRate is the maximum number of messages per second per session.
	MaxMessageRate int

	// MaxMessageSize is the maximum message size in bytes. Load messages
	// carry whole documents, so this is much larger than a chat-style limit.
	MaxMessageSize int64

	// MaxSessions caps concurrent sessions (0 = unlimited).
	MaxSessions int
}

// DefaultWebSocketSecurityConfig returns the default session limits.
func DefaultWebSocketSecurityConfig() WebSocketSecurityConfig {
	return WebSocketSecurityConfig{
		MaxMessageRate: 10,
		MaxMessageSize: 1 << 20,
		MaxSessions:    64,
	}
}

// newUpgrader returns an upgrader that enforces the origin policy.
func newUpgrader(config WebSocketSecurityConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     CheckOriginWithConfig(config),
	}
}

// isOriginAllowed checks origin against the allowed list. Requests without
// an Origin header come from non-browser clients and are left to the API
// key check.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" || len(allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
		// *.example.com matches https://a.example.com but not https://badexample.com.
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			host := origin
			if i := strings.Index(host, "://"); i >= 0 {
				host = host[i+3:]
			}
			if strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}

	return false
}

// CheckOriginWithConfig creates a CheckOrigin function based on security config.
func CheckOriginWithConfig(config WebSocketSecurityConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		allowed := isOriginAllowed(origin, config.AllowedOrigins)
		if !allowed {
			logging.SecurityEvent("websocket_origin_rejected", "session",
				"origin", origin,
				"ip_address", getClientIP(r))
		}
		return allowed
	}
}

// ValidateAuthForWebSocket checks authentication before the upgrade.
// Browsers cannot set headers on a websocket handshake, so the key may also
// come from the api_key query parameter. Returns "" on success.
func ValidateAuthForWebSocket(r *http.Request, auth AuthConfig) string {
	if !auth.Enabled {
		return ""
	}

	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
		if apiKey == "" {
			return "Missing API key (X-API-Key header or api_key query parameter)"
		}
	}

	if !constantTimeCompare(apiKey, auth.APIKey) {
		return "Invalid API key"
	}

	return ""
}

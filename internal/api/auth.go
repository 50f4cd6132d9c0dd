package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"slices"

	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/internal/logging"
)

// minAPIKeyLen is the shortest API key accepted when auth is enabled.
const minAPIKeyLen = 16

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// publicPaths are reachable without an API key.
var publicPaths = []string{"/", "/health", "/stylesheet.css"}

// selfAuthPaths check the key in their handler, which also accepts it as a
// query parameter.
var selfAuthPaths = []string{"/session"}

// AuthMiddleware checks for API key authentication when enabled.
// Requests must include an X-API-Key header with the configured key.
// Public endpoints always bypass authentication.
func AuthMiddleware(authCfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authCfg.Enabled || slices.Contains(publicPaths, r.URL.Path) || slices.Contains(selfAuthPaths, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
			return
		}

		if !constantTimeCompare(apiKey, authCfg.APIKey) {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateAuthConfig validates the authentication configuration.
func ValidateAuthConfig(cfg AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		return errors.NewValidation("api_key", "required when authentication is enabled")
	}
	if len(cfg.APIKey) < minAPIKeyLen {
		return errors.NewValidation("api_key", fmt.Sprintf("must be at least %d characters (got %d)", minAPIKeyLen, len(cfg.APIKey)))
	}
	return nil
}

// constantTimeCompare compares two strings in time independent of where
// they differ.
func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

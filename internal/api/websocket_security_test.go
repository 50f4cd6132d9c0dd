package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultWebSocketSecurityConfig(t *testing.T) {
	config := DefaultWebSocketSecurityConfig()

	if len(config.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want empty (inherit CORS origins)", config.AllowedOrigins)
	}
	if config.MaxMessageRate <= 0 {
		t.Error("Expected positive max message rate")
	}
	if config.MaxMessageSize < 1<<20 {
		t.Errorf("MaxMessageSize = %d, want room for whole documents", config.MaxMessageSize)
	}
	if config.MaxSessions <= 0 {
		t.Error("Expected a session cap")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		expected       bool
	}{
		{"no origin header", "", []string{"https://example.com"}, true},
		{"no allow list", "https://anything.test", nil, true},
		{"wildcard", "https://example.com", []string{"*"}, true},
		{"exact match", "https://example.com", []string{"https://example.com"}, true},
		{"different origin", "https://evil.com", []string{"https://example.com"}, false},
		{"subdomain wildcard", "https://app.example.com", []string{"*.example.com"}, true},
		{"nested subdomain", "https://a.b.example.com", []string{"*.example.com"}, true},
		{"subdomain wildcard, other domain", "https://example.org", []string{"*.example.com"}, false},
		{"subdomain wildcard, lookalike", "https://badexample.com", []string{"*.example.com"}, false},
		{"second entry matches", "https://app2.example.com", []string{"https://app1.example.com", "https://app2.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOriginAllowed(tt.origin, tt.allowedOrigins); got != tt.expected {
				t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowedOrigins, got, tt.expected)
			}
		})
	}
}

func TestCheckOriginWithConfig(t *testing.T) {
	check := CheckOriginWithConfig(WebSocketSecurityConfig{AllowedOrigins: []string{"https://reader.test"}})

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Origin", "https://reader.test")
	if !check(req) {
		t.Error("expected allowed origin to pass")
	}

	req.Header.Set("Origin", "https://evil.test")
	if check(req) {
		t.Error("expected other origin to be rejected")
	}
}

func TestValidateAuthForWebSocket(t *testing.T) {
	enabled := AuthConfig{Enabled: true, APIKey: testAPIKey}
	tests := []struct {
		name    string
		auth    AuthConfig
		target  string
		header  string
		wantErr bool
	}{
		{"disabled", AuthConfig{}, "/session", "", false},
		{"header key", enabled, "/session", testAPIKey, false},
		{"query key", enabled, "/session?api_key=" + testAPIKey, "", false},
		{"missing key", enabled, "/session", "", true},
		{"wrong header", enabled, "/session", "wrong-key-000000000", true},
		{"wrong query", enabled, "/session?api_key=nope", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			msg := ValidateAuthForWebSocket(req, tt.auth)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidateAuthForWebSocket() = %q, wantErr %v", msg, tt.wantErr)
			}
		})
	}
}

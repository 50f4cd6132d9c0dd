package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/internal/logging"
	"github.com/FocuswithJustin/Bolder/internal/settings"
)

// Version is reported by the root and health endpoints.
var Version = "dev"

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Cache    any    `json:"cache"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Bolder API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"POST /annotate",
			"GET /settings",
			"PUT /settings",
			"DELETE /settings",
			"GET /stylesheet.css",
			"GET /sessions",
			"WS /session",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.hub.Count(),
		Cache:    s.results.Stats(),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := s.loadSettings(r)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, http.StatusOK, st)

	case http.MethodPut:
		st, err := s.store.Load(r.Context())
		if err != nil {
			respondErr(w, r, err)
			return
		}
		// Decoding over the stored values makes partial updates work.
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&st); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid settings body: "+err.Error())
			return
		}
		if st.SiteList == nil {
			st.SiteList = []string{}
		}
		if err := s.store.Save(r.Context(), st); err != nil {
			respondErr(w, r, err)
			return
		}
		s.settings.Invalidate()
		logging.InfoContext(r.Context(), "settings_saved", "default_enabled", st.DefaultEnabled, "sites", len(st.SiteList))
		respond(w, http.StatusOK, st)

	case http.MethodDelete:
		if err := s.store.Reset(r.Context()); err != nil {
			respondErr(w, r, err)
			return
		}
		s.settings.Invalidate()
		respond(w, http.StatusOK, settings.Defaults())

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET, PUT and DELETE are allowed")
	}
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	st, err := s.loadSettings(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(settings.Stylesheet(st)))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	infos := s.hub.Sessions()
	response := APIResponse{
		Success: true,
		Data:    infos,
		Meta: &APIMeta{
			Total:     len(infos),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// loadSettings returns the stored settings, reusing a recent snapshot.
func (s *Server) loadSettings(r *http.Request) (settings.Settings, error) {
	return s.settings.Load(func() (settings.Settings, error) {
		return s.store.Load(r.Context())
	})
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// respondErr maps a typed error onto a status code.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	var parseErr *errors.ParseError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", err.Error())
	case errors.As(err, &parseErr):
		respondError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error())
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusUnprocessableEntity, "UNSUPPORTED", err.Error())
	default:
		logging.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "error", err.Error())
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

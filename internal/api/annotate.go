package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/core/highlight"
	"github.com/FocuswithJustin/Bolder/internal/cache"
	"github.com/FocuswithJustin/Bolder/internal/logging"
	"github.com/FocuswithJustin/Bolder/internal/server"
	"github.com/FocuswithJustin/Bolder/internal/settings"
)

// AnnotateRequest is the JSON form of an /annotate body. Raw HTML or XHTML
// bodies are accepted too, selected by Content-Type.
type AnnotateRequest struct {
	HTML  string `json:"html"`
	XHTML bool   `json:"xhtml,omitempty"`
	// Host, when set, applies the stored site settings: highlighting may be
	// disabled for the host and the minimum block size is taken from them.
	Host string `json:"host,omitempty"`
}

// AnnotateResult is the /annotate JSON response.
type AnnotateResult struct {
	engine.Report
	Enabled bool `json:"enabled"`
}

// annotation is what the result cache holds: the report, and the rendered
// document for format=html requests.
type annotation struct {
	result AnnotateResult
	html   []byte
	size   int64
}

func annotationSize(a annotation) int64 { return a.size }

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !server.ValidateContentType(contentType, server.DocumentContentTypes) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Body must be HTML, XHTML or JSON")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "html" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "format must be json or html")
		return
	}

	req, err := s.readAnnotateRequest(w, r, contentType)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if host := r.URL.Query().Get("host"); host != "" {
		req.Host = host
	}

	cfg := s.cfg.Engine
	var st settings.Settings
	enabled := true
	if req.Host != "" {
		if st, err = s.loadSettings(r); err != nil {
			respondErr(w, r, err)
			return
		}
		enabled = st.EnabledFor(req.Host)
		cfg.MinWordsInBlock = st.MinWordsInBlock
	}

	cfgJSON, _ := json.Marshal(cfg)
	key := cache.Key([]byte(req.HTML), []byte(format), []byte(strconv.FormatBool(req.XHTML)),
		[]byte(strconv.FormatBool(enabled)), cfgJSON, []byte(st.DarkenBg), []byte(st.LightenBg))
	if a, ok := s.results.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		s.writeAnnotation(w, format, a)
		return
	}

	a, err := annotate(cfg, req, format, enabled, st)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.results.Put(key, a)
	logging.InfoContext(r.Context(), "document_annotated",
		"digest", a.result.Digest,
		"regions", len(a.result.Regions),
		"units", a.result.Stats.Units,
		"enabled", enabled)
	w.Header().Set("X-Cache", "MISS")
	s.writeAnnotation(w, format, a)
}

func (s *Server) readAnnotateRequest(w http.ResponseWriter, r *http.Request, contentType string) (AnnotateRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return AnnotateRequest{}, err
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json":
		var req AnnotateRequest
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
		}
		return req, nil
	case "text/html":
		return AnnotateRequest{HTML: string(body)}, nil
	default:
		return AnnotateRequest{HTML: string(body), XHTML: true}, nil
	}
}

// annotate runs a fresh engine over the request document.
func annotate(cfg engine.Config, req AnnotateRequest, format string, enabled bool, st settings.Settings) (annotation, error) {
	var (
		doc *dom.Document
		err error
	)
	if req.XHTML {
		doc, err = dom.ParseXHTMLBytes([]byte(req.HTML))
	} else {
		doc, err = dom.ParseHTMLString(req.HTML)
	}
	if err != nil {
		return annotation{}, err
	}

	a := annotation{result: AnnotateResult{Enabled: enabled}}
	opts := dom.RenderOptions{}
	if enabled {
		e, err := engine.Annotate(cfg, doc)
		if err != nil {
			return annotation{}, err
		}
		a.result.Report = e.Report()
		if st.DarkenBg == "" {
			st = settings.Defaults()
		}
		opts = e.Marks(settings.Stylesheet(st))
	}
	a.result.Digest = cache.Sum([]byte(req.HTML))
	if a.result.Regions == nil {
		a.result.Regions = []highlight.WireRegion{}
	}

	if format == "html" {
		var buf bytes.Buffer
		if err := dom.Render(&buf, doc.Root, opts); err != nil {
			return annotation{}, errors.NewIO("render", "", err)
		}
		a.html = buf.Bytes()
	}
	data, _ := json.Marshal(a.result)
	a.size = int64(len(data) + len(a.html))
	return a, nil
}

func (s *Server) writeAnnotation(w http.ResponseWriter, format string, a annotation) {
	if format == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Security-Policy", server.DocumentCSPConfig().BuildCSPHeader())
		w.WriteHeader(http.StatusOK)
		w.Write(a.html)
		return
	}
	respond(w, http.StatusOK, a.result)
}

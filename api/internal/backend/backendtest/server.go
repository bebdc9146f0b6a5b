// Package backendtest runs an in-process stand-in for the generation
// backend so front-end packages can be tested end to end.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
)

// Reply is a canned HTTP answer. Raw, when set, is written verbatim
// instead of JSON-encoding Body.
type Reply struct {
	Status int
	Body   any
	Raw    string
}

// Upload is what the server saw on a generation request.
type Upload struct {
	Path     string
	Filename string
	MIME     string
	Data     []byte
	StyleID  string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	styles   Reply
	generate func(Upload) Reply
	uploads  []Upload
	gate     chan struct{}

	StyleCalls    atomic.Int64
	GenerateCalls atomic.Int64
}

// New starts a server answering /api/styles with an empty catalog and
// every generation with a fixed text for the variant's result field.
func New(variant backend.Variant) *Server {
	s := &Server{
		styles: Reply{Status: http.StatusOK, Body: []backend.Style{}},
		generate: func(Upload) Reply {
			return Reply{Status: http.StatusOK, Body: map[string]string{variant.ResultField(): "ok"}}
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/styles", s.handleStyles)
	mux.HandleFunc("/api/generate-report", s.handleGenerate)
	mux.HandleFunc("/api/generate-story", s.handleGenerate)
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) SetStyles(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles = r
}

func (s *Server) SetGenerate(fn func(Upload) Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generate = fn
}

// Hold makes generation requests block until Release is called.
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "GET only"})
		return
	}
	s.StyleCalls.Add(1)
	s.mu.Lock()
	rep := s.styles
	s.mu.Unlock()
	write(w, rep)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "POST only"})
		return
	}
	s.GenerateCalls.Add(1)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad multipart: " + err.Error()})
		return
	}
	up := Upload{Path: r.URL.Path, StyleID: r.FormValue(backend.FieldStyleID)}
	f, hdr, err := r.FormFile(backend.FieldFile)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}
	up.Data, _ = io.ReadAll(f)
	_ = f.Close()
	up.Filename = hdr.Filename
	up.MIME = hdr.Header.Get("Content-Type")

	s.mu.Lock()
	s.uploads = append(s.uploads, up)
	gen := s.generate
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	write(w, gen(up))
}

func write(w http.ResponseWriter, rep Reply) {
	status := rep.Status
	if status == 0 {
		status = http.StatusOK
	}
	if rep.Raw != "" || rep.Body == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, rep.Raw)
		return
	}
	writeJSON(w, status, rep.Body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

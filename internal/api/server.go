package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/uvb/internal/metrics"
	"github.com/ajitpratap0/uvb/internal/registry"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Counters is the part of the counter registry the server needs.
// *registry.Store satisfies it.
type Counters interface {
	Register(name string) (registry.Key, error)
	Increment(name string) (uint64, error)
	Snapshot() []registry.Entry
}

// Server is the HTTP front end of the counter registry.
type Server struct {
	store  Counters
	logger *slog.Logger
}

// NewServer creates a new Server over st.
func NewServer(st Counters, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		logger: logger,
	}
}

// Handler returns an http.Handler with all routes registered.
//
// The dispatcher owns every path that is not one of the read-only routes
// below, including unclean ones like "//alice", so routing is done here
// rather than through http.ServeMux and its path-cleaning redirects.
func (s *Server) Handler() http.Handler {
	reads := map[string]http.Handler{
		"/healthz":     http.HandlerFunc(s.handleHealthz),
		"/v1/counters": http.HandlerFunc(s.handleCounters),
		"/metrics":     metrics.Handler(),
	}

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if h, ok := reads[r.URL.Path]; ok {
				h.ServeHTTP(w, r)
				return
			}
		}
		s.writeReply(w, s.Dispatch(r.Method, r.URL.Path))
	})

	return s.requestID(promhttp.InstrumentHandlerCounter(metrics.RequestsTotal, root))
}

// --- middleware ---

// requestID tags every request with an ID, reusing the caller's if present.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("handled request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// --- read-only handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CounterView is one counter in the JSON listing.
type CounterView struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
	Rate  uint64 `json:"rate"`
}

// CountersResponse is returned by GET /v1/counters.
type CountersResponse struct {
	Counters []CounterView `json:"counters"`
	Leader   string        `json:"leader,omitempty"`
	Total    int           `json:"total"`
}

func (s *Server) handleCounters(w http.ResponseWriter, _ *http.Request) {
	entries := s.store.Snapshot()
	resp := CountersResponse{
		Counters: make([]CounterView, 0, len(entries)),
		Total:    len(entries),
	}
	for i := range entries {
		resp.Counters = append(resp.Counters, CounterView{
			Name:  entries[i].Name,
			Count: entries[i].Count,
			Rate:  entries[i].Rate,
		})
	}
	if leader, ok := registry.Leader(entries); ok {
		resp.Leader = leader.Name
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// writeReply writes a dispatcher reply.
func (s *Server) writeReply(w http.ResponseWriter, rep Reply) {
	if rep.Allow != "" {
		w.Header().Set("Allow", rep.Allow)
	}
	contentType := rep.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(rep.Status)
	if _, err := w.Write([]byte(rep.Body)); err != nil {
		s.logger.Debug("failed to write reply", "error", err)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

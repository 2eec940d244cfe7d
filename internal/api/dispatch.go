// Package api implements the HTTP request protocol of the counter registry.
package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/ajitpratap0/uvb/internal/metrics"
	"github.com/ajitpratap0/uvb/internal/registry"
	"github.com/ajitpratap0/uvb/pkg/tokenizer"
)

// Reply is the dispatcher's answer to one request.
type Reply struct {
	Status      int
	Body        string
	ContentType string
	Allow       string
}

func plain(status int, body string) Reply {
	return Reply{Status: status, Body: body + "\n"}
}

// Dispatch maps a request method and decoded path to exactly one reply.
//
//	GET|HEAD /                 snapshot page
//	any other method on /      403
//	POST /{name}               increment
//	POST /register/{name}      register
//	non-POST elsewhere         405
func (s *Server) Dispatch(method, path string) Reply {
	if path == "/" || path == "" {
		return s.display(method)
	}

	if method != http.MethodPost {
		rep := plain(http.StatusMethodNotAllowed, "Method Not Allowed")
		rep.Allow = http.MethodPost
		return rep
	}

	// At most two segments are meaningful; a third is enough to answer 404.
	segs, err := tokenizer.SplitN(path, 3)
	if err != nil {
		s.logger.Debug("rejecting malformed path", "path", path, "error", err)
		return plain(http.StatusInternalServerError, "Internal Server Error")
	}

	switch {
	case len(segs) == 1:
		return s.increment(segs[0])
	case len(segs) == 2 && segs[0] == "register":
		return s.register(segs[1])
	default:
		return plain(http.StatusNotFound, "Not Found")
	}
}

// increment answers POST /{name}. A counter at its maximum is refused with
// 500 "Counter Overflow" and an error log; the process keeps serving the
// other counters rather than exiting.
func (s *Server) increment(name string) Reply {
	_, err := s.store.Increment(name)
	switch {
	case err == nil:
		metrics.IncrementTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return plain(http.StatusOK, "OK")
	case errors.Is(err, registry.ErrNotFound):
		metrics.IncrementTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return plain(http.StatusNotFound, "User not Found")
	case errors.Is(err, registry.ErrOverflow):
		metrics.IncrementTotal.WithLabelValues(metrics.OutcomeOverflow).Inc()
		s.logger.Error("refusing increment that would overflow counter", "name", name, "error", err)
		return plain(http.StatusInternalServerError, "Counter Overflow")
	default:
		s.logger.Error("failed to increment counter", "name", name, "error", err)
		return plain(http.StatusInternalServerError, "Internal Server Error")
	}
}

func (s *Server) register(name string) Reply {
	_, err := s.store.Register(name)
	switch {
	case err == nil:
		metrics.RegisterTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		metrics.LiveCounters.Inc()
		s.logger.Info("registered counter", "name", name)
		return plain(http.StatusCreated, "User Created")
	case errors.Is(err, registry.ErrAlreadyExists):
		metrics.RegisterTotal.WithLabelValues(metrics.OutcomeExists).Inc()
		return plain(http.StatusBadRequest, "User Already Exists")
	case errors.Is(err, registry.ErrKeyCollision):
		metrics.RegisterTotal.WithLabelValues(metrics.OutcomeCollision).Inc()
		s.logger.Warn("counter name collides with a registered name", "name", name, "error", err)
		return plain(http.StatusConflict, "Name Unavailable")
	default:
		s.logger.Error("failed to register counter", "name", name, "error", err)
		return plain(http.StatusInternalServerError, "Internal Server Error")
	}
}

func (s *Server) display(method string) Reply {
	if method != http.MethodGet && method != http.MethodHead {
		return plain(http.StatusForbidden, "Not Allowed")
	}

	var buf bytes.Buffer
	if err := renderPage(&buf, s.store.Snapshot()); err != nil {
		s.logger.Error("failed to render counters page", "error", err)
		return plain(http.StatusInternalServerError, "Internal Server Error")
	}
	return Reply{
		Status:      http.StatusOK,
		Body:        buf.String(),
		ContentType: "text/html; charset=utf-8",
	}
}

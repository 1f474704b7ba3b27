package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/searchmesh/core"
)

// ErrorEnvelope is the JSON body of a failed request.
type ErrorEnvelope struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (s *Server) writeError(w http.ResponseWriter, reqID string, err error) {
	kind := core.KindOf(err, core.KindInternal)
	status := kind.HTTPStatus()

	msg := err.Error()
	var ce *core.Error
	if errors.As(err, &ce) && ce.Message != "" {
		msg = ce.Message
	}
	if kind == core.KindInternal {
		msg = "an unexpected error occurred"
	}

	level := s.opts.Logger.Warn
	if status >= http.StatusInternalServerError {
		level = s.opts.Logger.Error
	}
	level("http.request.failed", "request_id", reqID, "kind", string(kind), "status", status, "error", err.Error())

	w.Header().Set("X-Error-Code", kind.Code())
	w.Header().Set("Cache-Control", "no-store, must-revalidate")
	writeJSON(w, status, ErrorEnvelope{
		Error:     msg,
		Code:      kind.Code(),
		Status:    status,
		Timestamp: s.opts.Now().UTC(),
		RequestID: reqID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type requestIDKey struct{}

// withRequestID assigns every request an id, reusing a valid incoming
// X-Request-ID, and echoes it in the response headers.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

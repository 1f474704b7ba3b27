package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/orchestrator"
)

// ChatMessage is one entry of the conversation history.
type ChatMessage struct {
	Role        string            `json:"role" validate:"required,oneof=user assistant tool"`
	Content     string            `json:"content"`
	Attachments []core.Attachment `json:"attachments,omitempty" validate:"dive"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Mode     string        `json:"mode" validate:"required"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r.Context())

	req, err := s.decodeChat(w, r)
	if err != nil {
		s.writeError(w, reqID, err)
		return
	}

	start := time.Now()
	events, err := s.runner.Run(r.Context(), orchestrator.Request{
		Mode:     mode.ID(req.Mode),
		Messages: toContents(req.Messages),
		TurnID:   reqID,
	})
	if err != nil {
		s.writeError(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	var (
		writeErr error
		count    int
	)
	for ev := range events {
		if writeErr != nil {
			continue
		}
		if writeErr = enc.Encode(ev); writeErr != nil {
			s.opts.Logger.Warn("http.chat.write_failed", "request_id", reqID, "error", writeErr.Error())
			continue
		}
		count++
		if flusher != nil {
			flusher.Flush()
		}
	}

	s.opts.Logger.Info("http.chat.complete",
		"request_id", reqID,
		"mode", req.Mode,
		"events", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (*ChatRequest, error) {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req ChatRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.NewError(core.KindValidation, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, core.WrapError(core.KindValidation, "invalid JSON body", err)
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	for _, m := range req.Messages {
		for _, a := range m.Attachments {
			if err := a.Validate(); err != nil {
				return nil, err
			}
		}
	}
	return &req, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.WrapError(core.KindValidation, "invalid request", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return core.NewError(core.KindValidation, "invalid request: "+strings.Join(fields, "; "))
}

func toContents(msgs []ChatMessage) []core.Content {
	out := make([]core.Content, 0, len(msgs))
	for _, m := range msgs {
		parts := make([]core.Part, 0, 1+len(m.Attachments))
		if m.Content != "" {
			parts = append(parts, core.TextPart{Text: m.Content})
		}
		for _, a := range m.Attachments {
			parts = append(parts, core.FilePart{Attachment: a})
		}
		out = append(out, core.Content{Role: m.Role, Parts: parts})
	}
	return out
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type chatResponse struct {
	PromptID domain.PromptID    `json:"prompt_id"`
	Answer   string             `json:"answer,omitempty"`
	Steps    int                `json:"steps"`
	Tools    []string           `json:"tools,omitempty"`
	Failure  *domain.Failure    `json:"failure,omitempty"`
	Events   []domain.StepEvent `json:"events"`
}

// handleChat submits a prompt to the bridge and waits for its terminal event
// on the bus. POST /v1/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, domain.ErrEmptyPrompt.Error())
		return
	}

	prompt := domain.NewPrompt(req.Prompt)

	// Subscribe before submitting so no event is missed
	events, unsub := s.eventBus.Subscribe(prompt.ID)
	defer unsub()

	if err := s.bridge.Submit(prompt); err != nil {
		if errors.Is(err, domain.ErrBridgeClosed) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("prompt submitted", "prompt_id", prompt.ID, "stream", req.Stream, "queued", s.bridge.Queued())

	if req.Stream {
		s.streamChat(w, r, events)
		return
	}

	resp := chatResponse{PromptID: prompt.ID, Events: []domain.StepEvent{}}
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Warn("client went away before the answer", "prompt_id", prompt.ID)
			return
		case evt, ok := <-events:
			if !ok {
				writeError(w, http.StatusServiceUnavailable, "event stream closed")
				return
			}
			switch evt.Type {
			case services.EventTypeStep:
				resp.Events = append(resp.Events, *evt.Step)
			case services.EventTypeAnswer, services.EventTypeFailure:
				res := evt.Response
				resp.Answer = res.Text
				resp.Steps = res.Steps
				resp.Tools = res.Tools
				resp.Failure = res.Failure
				writeJSON(w, statusFor(res.Failure), resp)
				return
			}
		}
	}
}

// streamChat relays the prompt's events as SSE until the terminal one.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, events <-chan services.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			flusher.Flush()
			if evt.Type != services.EventTypeStep {
				return
			}
		}
	}
}

// statusFor maps a failure to the HTTP status of a non-streamed chat reply.
func statusFor(f *domain.Failure) int {
	switch {
	case f == nil:
		return http.StatusOK
	case f.Kind == domain.FailureTransport:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// GET /v1/chat/history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	h := s.chat.History()
	system := ""
	if m, ok := h.System(); ok {
		system = m.Content
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": s.chat.ConversationID(),
		"system":          system,
		"messages":        h.Messages(),
		"count":           h.Len(),
	})
}

// DELETE /v1/chat/history
func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Reset(r.Context()); err != nil {
		s.logger.Error("failed to reset history", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

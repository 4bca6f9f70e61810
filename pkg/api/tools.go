package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const toolRunTimeout = 30 * time.Second

// toolDTO is the JSON representation of a tool (Execute func is excluded).
type toolDTO struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  domain.ToolParameters `json:"parameters"`
}

// handleListTools returns all registered tools with their schemas.
// GET /v1/tools
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.resolver.Tools()
	dtos := make([]toolDTO, 0, len(tools))
	for _, t := range tools {
		dtos = append(dtos, toolDTO{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": dtos,
		"count": len(dtos),
	})
}

// handleRunTool resolves a tool call exactly like one proposed by the model.
// POST /v1/tools/{name}/run
// Body: {"arguments": {...}}
func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	toolName := r.PathValue("name")
	if toolName == "" {
		writeError(w, http.StatusBadRequest, "missing tool name")
		return
	}

	var body struct {
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), toolRunTimeout)
	defer cancel()

	startTime := time.Now()
	res := s.resolver.Resolve(ctx, domain.ToolCallDecision(toolName, string(body.Arguments)))
	elapsed := time.Since(startTime).Milliseconds()

	if !res.Executed() {
		failure := domain.FailureFromError(res.AsError())
		writeJSON(w, toolStatus(res.Kind), map[string]interface{}{
			"ok":          false,
			"tool":        toolName,
			"failure":     failure,
			"duration_ms": elapsed,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"tool":        toolName,
		"result":      res.Result,
		"duration_ms": elapsed,
	})
}

func toolStatus(kind domain.ResolutionKind) int {
	switch kind {
	case domain.ResolutionToolNotFound:
		return http.StatusNotFound
	case domain.ResolutionArgumentsParseError:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultOllamaHost = "http://localhost:11434"

// OllamaChatURL turns an Ollama host into its OpenAI-compatible base URL.
// Accepts the host with or without a trailing /v1.
func OllamaChatURL(host string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(host), "/")
	if trimmed == "" {
		trimmed = DefaultOllamaHost
	}
	trimmed = strings.TrimSuffix(trimmed, "/v1")
	return trimmed + "/v1"
}

type tagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

// LocalModel is a model installed in the local Ollama instance
type LocalModel struct {
	Name       string
	SizeBytes  int64
	ModifiedAt time.Time
}

// ListLocalModels asks the Ollama native API which models are installed.
func ListLocalModels(ctx context.Context, client *http.Client, host string) ([]LocalModel, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimSuffix(OllamaChatURL(host), "/v1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := make([]LocalModel, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, LocalModel{Name: m.Name, SizeBytes: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return out, nil
}

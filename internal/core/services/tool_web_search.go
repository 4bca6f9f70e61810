package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const (
	DefaultTavilyURL     = "https://api.tavily.com/search"
	tavilyTimeout        = 15 * time.Second
	defaultSearchResults = 5
)

type TavilyConfig struct {
	APIKey string
	URL    string
}

type TavilySearchInput struct {
	Query      string `json:"query" jsonschema_description:"Search query string to send to tavily"`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to request (1-10)"`
}

// NewTavilySearchTool searches the web through the tavily API. Failures are
// returned as {"error": ...} values.
func NewTavilySearchTool(cfg TavilyConfig, client *http.Client) *domain.Tool {
	if cfg.URL == "" {
		cfg.URL = DefaultTavilyURL
	}
	if client == nil {
		client = &http.Client{Timeout: tavilyTimeout}
	}

	return &domain.Tool{
		Name:        "tavily_search",
		Description: "Perform a web search via tavily API and return JSON results (pass query, optional max_results).",
		Parameters:  schemaFor[TavilySearchInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[TavilySearchInput](params)
			if err != nil {
				return nil, err
			}
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return map[string]interface{}{"error": "query is required string"}, nil
			}
			if in.MaxResults == 0 {
				in.MaxResults = defaultSearchResults
			}

			answer, err := tavilySearch(ctx, client, cfg, query, in.MaxResults)
			if err != nil {
				return map[string]interface{}{"error": err.Error()}, nil
			}
			return map[string]interface{}{"answer": answer}, nil
		},
	}
}

func tavilySearch(ctx context.Context, client *http.Client, cfg TavilyConfig, query string, maxResults int) (string, error) {
	if cfg.APIKey == "" {
		return "", errors.New("tavily API key not set")
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 10 {
		maxResults = 10
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":                      query,
		"max_results":                maxResults,
		"auto_parameters":            false,
		"search_depth":               "basic",
		"include_answer":             true,
		"include_raw_content":        false,
		"include_images":             false,
		"include_image_descriptions": false,
		"include_favicon":            false,
		"topic":                      "general",
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, tavilyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("User-Agent", "toolchat/0.1")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending tavily search request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading tavily response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(text))
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(text, &parsed); err != nil {
		raw, _ := json.Marshal(map[string]string{"raw": string(text)})
		return string(raw), nil
	}
	if answer, ok := parsed["answer"].(string); ok {
		return answer, nil
	}
	return string(text), nil
}

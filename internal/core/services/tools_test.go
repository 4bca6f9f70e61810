package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFor(t *testing.T) {
	params := schemaFor[AddInput]()
	assert.Equal(t, "object", params.Type)
	assert.ElementsMatch(t, []string{"x", "y"}, params.Required)

	x, ok := params.Properties["x"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "integer", x["type"])
	assert.Equal(t, "First integer to add", x["description"])

	// omitempty fields are optional
	search := schemaFor[TavilySearchInput]()
	assert.Equal(t, []string{"query"}, search.Required)

	for _, empty := range []domain.ToolParameters{schemaFor[GetConstantsInput](), schemaFor[struct{}]()} {
		assert.Equal(t, "object", empty.Type)
		assert.NotNil(t, empty.Properties)
		assert.Empty(t, empty.Required)
	}

	// unnamed structs reflect inline
	anon := schemaFor[struct {
		N int `json:"n"`
	}]()
	assert.Equal(t, []string{"n"}, anon.Required)
}

func TestBasicTools(t *testing.T) {
	ctx := context.Background()

	out, err := NewGetConstantsTool(42, 7).Execute(ctx, map[string]interface{}{})
	require.NoError(t, err)
	raw, _ := EncodeResult(out)
	assert.JSONEq(t, `{"X":42,"Y":7}`, raw)

	out, err = NewAddTool().Execute(ctx, map[string]interface{}{"x": float64(-4), "y": float64(10)})
	require.NoError(t, err)
	raw, _ = EncodeResult(out)
	assert.JSONEq(t, `{"sum":6}`, raw)
}

func TestNumberGuessTool(t *testing.T) {
	guess := func(tool *domain.Tool, n int) string {
		out, err := tool.Execute(context.Background(), map[string]interface{}{"guess": float64(n)})
		require.NoError(t, err)
		return out.(map[string]interface{})["result"].(string)
	}

	tool := NewNumberGuessTool(42, 100)
	assert.Equal(t, "low", guess(tool, 10))
	assert.Equal(t, "high", guess(tool, 77))
	assert.Equal(t, "correct", guess(tool, 42))
	assert.Equal(t, "out_of_range", guess(tool, 0))
	assert.Equal(t, "out_of_range", guess(tool, 101))

	// target is clamped into 1..max
	clamped := NewNumberGuessTool(500, 50)
	assert.Equal(t, "correct", guess(clamped, 50))
	assert.Equal(t, "out_of_range", guess(clamped, 51))

	tiny := NewNumberGuessTool(0, 0)
	assert.Equal(t, "correct", guess(tiny, 1))
}

func TestNewDefaultRegistry(t *testing.T) {
	cfg := domain.DefaultConfig().Tools
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	reg, err := NewDefaultRegistry(testLogger(), ToolDeps{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "get_constants", "number_guess", "read_docs_file", "tavily_search"}, reg.Names())

	reg, err = NewDefaultRegistry(testLogger(), ToolDeps{Config: cfg, Files: newMemRepo()})
	require.NoError(t, err)
	assert.Equal(t, 8, reg.Len())

	cfg.Enabled = []string{"add", "store_list", "missing"}
	reg, err = NewDefaultRegistry(logger, ToolDeps{Config: cfg, Files: newMemRepo()})
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "store_list"}, reg.Names())
	assert.Contains(t, logs.String(), "unknown tools in tools.enabled")
	assert.Contains(t, logs.String(), `"names":"missing"`)
}

func TestDefaultToolSchemasAreValidJSON(t *testing.T) {
	reg, err := NewDefaultRegistry(testLogger(), ToolDeps{Config: domain.DefaultConfig().Tools, Files: newMemRepo()})
	require.NoError(t, err)

	r := NewResolver(testLogger(), reg)
	require.Equal(t, 8, reg.Len())
	for _, tool := range reg.ListTools() {
		raw, err := json.Marshal(tool.Parameters)
		require.NoError(t, err, tool.Name)
		assert.Contains(t, string(raw), `"type":"object"`, tool.Name)

		schema := openapi3.NewSchema()
		require.NoError(t, schema.UnmarshalJSON(raw), tool.Name)
		assert.NoError(t, schema.Validate(context.Background()), tool.Name)
	}

	// schemas are enforced before the handler runs
	res := r.Resolve(context.Background(), domain.ToolCallDecision("number_guess", `{"guess":"seven"}`))
	assert.Equal(t, domain.ResolutionArgumentsParseError, res.Kind)
}

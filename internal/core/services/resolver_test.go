package services

import (
	"context"
	"errors"
	"testing"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, tools ...*domain.Tool) *Resolver {
	t.Helper()
	reg := domain.NewToolRegistry()
	for _, tool := range tools {
		require.NoError(t, reg.Register(tool))
	}
	return NewResolver(testLogger(), reg)
}

func TestResolver_TextPassesThrough(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(), domain.TextDecision("plain"))
	assert.Equal(t, domain.ResolutionModelText, res.Kind)
	assert.Equal(t, "plain", res.Text)
	assert.False(t, res.Failed())
}

func TestResolver_EmptyRegistryNeverExecutes(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(), domain.ToolCallDecision("add", `{"x":1,"y":2}`))
	assert.Equal(t, domain.ResolutionToolNotFound, res.Kind)
	assert.Equal(t, "add", res.ToolName)
	assert.True(t, res.Failed())
}

func TestResolver_NamesAreCaseSensitive(t *testing.T) {
	r := newTestResolver(t, NewAddTool())
	res := r.Resolve(context.Background(), domain.ToolCallDecision("Add", `{"x":1,"y":2}`))
	assert.Equal(t, domain.ResolutionToolNotFound, res.Kind)
}

func TestResolver_Executes(t *testing.T) {
	r := newTestResolver(t, NewAddTool())
	res := r.Resolve(context.Background(), domain.ToolCallDecision("add", `{"x":40,"y":2}`))
	require.Equal(t, domain.ResolutionExecuted, res.Kind)

	out, err := EncodeResult(res.Result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum":42}`, out)
}

func TestResolver_EmptyPayloadIsEmptyObject(t *testing.T) {
	r := newTestResolver(t, NewGetConstantsTool(1, 2))
	for _, raw := range []string{"", "  ", "{}"} {
		res := r.Resolve(context.Background(), domain.ToolCallDecision("get_constants", raw))
		require.Equal(t, domain.ResolutionExecuted, res.Kind, "payload %q", raw)
	}
}

func TestResolver_ArgumentErrors(t *testing.T) {
	r := newTestResolver(t, NewAddTool())

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{x: 1"},
		{"not an object", "[1,2]"},
		{"null", "null"},
		{"wrong type", `{"x":"1","y":2}`},
		{"missing required", `{"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), domain.ToolCallDecision("add", tt.raw))
			assert.Equal(t, domain.ResolutionArgumentsParseError, res.Kind)
			assert.Equal(t, tt.raw, res.Arguments)
			assert.Error(t, res.Err)
		})
	}
}

func TestResolver_ExecutionErrorAndPanic(t *testing.T) {
	boom := errors.New("boom")
	r := newTestResolver(t,
		&domain.Tool{Name: "fails", Execute: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			return nil, boom
		}},
		&domain.Tool{Name: "panics", Execute: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			panic("unreachable state")
		}},
	)

	res := r.Resolve(context.Background(), domain.ToolCallDecision("fails", "{}"))
	assert.Equal(t, domain.ResolutionExecutionError, res.Kind)
	assert.ErrorIs(t, res.Err, boom)

	res = r.Resolve(context.Background(), domain.ToolCallDecision("panics", "{}"))
	assert.Equal(t, domain.ResolutionExecutionError, res.Kind)
	assert.Contains(t, res.Err.Error(), "unreachable state")
}

func TestEncodeResult(t *testing.T) {
	s, err := EncodeResult("already text")
	require.NoError(t, err)
	assert.Equal(t, "already text", s)

	s, err = EncodeResult(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, s)

	_, err = EncodeResult(make(chan int))
	assert.Error(t, err)
}

func TestResolver_IntegersStayExact(t *testing.T) {
	r := newTestResolver(t, NewAddTool())

	res := r.Resolve(context.Background(), domain.ToolCallDecision("add", `{"x":9007199254740993,"y":0}`))
	require.Equal(t, domain.ResolutionExecuted, res.Kind)
	out, err := EncodeResult(res.Result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum":9007199254740993}`, out)

	res = r.Resolve(context.Background(), domain.ToolCallDecision("add", `{"x":9223372036854775807,"y":1}`))
	assert.Equal(t, domain.ResolutionExecutionError, res.Kind)
}

func TestResolver_IntegerOutOfRange(t *testing.T) {
	r := newTestResolver(t, NewAddTool())

	tests := []struct {
		name string
		raw  string
	}{
		{"exponent", `{"x":1e300,"y":0}`},
		{"above int64", `{"x":9223372036854775808,"y":0}`},
		{"below int64", `{"x":-9223372036854775809,"y":0}`},
		{"fraction", `{"x":1.5,"y":0}`},
		{"trailing data", `{"x":1,"y":2} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), domain.ToolCallDecision("add", tt.raw))
			assert.Equal(t, domain.ResolutionArgumentsParseError, res.Kind)
			assert.Equal(t, tt.raw, res.Arguments)
		})
	}
}

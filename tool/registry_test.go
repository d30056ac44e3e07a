package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Search query"`
	Limit int    `json:"limit,omitempty"`
}

func searchTool(name string) Tool {
	return Func(name, "Search the index", func(ctx context.Context, args searchArgs, _ ProgressFunc) (Result, error) {
		return Text("result: " + args.Query), nil
	})
}

func TestRegistryAdd(t *testing.T) {
	t.Run("registers tools", func(t *testing.T) {
		registry := NewRegistry().Add(searchTool("search"), searchTool("find"))

		assert.Equal(t, 2, registry.Len())
		assert.Equal(t, []string{"find", "search"}, registry.Names())

		got, ok := registry.Get("search")
		require.True(t, ok)
		assert.Equal(t, "search", got.Name())
		assert.Equal(t, "search", got.Label())
	})

	t.Run("panics on duplicate tool name", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRegistry().Add(searchTool("dupe"), searchTool("dupe"))
		})
	})

	t.Run("register returns typed error on duplicate", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(searchTool("x")))

		err := registry.Register(searchTool("x"))
		var dup *AlreadyRegisteredError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "x", dup.Name)
	})
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry().Add(searchTool("search"))
	registry.Unregister("search")
	registry.Unregister("missing")

	_, ok := registry.Get("search")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistrySpecsAndSchema(t *testing.T) {
	registry := NewRegistry().Add(searchTool("zeta"), searchTool("alpha"))

	specs := registry.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, "Search the index", specs[0].Description)

	raw, ok := registry.Schema("alpha")
	require.True(t, ok)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"query"}, schema["required"])

	_, ok = registry.Schema("missing")
	assert.False(t, ok)
}

func TestFuncDecodesArguments(t *testing.T) {
	var progress []Update
	tl := Func("echo", "Echo", func(ctx context.Context, args searchArgs, onProgress ProgressFunc) (Result, error) {
		onProgress(Update{Message: "working"})
		return Text(args.Query), nil
	}, WithLabel("Echo"))

	res, err := tl.Execute(context.Background(), "c1", map[string]any{"query": "hi", "limit": float64(3)},
		func(u Update) { progress = append(progress, u) }, Context{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "hi", res.Content[0].Text)
	assert.Equal(t, "Echo", tl.Label())
	assert.Equal(t, []Update{{Message: "working"}}, progress)

	t.Run("nil progress is tolerated", func(t *testing.T) {
		_, err := tl.Execute(context.Background(), "c2", map[string]any{"query": "x"}, nil, Context{})
		assert.NoError(t, err)
	})

	t.Run("mistyped arguments become argument errors", func(t *testing.T) {
		_, err := tl.Execute(context.Background(), "c3", map[string]any{"query": 42}, nil, Context{})
		var argErr *ArgumentError
		require.True(t, errors.As(err, &argErr))
		assert.Equal(t, "echo", argErr.Name)
	})
}

func TestSpec(t *testing.T) {
	s := Spec(searchTool("search"))
	assert.Equal(t, "search", s.Name)
	assert.NotEmpty(t, s.Parameters)
}

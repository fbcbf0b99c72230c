package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/porcini-dev/porcini/internal/toproto"
)

type searchArgs struct {
	Query string `json:"query" desc:"text to search for"`
	Limit int32  `json:"limit"`
}

func searchTool(t *testing.T) *Tool {
	t.Helper()
	fn := func(ctx context.Context, args searchArgs) ([]string, error) {
		out := make([]string, 0, args.Limit)
		for i := int32(0); i < args.Limit; i++ {
			out = append(out, args.Query)
		}
		return out, nil
	}
	tool, err := New("search", fn, WithDescription("find things"), WithIcon("magnifyingglass"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tool
}

func TestNew_Metadata(t *testing.T) {
	tool := searchTool(t)
	if tool.Name() != "search" || tool.Description() != "find things" || tool.Icon() != "magnifyingglass" {
		t.Errorf("metadata = %q %q %q", tool.Name(), tool.Description(), tool.Icon())
	}
	spec := tool.Spec()
	if len(spec.Args) != 2 || spec.Args[0].Name != "query" || spec.Args[0].Doc != "text to search for" {
		t.Errorf("spec args = %+v", spec.Args)
	}
	if tool.Streaming() {
		t.Error("unary tool marked streaming")
	}
}

func TestNew_RejectsUnconvertible(t *testing.T) {
	_, err := New("bad", func(a, b int) (int, error) { return 0, nil })
	if !errors.Is(err, toproto.ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation, got %v", err)
	}
}

func TestTool_Call_StructArgs(t *testing.T) {
	tool := searchTool(t)
	got, err := tool.Call(context.Background(), map[string]any{"query": "go", "limit": int64(3)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	out, ok := got.([]string)
	if !ok || len(out) != 3 || out[0] != "go" {
		t.Errorf("result = %v", got)
	}
}

func TestTool_Call_MissingArgsDefault(t *testing.T) {
	tool := searchTool(t)
	got, err := tool.Call(context.Background(), map[string]any{"query": "go"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out := got.([]string); len(out) != 0 {
		t.Errorf("expected zero-limit result, got %v", out)
	}
}

func TestTool_Call_PlainArgs(t *testing.T) {
	concat := func(a string, b string) (string, error) { return a + b, nil }
	tool, err := New("concat", concat, WithArgNames("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := tool.Call(context.Background(), map[string]any{"a": "foo", "b": "bar"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "foobar" {
		t.Errorf("result = %v", got)
	}
}

func TestTool_Call_BadArgument(t *testing.T) {
	tool := searchTool(t)
	_, err := tool.Call(context.Background(), map[string]any{"query": 42})
	if !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument, got %v", err)
	}
}

func TestTool_Call_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	fn := func(args searchArgs) (string, error) { return "", boom }
	tool, err := New("fail", fn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tool.Call(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRegistry_AddAndGet(t *testing.T) {
	reg, err := NewRegistryBuilder().WithTool(searchTool(t)).Build()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Get("search") == nil {
		t.Error("registered tool not found")
	}
	if reg.Get("nope") != nil {
		t.Error("lookup of unknown tool returned a tool")
	}
	if err := reg.Add(searchTool(t)); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryBuilder_DeferredError(t *testing.T) {
	_, err := NewRegistryBuilder().
		WithFunc("bad", func(a, b int) (int, error) { return 0, nil }).
		Build()
	if !errors.Is(err, toproto.ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation, got %v", err)
	}
}

func TestRegistry_Synthesize(t *testing.T) {
	reg, err := NewRegistryBuilder().
		WithTool(searchTool(t)).
		WithFunc("count", func(q string) (int64, error) { return 0, nil }, WithArgNames("q")).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	schema, svc, err := reg.Synthesize("app", "App")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(svc.Methods) != 2 {
		t.Fatalf("methods = %d", len(svc.Methods))
	}
	text, err := toproto.RenderFile(schema)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"message SearchRequest", "message CountRequest", "service App"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered schema missing %q:\n%s", want, text)
		}
	}
}

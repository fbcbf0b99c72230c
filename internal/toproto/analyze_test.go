package toproto

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"
)

type searchArgs struct {
	Query string `json:"query" desc:"text to search for"`
	Limit int32  `json:"limit"`
}

func TestAnalyze_StructArgs(t *testing.T) {
	fn := func(ctx context.Context, args searchArgs) ([]string, error) { return nil, nil }

	spec, err := Analyze("search", fn, WithDoc("Search the index."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Name != "search" {
		t.Errorf("name = %q", spec.Name)
	}
	if spec.Doc != "Search the index." {
		t.Errorf("doc = %q", spec.Doc)
	}
	if spec.Streaming {
		t.Error("non-streaming function classified as streaming")
	}
	if len(spec.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(spec.Args))
	}
	// Argument order and names must match the declaration exactly.
	if spec.Args[0].Name != "query" || spec.Args[1].Name != "limit" {
		t.Errorf("arg names = %q, %q", spec.Args[0].Name, spec.Args[1].Name)
	}
	if spec.Args[0].Doc != "text to search for" {
		t.Errorf("arg doc = %q", spec.Args[0].Doc)
	}
	if spec.Args[0].Type.Kind() != reflect.String {
		t.Errorf("query type = %s", spec.Args[0].Type)
	}
	if spec.Return.Kind() != reflect.Slice {
		t.Errorf("return type = %s", spec.Return)
	}
}

func TestAnalyze_PlainArgsNeedNames(t *testing.T) {
	fn := func(query string, limit int) (string, error) { return "", nil }

	if _, err := Analyze("search", fn); !errors.Is(err, ErrMissingAnnotation) {
		t.Fatalf("expected ErrMissingAnnotation without names, got %v", err)
	}

	spec, err := Analyze("search", fn, WithArgNames("query", "limit"))
	if err != nil {
		t.Fatalf("unexpected error with names: %v", err)
	}
	if spec.Args[0].Name != "query" || spec.Args[1].Name != "limit" {
		t.Errorf("arg names = %v", spec.Args)
	}

	if _, err := Analyze("search", fn, WithArgNames("query")); !errors.Is(err, ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation on name count mismatch, got %v", err)
	}
}

func TestAnalyze_InterfaceArg(t *testing.T) {
	fn := func(v any) (string, error) { return "", nil }
	if _, err := Analyze("echo", fn, WithArgNames("v")); !errors.Is(err, ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation for interface arg, got %v", err)
	}
}

func TestAnalyze_InterfaceReturn(t *testing.T) {
	fn := func(query string) (any, error) { return nil, nil }
	if _, err := Analyze("echo", fn, WithArgNames("query")); !errors.Is(err, ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation for interface return, got %v", err)
	}
}

func TestAnalyze_NoResult(t *testing.T) {
	fn := func(query string) error { return nil }
	if _, err := Analyze("fire", fn, WithArgNames("query")); !errors.Is(err, ErrMissingAnnotation) {
		t.Errorf("expected ErrMissingAnnotation for missing result, got %v", err)
	}
}

func TestAnalyze_NotAFunction(t *testing.T) {
	if _, err := Analyze("x", 42); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := Analyze("x", nil); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType for nil, got %v", err)
	}
}

func TestAnalyze_ChannelStreaming(t *testing.T) {
	fn := func(ctx context.Context, args searchArgs) (<-chan string, error) { return nil, nil }

	spec, err := Analyze("tail", fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !spec.Streaming {
		t.Error("channel result not classified as streaming")
	}
	if spec.Return.Kind() != reflect.String {
		t.Errorf("stream element = %s, want string", spec.Return)
	}
}

func TestAnalyze_IterStreaming(t *testing.T) {
	fn := func(args searchArgs) iter.Seq[int32] { return nil }

	spec, err := Analyze("scan", fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !spec.Streaming {
		t.Error("iter.Seq result not classified as streaming")
	}
	if spec.Return.Kind() != reflect.Int32 {
		t.Errorf("stream element = %s, want int32", spec.Return)
	}
}

func TestAnalyze_SendChannelIsNotStreaming(t *testing.T) {
	fn := func(args searchArgs) (chan<- string, error) { return nil, nil }
	spec, err := Analyze("push", fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A send-only channel is not a stream result; it surfaces later as an
	// unsupported type during synthesis.
	if spec.Streaming {
		t.Error("send-only channel misclassified as streaming")
	}
}

// svcMixed has one convertible method and one that must be skipped.
type svcMixed struct{}

func (svcMixed) Lookup(ctx context.Context, args searchArgs) (string, error) { return "", nil }
func (svcMixed) Raw(a, b int) (int, error)                                   { return 0, nil }

func TestAnalyzeService_SkipsUnconvertible(t *testing.T) {
	svc, err := AnalyzeService(svcMixed{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Name != "svcMixed" {
		t.Errorf("service name = %q", svc.Name)
	}
	if len(svc.Functions) != 1 {
		t.Fatalf("expected 1 analyzable method, got %d", len(svc.Functions))
	}
	if svc.Functions[0].Name != "Lookup" {
		t.Errorf("kept method = %q", svc.Functions[0].Name)
	}
}

func TestAnalyzeService_NameOverride(t *testing.T) {
	svc, err := AnalyzeService(&svcMixed{}, "Index")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Name != "Index" {
		t.Errorf("service name = %q, want Index", svc.Name)
	}
}

func TestAnalyzeService_RejectsNonStruct(t *testing.T) {
	if _, err := AnalyzeService(42, ""); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

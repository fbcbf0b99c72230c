package toproto

import (
	"errors"
	"reflect"
	"testing"
)

func compileType(t *testing.T, spec *MessageSpec) *MessageType {
	t.Helper()
	mt, err := NewMessageType(spec)
	if err != nil {
		t.Fatalf("NewMessageType(%s): %v", spec.Name, err)
	}
	return mt
}

func searchRequestType(t *testing.T) *MessageType {
	t.Helper()
	spec := &MessageSpec{Name: "SearchRequest"}
	if err := spec.AddField(FieldSpec{Name: "query", Type: TypeRef{Kind: KindString}}); err != nil {
		t.Fatal(err)
	}
	if err := spec.AddField(FieldSpec{Name: "limit", Type: TypeRef{Kind: KindInt32}}); err != nil {
		t.Fatal(err)
	}
	return compileType(t, spec)
}

func TestMessage_DefaultSetClear(t *testing.T) {
	msg := searchRequestType(t).New()

	v, err := msg.Get("limit")
	if err != nil {
		t.Fatal(err)
	}
	if v != int32(0) {
		t.Errorf("unset int32 field = %v (%T), want 0", v, v)
	}
	if msg.Has("limit") {
		t.Error("Has reported true before assignment")
	}

	if err := msg.Set("limit", 5); err != nil {
		t.Fatal(err)
	}
	v, _ = msg.Get("limit")
	if v != int32(5) {
		t.Errorf("after Set = %v (%T), want int32(5)", v, v)
	}
	if !msg.Has("limit") {
		t.Error("Has reported false after assignment")
	}

	if err := msg.Clear("limit"); err != nil {
		t.Fatal(err)
	}
	v, _ = msg.Get("limit")
	if v != int32(0) {
		t.Errorf("after Clear = %v, want default 0", v)
	}
}

func TestMessage_UnknownField(t *testing.T) {
	msg := searchRequestType(t).New()
	if _, err := msg.Get("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Get: expected ErrUnknownField, got %v", err)
	}
	if err := msg.Set("nope", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Set: expected ErrUnknownField, got %v", err)
	}
	if err := msg.Clear("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Clear: expected ErrUnknownField, got %v", err)
	}
}

func TestMessage_ScalarCoercion(t *testing.T) {
	msg := searchRequestType(t).New()

	if err := msg.Set("limit", int64(7)); err != nil {
		t.Errorf("int64 into int32 field: %v", err)
	}
	if err := msg.Set("limit", uint8(3)); err != nil {
		t.Errorf("uint8 into int32 field: %v", err)
	}
	if err := msg.Set("limit", int64(1)<<40); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("out-of-range int32: expected ErrInvalidValue, got %v", err)
	}
	if err := msg.Set("limit", "ten"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("string into int32: expected ErrInvalidValue, got %v", err)
	}
	if err := msg.Set("query", 9); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("int into string: expected ErrInvalidValue, got %v", err)
	}
}

func repeatedStringType(t *testing.T) *MessageType {
	t.Helper()
	spec := &MessageSpec{Name: "SearchResponse"}
	if err := spec.AddField(FieldSpec{Name: "result", Type: TypeRef{Kind: KindString}, Label: LabelRepeated}); err != nil {
		t.Fatal(err)
	}
	return compileType(t, spec)
}

func TestMessage_Repeated(t *testing.T) {
	msg := repeatedStringType(t).New()

	v, err := msg.Get("result")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := v.([]any); !ok || len(got) != 0 {
		t.Errorf("unset repeated field = %v (%T), want empty slice", v, v)
	}

	if err := msg.Set("result", []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	v, _ = msg.Get("result")
	if !reflect.DeepEqual(v, []any{"a", "b", "c"}) {
		t.Errorf("stored repeated value = %v", v)
	}

	if err := msg.Set("result", "not a slice"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("scalar into repeated: expected ErrInvalidValue, got %v", err)
	}
	if err := msg.Set("result", []any{"ok", 42}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad element: expected ErrInvalidValue, got %v", err)
	}
}

func TestMessage_RequiredAndOptionalNil(t *testing.T) {
	spec := &MessageSpec{Name: "Record"}
	if err := spec.AddField(FieldSpec{Name: "id", Type: TypeRef{Kind: KindString}, Label: LabelRequired}); err != nil {
		t.Fatal(err)
	}
	if err := spec.AddField(FieldSpec{Name: "note", Type: TypeRef{Kind: KindString}}); err != nil {
		t.Fatal(err)
	}
	msg := compileType(t, spec).New()

	if err := msg.Set("id", nil); !errors.Is(err, ErrRequiredField) {
		t.Errorf("nil required: expected ErrRequiredField, got %v", err)
	}

	if err := msg.Set("note", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := msg.Set("note", nil); err != nil {
		t.Fatalf("nil optional: %v", err)
	}
	v, _ := msg.Get("note")
	if v != "" {
		t.Errorf("optional field after nil Set = %v, want default", v)
	}
}

func TestMessage_EnumField(t *testing.T) {
	status := &EnumSpec{Name: "Status", Values: []EnumValue{
		{Name: "UNKNOWN", Number: 0},
		{Name: "ACTIVE", Number: 1},
	}}
	spec := &MessageSpec{Name: "Item", Enums: []*EnumSpec{status}}
	if err := spec.AddField(FieldSpec{Name: "status", Type: TypeRef{Kind: KindEnum, Name: "Status"}}); err != nil {
		t.Fatal(err)
	}
	msg := compileType(t, spec).New()

	if err := msg.Set("status", "ACTIVE"); err != nil {
		t.Fatal(err)
	}
	v, _ := msg.Get("status")
	if v != int32(1) {
		t.Errorf("name assignment stored %v, want 1", v)
	}

	if err := msg.Set("status", 0); err != nil {
		t.Fatal(err)
	}
	if err := msg.Set("status", "HALTED"); !errors.Is(err, ErrInvalidEnumValue) {
		t.Errorf("unknown name: expected ErrInvalidEnumValue, got %v", err)
	}
	if err := msg.Set("status", 99); !errors.Is(err, ErrInvalidEnumValue) {
		t.Errorf("unknown number: expected ErrInvalidEnumValue, got %v", err)
	}
	if err := msg.Set("status", 1.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("float into enum: expected ErrInvalidValue, got %v", err)
	}
}

func TestMessage_NestedMessageField(t *testing.T) {
	meta := &MessageSpec{Name: "Meta"}
	if err := meta.AddField(FieldSpec{Name: "etag", Type: TypeRef{Kind: KindString}}); err != nil {
		t.Fatal(err)
	}
	spec := &MessageSpec{Name: "Item", Messages: []*MessageSpec{meta}}
	if err := spec.AddField(FieldSpec{Name: "meta", Type: TypeRef{Kind: KindMessage, Name: "Meta"}}); err != nil {
		t.Fatal(err)
	}
	mt := compileType(t, spec)
	msg := mt.New()

	// Message fields default to absent, not an auto-constructed instance.
	v, err := msg.Get("meta")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("unset message field = %v, want nil", v)
	}

	// Maps expand field by field into a new instance.
	if err := msg.Set("meta", map[string]any{"etag": "abc"}); err != nil {
		t.Fatal(err)
	}
	v, _ = msg.Get("meta")
	inner, ok := v.(*Message)
	if !ok {
		t.Fatalf("stored value is %T, want *Message", v)
	}
	etag, _ := inner.Get("etag")
	if etag != "abc" {
		t.Errorf("expanded map field = %v", etag)
	}

	if err := msg.Set("meta", map[string]any{"bogus": 1}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("map with unknown key: expected ErrUnknownField, got %v", err)
	}
	if err := msg.Set("meta", "not a message"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("scalar into message field: expected ErrInvalidValue, got %v", err)
	}
}

func TestMessageType_FromRegistry(t *testing.T) {
	reg := NewRegistry("app")
	c := NewConverter(reg)
	fn := func(query string, limit int32) ([]string, error) { return nil, nil }
	if _, _, _, err := c.SynthesizeMethod(analyzed(t, "search", fn, WithArgNames("query", "limit"))); err != nil {
		t.Fatal(err)
	}

	mt, err := reg.MessageType("SearchRequest")
	if err != nil {
		t.Fatal(err)
	}
	msg := mt.New()
	if err := msg.Set("query", "golang"); err != nil {
		t.Fatal(err)
	}
	if err := msg.Set("limit", 10); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.MessageType("MissingThing"); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestNewMessageType_UnresolvedNested(t *testing.T) {
	spec := &MessageSpec{Name: "Holder"}
	if err := spec.AddField(FieldSpec{Name: "inner", Type: TypeRef{Kind: KindMessage, Name: "Ghost"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMessageType(spec); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestMessageType_SelfReference(t *testing.T) {
	spec := &MessageSpec{Name: "Node"}
	if err := spec.AddField(FieldSpec{Name: "children", Type: TypeRef{Kind: KindMessage, Name: "Node"}, Label: LabelRepeated}); err != nil {
		t.Fatal(err)
	}
	mt := compileType(t, spec)

	root := mt.New()
	child := mt.New()
	if err := root.Set("children", []*Message{child}); err != nil {
		t.Fatalf("self-referential field: %v", err)
	}
}

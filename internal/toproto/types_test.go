package toproto

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateName(t *testing.T) {
	valid := []string{"query", "SearchRequest", "a", "snake_case", "Mixed_1"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q): unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "1abc", "_leading", "has-dash", "has space", "message", "RPC "}
	for _, name := range invalid {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q): expected ErrInvalidName, got %v", name, err)
		}
	}

	// Reserved words are rejected case-insensitively.
	if err := ValidateName("Enum"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected reserved word rejection for Enum, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cases := []struct {
		kind FieldKind
		want any
	}{
		{KindString, ""},
		{KindInt32, int32(0)},
		{KindInt64, int64(0)},
		{KindUint32, uint32(0)},
		{KindUint64, uint64(0)},
		{KindFloat, float32(0)},
		{KindDouble, float64(0)},
		{KindBool, false},
		{KindEnum, int32(0)},
	}
	for _, c := range cases {
		got := Default(c.kind)
		if got != c.want {
			t.Errorf("Default(%s) = %#v, want %#v", c.kind, got, c.want)
		}
	}

	if b := Default(KindBytes); b == nil {
		// nil []byte is the empty default; just check the type.
		if _, ok := b.([]byte); ok {
			t.Error("expected nil-typed bytes default")
		}
	}
	if Default(KindMessage) != nil {
		t.Error("message kinds have no default; expected nil")
	}
}

func TestKindNames(t *testing.T) {
	names := map[FieldKind]string{
		KindString: "string",
		KindInt32:  "int32",
		KindInt64:  "int64",
		KindUint32: "uint32",
		KindUint64: "uint64",
		KindFloat:  "float",
		KindDouble: "double",
		KindBool:   "bool",
		KindBytes:  "bytes",
	}
	for kind, want := range names {
		if kind.String() != want {
			t.Errorf("FieldKind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}

func TestFieldKindOf(t *testing.T) {
	cases := []struct {
		typ  reflect.Type
		kind FieldKind
	}{
		{reflect.TypeOf(""), KindString},
		{reflect.TypeOf(int(0)), KindInt64},
		{reflect.TypeOf(int32(0)), KindInt32},
		{reflect.TypeOf(uint16(0)), KindUint32},
		{reflect.TypeOf(float32(0)), KindFloat},
		{reflect.TypeOf(float64(0)), KindDouble},
		{reflect.TypeOf(true), KindBool},
		{reflect.TypeOf([]byte(nil)), KindBytes},
	}
	for _, c := range cases {
		got, ok := FieldKindOf(c.typ)
		if !ok || got != c.kind {
			t.Errorf("FieldKindOf(%s) = %s, %v; want %s", c.typ, got, ok, c.kind)
		}
	}
	if _, ok := FieldKindOf(reflect.TypeOf(struct{}{})); ok {
		t.Error("struct types are not scalar kinds")
	}
	if _, ok := FieldKindOf(reflect.TypeOf([]string(nil))); ok {
		t.Error("non-byte slices are not scalar kinds")
	}
}

func TestExportName(t *testing.T) {
	if got := exportName("search"); got != "Search" {
		t.Errorf("exportName(search) = %q", got)
	}
	if got := exportName("Search"); got != "Search" {
		t.Errorf("exportName(Search) = %q", got)
	}
}

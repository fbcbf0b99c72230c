// Package toproto converts Go functions and structs into message and service
// descriptors, renders them as proto3 schema text, and builds dynamic runtime
// messages from descriptors.
//
// The package is the schema half of the SDK: it never talks to the platform
// runtime itself. All analysis and synthesis is synchronous and in-memory;
// a Registry is not safe for concurrent registration and callers sharing one
// must serialize access.
package toproto

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// FieldKind identifies the schema type of a field value.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindString
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindFloat
	KindDouble
	KindBool
	KindBytes
	KindMessage
	KindEnum
)

// String returns the schema type name as it appears in rendered output.
func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindMessage:
		return "message"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// TypeRef describes the value domain of a field: a primitive kind, or a
// message/enum referenced by name. Exactly one interpretation applies.
type TypeRef struct {
	Kind FieldKind
	Name string // message or enum name when Kind is KindMessage or KindEnum
}

// Label is the cardinality of a field.
type Label int

const (
	LabelOptional Label = iota
	LabelRepeated
	LabelRequired
)

// FieldKindOf maps a Go scalar type to its schema kind. Message, enum and
// compound shapes are resolved by the Converter, which owns the type tables.
func FieldKindOf(t reflect.Type) (FieldKind, bool) {
	switch t.Kind() {
	case reflect.String:
		return KindString, true
	case reflect.Int, reflect.Int64:
		return KindInt64, true
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return KindInt32, true
	case reflect.Uint, reflect.Uint64:
		return KindUint64, true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return KindUint32, true
	case reflect.Float32:
		return KindFloat, true
	case reflect.Float64:
		return KindDouble, true
	case reflect.Bool:
		return KindBool, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, true
		}
	}
	return KindUnknown, false
}

// GoType returns the Go type a kind's values are stored as in dynamic
// messages.
func GoType(k FieldKind) reflect.Type {
	switch k {
	case KindString:
		return reflect.TypeOf("")
	case KindInt32:
		return reflect.TypeOf(int32(0))
	case KindInt64:
		return reflect.TypeOf(int64(0))
	case KindUint32:
		return reflect.TypeOf(uint32(0))
	case KindUint64:
		return reflect.TypeOf(uint64(0))
	case KindFloat:
		return reflect.TypeOf(float32(0))
	case KindDouble:
		return reflect.TypeOf(float64(0))
	case KindBool:
		return reflect.TypeOf(false)
	case KindBytes:
		return reflect.TypeOf([]byte(nil))
	case KindEnum:
		return reflect.TypeOf(int32(0))
	default:
		return nil
	}
}

// Default returns the zero value for a kind. Message kinds have no default:
// they are absent until assigned, so Default returns nil for them.
func Default(k FieldKind) any {
	switch k {
	case KindString:
		return ""
	case KindInt32, KindEnum:
		return int32(0)
	case KindInt64:
		return int64(0)
	case KindUint32:
		return uint32(0)
	case KindUint64:
		return uint64(0)
	case KindFloat:
		return float32(0)
	case KindDouble:
		return float64(0)
	case KindBool:
		return false
	case KindBytes:
		return []byte(nil)
	default:
		return nil
	}
}

// reservedNames are proto3 keywords that cannot be used as identifiers.
var reservedNames = map[string]bool{
	"syntax": true, "import": true, "weak": true, "public": true,
	"package": true, "option": true, "repeated": true, "oneof": true,
	"map": true, "reserved": true, "to": true, "max": true, "enum": true,
	"message": true, "service": true, "rpc": true, "stream": true,
	"returns": true, "true": true, "false": true,
}

// ValidateName checks that name is a legal schema identifier: it must start
// with a letter, contain only letters, digits and underscores, and not be a
// reserved word.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) {
			return fmt.Errorf("%w: %q must start with a letter", ErrInvalidName, name)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	if reservedNames[strings.ToLower(name)] {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// exportName upper-cases the first rune, turning a method or function name
// into a message type name.
func exportName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

package toproto

import (
	"fmt"
	"reflect"
)

// MessageType is a message descriptor compiled for runtime use: every field
// is bound to its resolved nested message or enum type, so instances can
// validate and coerce assignments. Build one with NewMessageType or
// Registry.MessageType.
type MessageType struct {
	spec   *MessageSpec
	fields map[string]*boundField
}

type boundField struct {
	spec FieldSpec
	msg  *MessageType // resolved type for message fields
	enum *EnumSpec    // resolved table for enum fields
}

// NewMessageType compiles a message spec into a MessageType. Nested message
// and enum types are built first into a transient registry scoped to this
// call, so sibling and parent fields can resolve them by name; the transient
// registry is discarded afterwards. Fields referencing names not nested in
// spec fail with ErrUnresolvedReference.
func NewMessageType(spec *MessageSpec) (*MessageType, error) {
	return newScope(nil).compile(spec)
}

// MessageType compiles the registered message with the given name, resolving
// references against the whole registry as well as nested types.
func (r *Registry) MessageType(name string) (*MessageType, error) {
	spec, ok := r.Message(name)
	if !ok {
		return nil, fmt.Errorf("%w: message %s", ErrUnresolvedReference, name)
	}
	return newScope(r).compile(spec)
}

// typeScope is the transient per-call registry used while compiling one
// top-level message.
type typeScope struct {
	reg      *Registry
	specs    map[string]*MessageSpec
	enums    map[string]*EnumSpec
	compiled map[string]*MessageType
}

func newScope(reg *Registry) *typeScope {
	return &typeScope{
		reg:      reg,
		specs:    make(map[string]*MessageSpec),
		enums:    make(map[string]*EnumSpec),
		compiled: make(map[string]*MessageType),
	}
}

func (s *typeScope) compile(spec *MessageSpec) (*MessageType, error) {
	s.declare(spec)
	return s.message(spec.Name)
}

// declare makes spec and everything nested in it resolvable by simple name.
func (s *typeScope) declare(spec *MessageSpec) {
	s.specs[spec.Name] = spec
	for _, e := range spec.Enums {
		s.enums[e.Name] = e
	}
	for _, nested := range spec.Messages {
		s.declare(nested)
	}
}

// message compiles the named message, memoizing the shell before binding
// fields so self-referential messages terminate.
func (s *typeScope) message(name string) (*MessageType, error) {
	if mt, ok := s.compiled[name]; ok {
		return mt, nil
	}
	spec, ok := s.specs[name]
	if !ok && s.reg != nil {
		if regSpec, found := s.reg.Message(name); found {
			s.declare(regSpec)
			spec, ok = regSpec, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: message %s", ErrUnresolvedReference, name)
	}

	mt := &MessageType{spec: spec, fields: make(map[string]*boundField, len(spec.Fields))}
	s.compiled[name] = mt

	for _, f := range spec.Fields {
		bf := &boundField{spec: f}
		var err error
		switch f.Type.Kind {
		case KindMessage:
			bf.msg, err = s.message(f.Type.Name)
		case KindEnum:
			bf.enum, err = s.enum(f.Type.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", name, f.Name, err)
		}
		mt.fields[f.Name] = bf
	}
	return mt, nil
}

func (s *typeScope) enum(name string) (*EnumSpec, error) {
	if e, ok := s.enums[name]; ok {
		return e, nil
	}
	if s.reg != nil {
		if e, ok := s.reg.Enum(name); ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: enum %s", ErrUnresolvedReference, name)
}

// Name returns the message type's name.
func (t *MessageType) Name() string { return t.spec.Name }

// Spec returns the compiled descriptor.
func (t *MessageType) Spec() *MessageSpec { return t.spec }

// New creates an empty instance. Construction performs no validation:
// defaults materialize lazily on first Get and validation happens at
// assignment time.
func (t *MessageType) New() *Message {
	return &Message{mt: t, values: make(map[string]any)}
}

// Message is a dynamic message instance: a field bag with validated,
// type-coerced accessors driven by the compiled descriptor.
type Message struct {
	mt     *MessageType
	values map[string]any
}

// Type returns the message's compiled type.
func (m *Message) Type() *MessageType { return m.mt }

// Has reports whether the field currently holds an explicitly assigned value.
func (m *Message) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Get returns the stored value for a field, or the field kind's default when
// never assigned. Repeated fields default to an empty slice and message
// fields to nil (absent, never auto-constructed).
func (m *Message) Get(name string) (any, error) {
	f, ok := m.mt.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.mt.Name(), name)
	}
	if v, stored := m.values[name]; stored {
		return v, nil
	}
	if f.spec.Label == LabelRepeated {
		return []any{}, nil
	}
	if f.spec.Type.Kind == KindMessage {
		return nil, nil
	}
	return Default(f.spec.Type.Kind), nil
}

// Set validates, coerces and stores a value. Repeated fields require a slice
// or array and coerce every element; message fields accept an instance of
// the field's type or a map[string]any expanded field by field; enum fields
// accept a symbolic name or an integer present in the value table. Setting a
// required field to nil fails with ErrRequiredField; setting an optional
// field to nil reverts it to its default.
func (m *Message) Set(name string, v any) error {
	f, ok := m.mt.fields[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.mt.Name(), name)
	}
	if v == nil {
		if f.spec.Label == LabelRequired {
			return fmt.Errorf("%w: %s.%s", ErrRequiredField, m.mt.Name(), name)
		}
		delete(m.values, name)
		return nil
	}

	if f.spec.Label == LabelRepeated {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("%w: %s.%s is repeated, got %T", ErrInvalidValue, m.mt.Name(), name, v)
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := f.coerce(rv.Index(i).Interface())
			if err != nil {
				return fmt.Errorf("element %d of %s.%s: %w", i, m.mt.Name(), name, err)
			}
			out = append(out, elem)
		}
		m.values[name] = out
		return nil
	}

	coerced, err := f.coerce(v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", m.mt.Name(), name, err)
	}
	m.values[name] = coerced
	return nil
}

// Clear removes any stored value, reverting subsequent Gets to the default.
func (m *Message) Clear(name string) error {
	if _, ok := m.mt.fields[name]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, m.mt.Name(), name)
	}
	delete(m.values, name)
	return nil
}

// coerce validates and converts one singular value (or one element of a
// repeated value) to the field's stored representation.
func (f *boundField) coerce(v any) (any, error) {
	switch f.spec.Type.Kind {
	case KindMessage:
		return f.coerceMessage(v)
	case KindEnum:
		return f.coerceEnum(v)
	default:
		return coerceScalar(f.spec.Type.Kind, v)
	}
}

func (f *boundField) coerceMessage(v any) (any, error) {
	switch val := v.(type) {
	case *Message:
		if val.mt.Name() != f.msg.Name() {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidValue, f.msg.Name(), val.mt.Name())
		}
		return val, nil
	case map[string]any:
		inst := f.msg.New()
		for k, fv := range val {
			if err := inst.Set(k, fv); err != nil {
				return nil, err
			}
		}
		return inst, nil
	default:
		return nil, fmt.Errorf("%w: expected %s or map, got %T", ErrInvalidValue, f.msg.Name(), v)
	}
}

func (f *boundField) coerceEnum(v any) (any, error) {
	if s, ok := v.(string); ok {
		num, found := f.enum.Lookup(s)
		if !found {
			return nil, fmt.Errorf("%w: %q is not a value of %s", ErrInvalidEnumValue, s, f.enum.Name)
		}
		return num, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.CanInt() && !rv.CanUint() {
		return nil, fmt.Errorf("%w: enum %s takes a name or integer, got %T", ErrInvalidValue, f.enum.Name, v)
	}
	var num int32
	if rv.CanInt() {
		num = int32(rv.Int())
	} else {
		num = int32(rv.Uint())
	}
	if !f.enum.HasNumber(num) {
		return nil, fmt.Errorf("%w: %d is not a value of %s", ErrInvalidEnumValue, num, f.enum.Name)
	}
	return num, nil
}

func coerceScalar(kind FieldKind, v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch kind {
	case KindString:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
	case KindBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		if rv.Kind() == reflect.String {
			return []byte(rv.String()), nil
		}
	case KindInt32:
		if i, ok := intValue(rv); ok && i >= -1<<31 && i < 1<<31 {
			return int32(i), nil
		}
	case KindInt64:
		if i, ok := intValue(rv); ok {
			return i, nil
		}
	case KindUint32:
		if u, ok := uintValue(rv); ok && u < 1<<32 {
			return uint32(u), nil
		}
	case KindUint64:
		if u, ok := uintValue(rv); ok {
			return u, nil
		}
	case KindFloat:
		if f, ok := floatValue(rv); ok {
			return float32(f), nil
		}
	case KindDouble:
		if f, ok := floatValue(rv); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot convert %T to %s", ErrInvalidValue, v, kind)
}

func intValue(rv reflect.Value) (int64, bool) {
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint() && rv.Uint() < 1<<63:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

func uintValue(rv reflect.Value) (uint64, bool) {
	switch {
	case rv.CanUint():
		return rv.Uint(), true
	case rv.CanInt() && rv.Int() >= 0:
		return uint64(rv.Int()), true
	default:
		return 0, false
	}
}

func floatValue(rv reflect.Value) (float64, bool) {
	switch {
	case rv.CanFloat():
		return rv.Float(), true
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

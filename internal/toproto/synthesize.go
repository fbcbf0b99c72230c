package toproto

import (
	"fmt"
	"reflect"
)

// Converter turns analyzed function specs into registered message, method
// and service descriptors. It owns the Go-type side tables that map struct
// types to synthesized messages and named integer types to enums.
//
// A Converter mutates only its Registry and is subject to the same
// concurrency rule: independent conversions running concurrently must use
// independent Converters, or serialize externally.
type Converter struct {
	reg     *Registry
	enums   map[reflect.Type]string // named integer type -> enum name
	structs map[reflect.Type]string // struct type -> message name
}

// NewConverter creates a Converter that registers everything it synthesizes
// into reg.
func NewConverter(reg *Registry) *Converter {
	return &Converter{
		reg:     reg,
		enums:   make(map[reflect.Type]string),
		structs: make(map[reflect.Type]string),
	}
}

// Registry returns the converter's registry.
func (c *Converter) Registry() *Registry { return c.reg }

// RegisterEnum declares a named integer Go type as an enum with the given
// value table. v is any value of the enum type. The enum is registered
// top-level under the Go type's name and becomes resolvable from fields of
// that type.
func (c *Converter) RegisterEnum(v any, values map[string]int32) (*EnumSpec, error) {
	t := reflect.TypeOf(v)
	if t == nil || t.Name() == "" {
		return nil, fmt.Errorf("%w: enum requires a named type", ErrUnsupportedType)
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return nil, fmt.Errorf("%w: enum type %s must be an integer type", ErrUnsupportedType, t)
	}
	if _, ok := c.enums[t]; ok {
		return nil, fmt.Errorf("%w: enum %s", ErrDuplicateName, t.Name())
	}

	spec, err := NewEnumSpec(t.Name(), values)
	if err != nil {
		return nil, err
	}
	if err := c.reg.RegisterEnum(spec); err != nil {
		return nil, err
	}
	c.enums[t] = spec.Name
	return spec, nil
}

// TypeRefOf resolves a Go type to its schema type reference and label:
// pointers unwrap to optional, slices to repeated, and string-keyed maps
// degrade to a repeated value field (the key type is dropped; see DESIGN.md).
// Non-string map keys fail with ErrInvalidMapKey, interface types with
// ErrMissingAnnotation and unrecognized shapes with ErrUnsupportedAnnotation
// or ErrUnsupportedType.
func (c *Converter) TypeRefOf(t reflect.Type) (TypeRef, Label, error) {
	return c.typeRef(t, nil)
}

// pending accumulates struct-typed messages synthesized while building one
// method, so they can be committed to the registry atomically with the
// request and response messages, or discarded together on failure.
type pending struct {
	specs []*MessageSpec
	types map[reflect.Type]string
}

func newPending() *pending {
	return &pending{types: make(map[reflect.Type]string)}
}

func (c *Converter) typeRef(t reflect.Type, p *pending) (TypeRef, Label, error) {
	label := LabelOptional

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return TypeRef{Kind: KindBytes}, label, nil
		}
		elem := t.Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		switch elem.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return TypeRef{}, label, fmt.Errorf("%w: nested repeated type %s", ErrUnsupportedAnnotation, t)
		}
		ref, err := c.baseRef(elem, p)
		if err != nil {
			return TypeRef{}, label, err
		}
		return ref, LabelRepeated, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return TypeRef{}, label, fmt.Errorf("%w: %s", ErrInvalidMapKey, t)
		}
		elem := t.Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		switch elem.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return TypeRef{}, label, fmt.Errorf("%w: nested compound type %s", ErrUnsupportedAnnotation, t)
		}
		// Map values degrade to a repeated field of the value type.
		ref, err := c.baseRef(elem, p)
		if err != nil {
			return TypeRef{}, label, err
		}
		return ref, LabelRepeated, nil
	}

	ref, err := c.baseRef(t, p)
	if err != nil {
		return TypeRef{}, label, err
	}
	return ref, label, nil
}

// baseRef resolves a non-compound Go type: registered enums first, then
// primitives, then struct types as messages.
func (c *Converter) baseRef(t reflect.Type, p *pending) (TypeRef, error) {
	if t.Kind() == reflect.Interface {
		return TypeRef{}, fmt.Errorf("%w: interface type %s", ErrMissingAnnotation, t)
	}
	if name, ok := c.enums[t]; ok {
		return TypeRef{Kind: KindEnum, Name: name}, nil
	}
	if kind, ok := FieldKindOf(t); ok {
		return TypeRef{Kind: kind}, nil
	}
	if t.Kind() == reflect.Struct {
		name, err := c.messageFor(t, p)
		if err != nil {
			return TypeRef{}, err
		}
		return TypeRef{Kind: KindMessage, Name: name}, nil
	}
	return TypeRef{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// messageFor returns the message name for a struct type, synthesizing a
// MessageSpec from its exported fields on first use. New specs go into p for
// atomic commit; with a nil pending the type must already be known.
func (c *Converter) messageFor(t reflect.Type, p *pending) (string, error) {
	if name, ok := c.structs[t]; ok {
		return name, nil
	}
	if p != nil {
		if name, ok := p.types[t]; ok {
			return name, nil
		}
	}

	name := t.Name()
	if name == "" {
		return "", fmt.Errorf("%w: anonymous struct", ErrUnsupportedType)
	}
	if p == nil {
		// Pure resolution: reference by name, let registration or rendering
		// surface the missing definition.
		return name, nil
	}
	if _, ok := c.reg.Message(name); ok {
		return "", fmt.Errorf("%w: message %s (from %s)", ErrDuplicateName, name, t)
	}

	// Reserve the name before recursing so self-referential structs resolve.
	p.types[t] = name

	spec := &MessageSpec{Name: name}
	args, err := structArgs(name, t, analyzeConfig{})
	if err != nil {
		return "", err
	}
	for _, arg := range args {
		ref, label, err := c.typeRef(arg.Type, p)
		if err != nil {
			return "", fmt.Errorf("field %s of %s: %w", arg.Name, name, err)
		}
		if err := spec.AddField(FieldSpec{Name: arg.Name, Type: ref, Label: label, Doc: arg.Doc}); err != nil {
			return "", err
		}
	}
	p.specs = append(p.specs, spec)
	return name, nil
}

// BuildRequestMessage builds the <Name>Request message for a function spec:
// one field per argument, in argument order, numbered 1..N. The message is
// not registered.
func (c *Converter) BuildRequestMessage(spec FunctionSpec) (*MessageSpec, error) {
	return c.buildRequest(spec, newPending())
}

func (c *Converter) buildRequest(spec FunctionSpec, p *pending) (*MessageSpec, error) {
	msg := &MessageSpec{Name: exportName(spec.Name) + "Request", Doc: spec.Doc}
	for _, arg := range spec.Args {
		ref, label, err := c.typeRef(arg.Type, p)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s: %w", arg.Name, spec.Name, err)
		}
		if err := msg.AddField(FieldSpec{Name: arg.Name, Type: ref, Label: label, Doc: arg.Doc}); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// BuildResponseMessage builds the <Name>Response message: a single field
// named result holding the function's result type. The message is not
// registered.
func (c *Converter) BuildResponseMessage(spec FunctionSpec) (*MessageSpec, error) {
	return c.buildResponse(spec, newPending())
}

func (c *Converter) buildResponse(spec FunctionSpec, p *pending) (*MessageSpec, error) {
	ref, label, err := c.typeRef(spec.Return, p)
	if err != nil {
		return nil, fmt.Errorf("result of %s: %w", spec.Name, err)
	}
	msg := &MessageSpec{Name: exportName(spec.Name) + "Response"}
	if err := msg.AddField(FieldSpec{Name: "result", Type: ref, Label: label}); err != nil {
		return nil, err
	}
	return msg, nil
}

// SynthesizeMethod builds and registers the request and response messages
// for a function spec and returns them with the method descriptor. All
// messages, including those synthesized for struct-typed arguments, are
// registered atomically: a name collision registers nothing.
func (c *Converter) SynthesizeMethod(spec FunctionSpec) (*MessageSpec, *MessageSpec, MethodSpec, error) {
	p := newPending()

	req, err := c.buildRequest(spec, p)
	if err != nil {
		return nil, nil, MethodSpec{}, err
	}
	resp, err := c.buildResponse(spec, p)
	if err != nil {
		return nil, nil, MethodSpec{}, err
	}

	all := append(append([]*MessageSpec{}, p.specs...), req, resp)
	if err := c.reg.RegisterMessages(all...); err != nil {
		return nil, nil, MethodSpec{}, err
	}
	for t, name := range p.types {
		c.structs[t] = name
	}

	method := MethodSpec{
		Name:            spec.Name,
		InputType:       req.Name,
		OutputType:      resp.Name,
		ClientStreaming: false,
		ServerStreaming: spec.Streaming,
	}
	return req, resp, method, nil
}

// SynthesizeService synthesizes a method for every function spec, aggregates
// them into one service and registers it. Methods are committed one at a
// time; a failure surfaces immediately and leaves earlier methods registered.
func (c *Converter) SynthesizeService(name string, fns []FunctionSpec) (*ServiceSpec, error) {
	svc := &ServiceSpec{Name: name}
	for _, fn := range fns {
		_, _, method, err := c.SynthesizeMethod(fn)
		if err != nil {
			return nil, fmt.Errorf("method %s of service %s: %w", fn.Name, name, err)
		}
		if err := svc.AddMethod(method); err != nil {
			return nil, err
		}
	}
	if err := c.reg.RegisterService(svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// SynthesizeServiceFrom analyzes recv's exported methods (with the skip
// policy of AnalyzeService) and synthesizes a service from the survivors.
func (c *Converter) SynthesizeServiceFrom(recv any, name string) (*ServiceSpec, error) {
	svc, err := AnalyzeService(recv, name)
	if err != nil {
		return nil, err
	}
	return c.SynthesizeService(svc.Name, svc.Functions)
}

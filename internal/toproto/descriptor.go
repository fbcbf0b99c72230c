package toproto

import (
	"fmt"
	"sort"
)

// Option is a single field or method option, rendered as [name = value].
type Option struct {
	Name  string
	Value string
}

// FieldSpec describes one field of a message. Exactly one of the primitive
// kinds, a message reference or an enum reference describes its value domain,
// carried by Type. Numbers are unique within the owning message and immutable
// once assigned.
type FieldSpec struct {
	Name    string
	Type    TypeRef
	Label   Label
	Number  int32
	Options []Option
	Doc     string
}

// EnumValue is one named constant of an enum.
type EnumValue struct {
	Name   string
	Number int32
}

// EnumSpec describes an enum type: an ordered value table. Names are unique;
// a zero-numbered value is required so the enum has a default.
type EnumSpec struct {
	Name   string
	Values []EnumValue
}

// NewEnumSpec builds an EnumSpec from a value table, ordered by number and
// then name so rendering is deterministic.
func NewEnumSpec(name string, values map[string]int32) (*EnumSpec, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: enum %s has no values", ErrInvalidEnumValue, name)
	}
	spec := &EnumSpec{Name: name}
	hasZero := false
	for n, num := range values {
		if err := ValidateName(n); err != nil {
			return nil, err
		}
		if num == 0 {
			hasZero = true
		}
		spec.Values = append(spec.Values, EnumValue{Name: n, Number: num})
	}
	if !hasZero {
		return nil, fmt.Errorf("%w: enum %s must define a zero value", ErrInvalidEnumValue, name)
	}
	sort.Slice(spec.Values, func(i, j int) bool {
		if spec.Values[i].Number != spec.Values[j].Number {
			return spec.Values[i].Number < spec.Values[j].Number
		}
		return spec.Values[i].Name < spec.Values[j].Name
	})
	return spec, nil
}

// Lookup returns the number for a value name.
func (e *EnumSpec) Lookup(name string) (int32, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// HasNumber reports whether number is present in the value table.
func (e *EnumSpec) HasNumber(number int32) bool {
	for _, v := range e.Values {
		if v.Number == number {
			return true
		}
	}
	return false
}

// MessageSpec describes a message type: an ordered field list plus nested
// message and enum types. Nested specs are owned by their parent.
type MessageSpec struct {
	Name     string
	Fields   []FieldSpec
	Messages []*MessageSpec
	Enums    []*EnumSpec
	Doc      string
}

// AddField appends a field, assigning the next free number when f.Number is
// zero. Field names and numbers must be unique within the message.
func (m *MessageSpec) AddField(f FieldSpec) error {
	if err := ValidateName(f.Name); err != nil {
		return err
	}
	if f.Number == 0 {
		f.Number = m.nextNumber()
	}
	for _, existing := range m.Fields {
		if existing.Name == f.Name {
			return fmt.Errorf("%w: field %s.%s", ErrDuplicateName, m.Name, f.Name)
		}
		if existing.Number == f.Number {
			return fmt.Errorf("%w: field number %d in %s", ErrDuplicateName, f.Number, m.Name)
		}
	}
	m.Fields = append(m.Fields, f)
	return nil
}

func (m *MessageSpec) nextNumber() int32 {
	var max int32
	for _, f := range m.Fields {
		if f.Number > max {
			max = f.Number
		}
	}
	return max + 1
}

// Field returns the field with the given name.
func (m *MessageSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (m *MessageSpec) validate() error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	names := make(map[string]bool, len(m.Fields))
	numbers := make(map[int32]bool, len(m.Fields))
	for _, f := range m.Fields {
		if err := ValidateName(f.Name); err != nil {
			return err
		}
		if f.Number < 1 {
			return fmt.Errorf("%w: field %s.%s has number %d", ErrInvalidValue, m.Name, f.Name, f.Number)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: field %s.%s", ErrDuplicateName, m.Name, f.Name)
		}
		if numbers[f.Number] {
			return fmt.Errorf("%w: field number %d in %s", ErrDuplicateName, f.Number, m.Name)
		}
		names[f.Name] = true
		numbers[f.Number] = true
	}
	for _, nested := range m.Messages {
		if err := nested.validate(); err != nil {
			return err
		}
	}
	for _, enum := range m.Enums {
		if err := ValidateName(enum.Name); err != nil {
			return err
		}
	}
	return nil
}

// MethodSpec describes one RPC method. Input and output reference registered
// messages by name. ServerStreaming marks methods synthesized from streaming
// functions; nothing in the SDK produces client streaming.
type MethodSpec struct {
	Name            string
	InputType       string
	OutputType      string
	ClientStreaming bool
	ServerStreaming bool
	Options         []Option
}

// ServiceSpec describes a service: an ordered method list with unique names.
type ServiceSpec struct {
	Name    string
	Methods []MethodSpec
	Doc     string
}

// AddMethod appends a method, rejecting duplicate method names.
func (s *ServiceSpec) AddMethod(m MethodSpec) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	for _, existing := range s.Methods {
		if existing.Name == m.Name {
			return fmt.Errorf("%w: method %s.%s", ErrDuplicateName, s.Name, m.Name)
		}
	}
	s.Methods = append(s.Methods, m)
	return nil
}

// Registry owns all synthesized message and service specs for one conversion
// session and preserves registration order for deterministic rendering.
//
// A Registry is not safe for unsynchronized concurrent registration; callers
// sharing one across goroutines must serialize Register calls externally.
type Registry struct {
	pkg          string
	messages     map[string]*MessageSpec
	messageOrder []string
	enums        map[string]*EnumSpec
	enumOrder    []string
	services     map[string]*ServiceSpec
	serviceOrder []string
}

// NewRegistry creates an empty registry. pkg, when non-empty, is prefixed to
// all full names and emitted as the package clause of rendered files.
func NewRegistry(pkg string) *Registry {
	return &Registry{
		pkg:      pkg,
		messages: make(map[string]*MessageSpec),
		enums:    make(map[string]*EnumSpec),
		services: make(map[string]*ServiceSpec),
	}
}

// Package returns the registry's package name, which may be empty.
func (r *Registry) Package() string { return r.pkg }

// RegisterMessage adds a message spec. Registering a name already present
// fails with ErrDuplicateName and leaves the registry unchanged.
func (r *Registry) RegisterMessage(m *MessageSpec) error {
	return r.RegisterMessages(m)
}

// RegisterMessages adds several message specs atomically: every name is
// checked before any spec is stored, so a collision registers nothing.
func (r *Registry) RegisterMessages(specs ...*MessageSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, m := range specs {
		if err := m.validate(); err != nil {
			return err
		}
		if _, ok := r.messages[m.Name]; ok || seen[m.Name] {
			return fmt.Errorf("%w: message %s", ErrDuplicateName, m.Name)
		}
		if _, ok := r.enums[m.Name]; ok {
			return fmt.Errorf("%w: message %s collides with enum", ErrDuplicateName, m.Name)
		}
		seen[m.Name] = true
	}
	for _, m := range specs {
		r.messages[m.Name] = m
		r.messageOrder = append(r.messageOrder, m.Name)
	}
	return nil
}

// RegisterEnum adds a top-level enum spec, rejecting names already taken by
// an enum or a message.
func (r *Registry) RegisterEnum(e *EnumSpec) error {
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if _, ok := r.enums[e.Name]; ok {
		return fmt.Errorf("%w: enum %s", ErrDuplicateName, e.Name)
	}
	if _, ok := r.messages[e.Name]; ok {
		return fmt.Errorf("%w: enum %s collides with message", ErrDuplicateName, e.Name)
	}
	r.enums[e.Name] = e
	r.enumOrder = append(r.enumOrder, e.Name)
	return nil
}

// RegisterService adds a service spec, rejecting duplicate names.
func (r *Registry) RegisterService(s *ServiceSpec) error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if _, ok := r.services[s.Name]; ok {
		return fmt.Errorf("%w: service %s", ErrDuplicateName, s.Name)
	}
	r.services[s.Name] = s
	r.serviceOrder = append(r.serviceOrder, s.Name)
	return nil
}

// Message returns the registered message with the given name.
func (r *Registry) Message(name string) (*MessageSpec, bool) {
	m, ok := r.messages[name]
	return m, ok
}

// Enum returns the registered top-level enum with the given name.
func (r *Registry) Enum(name string) (*EnumSpec, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// Enums returns all registered top-level enums in registration order.
func (r *Registry) Enums() []*EnumSpec {
	out := make([]*EnumSpec, 0, len(r.enumOrder))
	for _, name := range r.enumOrder {
		out = append(out, r.enums[name])
	}
	return out
}

// Service returns the registered service with the given name.
func (r *Registry) Service(name string) (*ServiceSpec, bool) {
	s, ok := r.services[name]
	return s, ok
}

// Messages returns all registered messages in registration order.
func (r *Registry) Messages() []*MessageSpec {
	out := make([]*MessageSpec, 0, len(r.messageOrder))
	for _, name := range r.messageOrder {
		out = append(out, r.messages[name])
	}
	return out
}

// Services returns all registered services in registration order.
func (r *Registry) Services() []*ServiceSpec {
	out := make([]*ServiceSpec, 0, len(r.serviceOrder))
	for _, name := range r.serviceOrder {
		out = append(out, r.services[name])
	}
	return out
}

// FullName prefixes name with the registry package, when set.
func (r *Registry) FullName(name string) string {
	if r.pkg == "" {
		return name
	}
	return r.pkg + "." + name
}

package toproto

import (
	"fmt"
	"sort"
	"strings"
)

const renderIndent = "  "

// RenderFile renders everything in the registry as proto3 schema text.
//
// Output is deterministic for a given registry state: messages and services
// appear in registration order, fields in field-number order, nested enums
// before nested messages before fields. Rendering the same registry twice
// yields byte-identical text.
//
// A field or method referencing a name that is neither registered nor nested
// anywhere in the registry fails with ErrUnresolvedReference; no partial
// text is returned.
func RenderFile(reg *Registry) (string, error) {
	res := newResolver(reg)

	var b strings.Builder
	b.WriteString("syntax = \"proto3\";\n")
	if reg.Package() != "" {
		fmt.Fprintf(&b, "\npackage %s;\n", reg.Package())
	}

	for _, msg := range reg.Messages() {
		b.WriteString("\n")
		if err := renderMessage(&b, msg, 0, res); err != nil {
			return "", err
		}
	}
	for _, enum := range reg.Enums() {
		b.WriteString("\n")
		renderEnum(&b, enum, 0)
	}
	for _, svc := range reg.Services() {
		b.WriteString("\n")
		if err := renderService(&b, svc, res); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// resolver tracks every type name declared in the registry, top-level or
// nested, so references can be checked before any text is emitted.
type resolver struct {
	reg   *Registry
	names map[string]bool
}

func newResolver(reg *Registry) *resolver {
	res := &resolver{reg: reg, names: make(map[string]bool)}
	for _, m := range reg.Messages() {
		res.collect(m)
	}
	for _, e := range reg.Enums() {
		res.names[e.Name] = true
	}
	return res
}

func (r *resolver) collect(m *MessageSpec) {
	r.names[m.Name] = true
	for _, e := range m.Enums {
		r.names[e.Name] = true
	}
	for _, nested := range m.Messages {
		r.collect(nested)
	}
}

func (r *resolver) fieldTypeName(owner string, f FieldSpec) (string, error) {
	switch f.Type.Kind {
	case KindMessage, KindEnum:
		if !r.names[f.Type.Name] {
			return "", fmt.Errorf("%w: field %s.%s references %s", ErrUnresolvedReference, owner, f.Name, f.Type.Name)
		}
		return f.Type.Name, nil
	case KindUnknown:
		return "", fmt.Errorf("%w: field %s.%s has no type", ErrUnresolvedReference, owner, f.Name)
	default:
		return f.Type.Kind.String(), nil
	}
}

func (r *resolver) checkMethodType(svc, method, name string) error {
	if _, ok := r.reg.Message(name); !ok {
		return fmt.Errorf("%w: method %s.%s references %s", ErrUnresolvedReference, svc, method, name)
	}
	return nil
}

func renderMessage(b *strings.Builder, m *MessageSpec, level int, res *resolver) error {
	indent := strings.Repeat(renderIndent, level)
	fmt.Fprintf(b, "%smessage %s {\n", indent, m.Name)

	for _, enum := range m.Enums {
		renderEnum(b, enum, level+1)
	}
	for _, nested := range m.Messages {
		if err := renderMessage(b, nested, level+1, res); err != nil {
			return err
		}
	}

	fields := make([]FieldSpec, len(m.Fields))
	copy(fields, m.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Number < fields[j].Number })

	for _, f := range fields {
		typeName, err := res.fieldTypeName(m.Name, f)
		if err != nil {
			return err
		}
		label := ""
		if f.Label == LabelRepeated {
			label = "repeated "
		}
		opts := renderOptions(f.Options)
		fmt.Fprintf(b, "%s%s%s%s %s = %d%s;\n", indent, renderIndent, label, typeName, f.Name, f.Number, opts)
	}

	fmt.Fprintf(b, "%s}\n", indent)
	return nil
}

func renderEnum(b *strings.Builder, e *EnumSpec, level int) {
	indent := strings.Repeat(renderIndent, level)
	fmt.Fprintf(b, "%senum %s {\n", indent, e.Name)
	for _, v := range e.Values {
		fmt.Fprintf(b, "%s%s%s = %d;\n", indent, renderIndent, v.Name, v.Number)
	}
	fmt.Fprintf(b, "%s}\n", indent)
}

func renderService(b *strings.Builder, s *ServiceSpec, res *resolver) error {
	fmt.Fprintf(b, "service %s {\n", s.Name)
	for _, m := range s.Methods {
		if err := res.checkMethodType(s.Name, m.Name, m.InputType); err != nil {
			return err
		}
		if err := res.checkMethodType(s.Name, m.Name, m.OutputType); err != nil {
			return err
		}
		input := m.InputType
		if m.ClientStreaming {
			input = "stream " + input
		}
		output := m.OutputType
		if m.ServerStreaming {
			output = "stream " + output
		}
		fmt.Fprintf(b, "%srpc %s (%s) returns (%s)", renderIndent, m.Name, input, output)
		if len(m.Options) > 0 {
			b.WriteString(" {\n")
			for _, opt := range m.Options {
				fmt.Fprintf(b, "%s%soption %s = %s;\n", renderIndent, renderIndent, opt.Name, opt.Value)
			}
			fmt.Fprintf(b, "%s}\n", renderIndent)
		} else {
			b.WriteString(";\n")
		}
	}
	b.WriteString("}\n")
	return nil
}

func renderOptions(opts []Option) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, fmt.Sprintf("%s = %s", o.Name, o.Value))
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

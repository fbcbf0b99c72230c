package tools

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce a Registry ready for synthesis and dispatch.
// Errors from individual registrations are deferred to Build so app authors
// can chain calls without checking each one.
type RegistryBuilder struct {
	tools []*Tool
	errs  []error
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool *Tool) *RegistryBuilder {
	b.tools = append(b.tools, tool)

	return b
}

// WithFunc analyzes fn as a tool named name and adds it. Analysis errors are
// reported by Build.
func (b *RegistryBuilder) WithFunc(name string, fn any, opts ...Option) *RegistryBuilder {
	t, err := New(name, fn, opts...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.WithTool(t)
}

// Build produces a Registry from the accumulated tools, surfacing the first
// deferred error.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	r := &Registry{tools: make(map[string]*Tool, len(b.tools))}
	for _, t := range b.tools {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

package tools

import (
	"fmt"
	"sync"

	"github.com/porcini-dev/porcini/internal/toproto"
)

// Registry holds the named tools of one app and exposes them for schema
// synthesis and dispatch. It is safe for concurrent reads; registration after
// Build happens only through Add, which takes the write lock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// Get returns the tool with the given name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Add registers a tool, rejecting duplicate names.
func (r *Registry) Add(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// All returns every registered tool in registration order.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Synthesize converts every registered tool into one service named svcName
// inside a fresh schema registry with the given package. The converter fails
// fast: the first unconvertible tool aborts synthesis.
func (r *Registry) Synthesize(pkg, svcName string) (*toproto.Registry, *toproto.ServiceSpec, error) {
	r.mu.RLock()
	specs := make([]toproto.FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	r.mu.RUnlock()

	reg := toproto.NewRegistry(pkg)
	conv := toproto.NewConverter(reg)
	svc, err := conv.SynthesizeService(svcName, specs)
	if err != nil {
		return nil, nil, err
	}
	return reg, svc, nil
}

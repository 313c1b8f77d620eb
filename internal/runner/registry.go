package runner

import (
	"sort"
	"strings"
)

// Names of the runners in the default registry.
const (
	NameByFile = "byfile"
	NameBatch  = "batch"
)

// Registry maps runner names to implementations. It is built once before
// a run and not modified afterwards; With returns an extended copy.
type Registry struct {
	fallback Runner
	named    map[string]Runner
}

// NewRegistry builds a registry whose Lookup falls back to fallback for
// unknown names.
func NewRegistry(fallback Runner, named map[string]Runner) *Registry {
	r := &Registry{fallback: fallback, named: make(map[string]Runner, len(named))}
	for name, impl := range named {
		r.named[normalizeName(name)] = impl
	}
	return r
}

// DefaultRegistry holds the per-file runner (also the fallback) and the
// batch runner, both configured with opts.
func DefaultRegistry(opts Options) *Registry {
	byFile := NewByFile(opts)
	return NewRegistry(byFile, map[string]Runner{
		NameByFile: byFile,
		NameBatch:  NewBatch(opts),
	})
}

// With returns a copy of the registry with name bound to impl.
func (r *Registry) With(name string, impl Runner) *Registry {
	next := NewRegistry(r.fallback, r.named)
	next.named[normalizeName(name)] = impl
	return next
}

// Lookup returns the runner registered under name, or the fallback.
func (r *Registry) Lookup(name string) Runner {
	if impl, ok := r.named[normalizeName(name)]; ok {
		return impl
	}
	return r.fallback
}

// Has reports whether name is explicitly registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.named[normalizeName(name)]
	return ok
}

// Names lists the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.named))
	for name := range r.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

package workflow

import "github.com/windlass-dev/windlass/pkg/registry"

// registryAdapter satisfies ComponentLookup over a *registry.Registry,
// translating the executor's plain-string namespace argument into the
// registry's Namespace type so the two packages don't need to share it.
type registryAdapter struct {
	reg *registry.Registry
}

// NewRegistryAdapter wraps a *registry.Registry as a ComponentLookup.
func NewRegistryAdapter(reg *registry.Registry) ComponentLookup {
	return &registryAdapter{reg: reg}
}

func (a *registryAdapter) Lookup(namespace, name string) (interface{}, error) {
	return a.reg.Lookup(registry.Namespace(namespace), name)
}

func (a *registryAdapter) Has(namespace, name string) bool {
	return a.reg.Has(registry.Namespace(namespace), name)
}

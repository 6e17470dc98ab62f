package schema

import "github.com/windlass-dev/windlass/pkg/registry"

// registryAdapter satisfies ComponentLookup over a *registry.Registry.
type registryAdapter struct {
	reg *registry.Registry
}

// NewRegistryAdapter wraps a *registry.Registry as a ComponentLookup.
func NewRegistryAdapter(reg *registry.Registry) ComponentLookup {
	return &registryAdapter{reg: reg}
}

func (a *registryAdapter) Has(namespace, name string) bool {
	return a.reg.Has(registry.Namespace(namespace), name)
}

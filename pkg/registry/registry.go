// Package registry implements the Component Registry: a named binding
// store with five namespaces (actions, agents, generators,
// context_builders, workflows) populated synchronously at process
// startup before any workflow runs.
package registry

import (
	"context"
	"fmt"
	"sync"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Namespace identifies one of the registry's five binding tables.
type Namespace string

const (
	Actions         Namespace = "actions"
	Agents          Namespace = "agents"
	Generators      Namespace = "generators"
	ContextBuilders Namespace = "context_builders"
	Workflows       Namespace = "workflows"
)

var allNamespaces = []Namespace{Actions, Agents, Generators, ContextBuilders, Workflows}

// maxListedNames is how many available names a lookup-failure error
// names explicitly before falling back to "and N more".
const maxListedNames = 10

// Action is the shape every `actions`-namespace registration must
// satisfy when validation is requested. Agents, generators, context
// builders, and sub-workflows are registered as opaque values — the
// registry only ever hands them back to a caller that already knows
// their concrete type.
type Action interface {
	Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error)
}

// registerOptions configures a single Register call.
type registerOptions struct {
	validate bool
	replace  bool
}

// RegisterOption customizes Register's behavior.
type RegisterOption func(*registerOptions)

// WithValidation toggles the namespace shape check (on by default).
func WithValidation(enabled bool) RegisterOption {
	return func(o *registerOptions) { o.validate = enabled }
}

// WithReplace allows Register to overwrite an existing binding instead
// of failing with a duplicate-registration error. Intended for tests
// only.
func WithReplace(enabled bool) RegisterOption {
	return func(o *registerOptions) { o.replace = enabled }
}

// Registry is a named binding store with five namespaces.
type Registry struct {
	mu   sync.RWMutex
	data map[Namespace]map[string]interface{}
	col  *collate.Collator
}

// New returns an empty Registry with all five namespaces initialized.
func New() *Registry {
	r := &Registry{
		data: make(map[Namespace]map[string]interface{}, len(allNamespaces)),
		col:  collate.New(language.English),
	}
	for _, ns := range allNamespaces {
		r.data[ns] = make(map[string]interface{})
	}
	return r
}

// Register binds name to value in namespace. It fails with a
// duplicate-registration error if name already exists, unless
// WithReplace(true) was passed. Validation (on by default) checks that
// a value registered in the `actions` namespace implements Action.
func (r *Registry) Register(ns Namespace, name string, value interface{}, opts ...RegisterOption) error {
	cfg := registerOptions{validate: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.data[ns]
	if !ok {
		return fmt.Errorf("registry: unknown namespace %q", ns)
	}

	if _, exists := table[name]; exists && !cfg.replace {
		return &werrors.DuplicateComponentError{Namespace: string(ns), Name: name}
	}

	if cfg.validate {
		if err := validateShape(ns, name, value); err != nil {
			return err
		}
	}

	table[name] = value
	return nil
}

func validateShape(ns Namespace, name string, value interface{}) error {
	if value == nil {
		return fmt.Errorf("registry: cannot register nil value as %s/%s", ns, name)
	}
	if ns == Actions {
		if _, ok := value.(Action); !ok {
			return fmt.Errorf("registry: %s/%s does not implement the Action interface", ns, name)
		}
	}
	return nil
}

// Lookup returns the value bound to name in namespace, or a
// reference-resolution error listing up to the first ten
// alphabetically-sorted available names plus "and N more".
func (r *Registry) Lookup(ns Namespace, name string) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.data[ns]
	if !ok {
		return nil, &werrors.ReferenceError{Namespace: string(ns), Name: name}
	}

	v, ok := table[name]
	if !ok {
		names := r.sortedNamesLocked(ns)
		listed := names
		more := 0
		if len(names) > maxListedNames {
			listed = names[:maxListedNames]
			more = len(names) - maxListedNames
		}
		return nil, &werrors.ReferenceError{
			Namespace: string(ns),
			Name:      name,
			Available: listed,
			MoreCount: more,
		}
	}
	return v, nil
}

// Names returns the alphabetically-sorted list of names bound in ns.
func (r *Registry) Names(ns Namespace) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamesLocked(ns)
}

func (r *Registry) sortedNamesLocked(ns Namespace) []string {
	table := r.data[ns]
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	r.col.SortStrings(names)
	return names
}

// Has reports whether name is bound in namespace.
func (r *Registry) Has(ns Namespace, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.data[ns][name]
	return ok
}

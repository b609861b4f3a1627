/**
 * @description
 * Operation registry: the catalog of invokable backend operations. Each
 * descriptor declares its accepted parameters up front, and the invoke
 * boundary enforces them, raising a typed schema rejection for any argument
 * key the operation does not declare. The mediator drives its identity-alias
 * retry off that signal instead of parsing callee error text.
 */

package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
)

// Handler executes one operation against already-validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// ParamSpec declares one accepted parameter of an operation.
type ParamSpec struct {
	Name     string
	Required bool
}

// Descriptor describes one registered operation.
type Descriptor struct {
	// Name is the stable operation name the agent layer invokes.
	Name        string
	Description string
	// Params is the full set of accepted argument keys. Any other key is
	// rejected at the invoke boundary.
	Params []ParamSpec
	// IdentityCandidates lists parameter names the mediator may try, in
	// priority order, when injecting the caller identity. A candidate the
	// operation does not declare in Params is rejected at the invoke
	// boundary, which is exactly the signal that drives the mediator to
	// the next candidate. Empty means the operation takes no identity.
	IdentityCandidates []string
	// Timeout overrides the mediator's default per-call budget when set.
	Timeout time.Duration
	// Mutating marks operations that move money or change state. The
	// mediator never alias-retries these.
	Mutating bool
	Handler  Handler
}

// Registry is a fixed catalog of operations, built once at startup.
type Registry struct {
	ops map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]Descriptor)}
}

// Register adds an operation to the catalog. Registering the same name twice
// is a programming error.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("operation descriptor has no name")
	}
	if d.Handler == nil {
		return fmt.Errorf("operation %q has no handler", d.Name)
	}
	if _, exists := r.ops[d.Name]; exists {
		return fmt.Errorf("operation %q registered twice", d.Name)
	}
	r.ops[d.Name] = d
	return nil
}

// MustRegister is Register for startup wiring, where a bad descriptor is
// unrecoverable.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for an operation name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.ops[name]
	return d, ok
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Descriptor) accepts(key string) bool {
	for _, p := range d.Params {
		if p.Name == key {
			return true
		}
	}
	return false
}

// Invoke validates the argument keys against the descriptor and runs the
// handler. Unknown keys raise a schema rejection; missing required keys a
// validation error. Keys are checked in sorted order so the rejected
// parameter is deterministic.
func (d Descriptor) Invoke(ctx context.Context, args map[string]any) (any, error) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !d.accepts(k) {
			return nil, domain.NewSchemaRejection(k)
		}
	}
	for _, p := range d.Params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return nil, domain.NewValidation("missing_parameter", fmt.Sprintf("missing required parameter %q", p.Name))
		}
	}
	return d.Handler(ctx, args)
}

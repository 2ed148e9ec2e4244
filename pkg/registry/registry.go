// Package registry implements stepflow's type-erased step callable
// registry (spec.md §4.E). Unlike a compiled CI runner that dispatches to
// shell scripts, stepflow steps are native Go callables keyed by name;
// the registry's job is to let the engine hold a single `map[string]...`
// of them despite each callable closing over its own concrete "world"
// type, the same type-erasure problem github.com/nektos/act solves by
// funneling everything through its common.Executor closures
// (pkg/runner/step.go's runStepExecutor) rather than generics.
package registry

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/stepflow/stepflow/pkg/errs"
	"github.com/stepflow/stepflow/pkg/value"
)

// Step is the contract every registered step callable implements. world
// is passed through untyped; Args and the returned outputs are both
// JSON-compatible values (spec.md §3's value model), so a callable
// written against a concrete world type type-asserts it on entry. ctx
// carries the run's cancellation signal, the same way common.Executor
// threads a context through every step stage.
type Step interface {
	Run(ctx context.Context, world any, args map[string]any) (map[string]any, error)
}

// StepFunc adapts a plain function to the Step interface, the common
// case for registering a step without a dedicated named type.
type StepFunc func(ctx context.Context, world any, args map[string]any) (map[string]any, error)

func (f StepFunc) Run(ctx context.Context, world any, args map[string]any) (map[string]any, error) {
	return f(ctx, world, args)
}

type entry struct {
	step     Step
	worldTag reflect.Type
}

// Registry is the append-mostly catalog of named step callables a world
// instance dispatches through. It is safe for concurrent registration
// and lookup, though stepflow's engine only ever calls it from the
// single cooperative execution goroutine (spec.md §5).
type Registry struct {
	mu    sync.RWMutex
	steps map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{steps: map[string]entry{}}
}

// Register adds a step under name, tagging it with the concrete Go type
// the callable expects as its world argument. Registering the same name
// twice is a caller bug and returns an error rather than silently
// overwriting, since a shadowed step would otherwise fail silently much
// later at dispatch time.
func (r *Registry) Register(name string, worldTag reflect.Type, step Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[name]; exists {
		return errs.Customf("step %q is already registered", name)
	}
	r.steps[name] = entry{step: step, worldTag: worldTag}
	return nil
}

// RegisterFunc is the StepFunc-adapting convenience form of Register.
func (r *Registry) RegisterFunc(name string, worldTag reflect.Type, fn StepFunc) error {
	return r.Register(name, worldTag, fn)
}

// Call dispatches args to the step registered under name, running a
// world-type-tag check first: a step registered against one world type
// refuses to run against an incompatible world, surfacing a clear error
// instead of a panic deep inside a type assertion (spec.md invariant on
// dispatch safety).
func (r *Registry) Call(ctx context.Context, name string, world any, args map[string]any) (map[string]any, error) {
	r.mu.RLock()
	e, ok := r.steps[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.StepNotFound(name)
	}

	if e.worldTag != nil && world != nil {
		got := reflect.TypeOf(world)
		if got != e.worldTag {
			return nil, errs.Custom(
				"step " + name + " expects world type " + e.worldTag.String() +
					", got " + got.String())
		}
	}

	outputs, err := e.step.Run(ctx, world, args)
	if err != nil {
		return nil, err
	}
	if outputs == nil {
		return map[string]any{}, nil
	}
	return value.ToMap(outputs)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[name]
	return ok
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// Names returns the registered step names in sorted order, used by
// validation and reporting for deterministic output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

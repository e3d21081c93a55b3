package ikebana

import (
	"reflect"
	"sync"

	"github.com/ikebana-di/ikebana/internal/reflection"
)

// Module is a resolver module: a named set of resolution rules plus zero
// or more delegate modules. Rules are keyed by target type; each type has
// at most one rule in a module tree.
//
// Lookup consults the module's own rules first, then its delegates in
// attachment order. Declaring a rule for a type that is already provided
// anywhere in the tree is a configuration error reported at declaration
// time.
type Module struct {
	name string

	mu        sync.RWMutex
	bindings  map[reflect.Type]*binding
	delegates []*Module
	parents   []*Module
	analyzer  *reflection.Analyzer

	// err holds the first error raised by a ModuleOption passed to
	// NewModule. It is surfaced by Err and again by New.
	err error
}

// ModuleOption is a registration action applied by NewModule.
type ModuleOption func(*Module) error

// NewModule creates a module and applies the given options in order.
// Option errors are deferred: the first one is retained and reported by
// Err, and again when the module is handed to New or Use. This keeps the
// declarative form usable in package-level variables:
//
//	var LoggingModule = ikebana.NewModule("logging",
//	    ikebana.AddSingleton(NewFileLogger, ikebana.As[Logger]()),
//	)
func NewModule(name string, opts ...ModuleOption) *Module {
	m := &Module{
		name:     name,
		bindings: make(map[reflect.Type]*binding),
		analyzer: reflection.New(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			m.err = ModuleError{Module: name, Cause: err}
			break
		}
	}

	return m
}

// AddSingleton declares a shared rule built by NewModule:
//
//	ikebana.NewModule("db", ikebana.AddSingleton(NewPool))
func AddSingleton(ctor any, opts ...BindOption) ModuleOption {
	return func(m *Module) error {
		return m.AddSingleton(ctor, opts...)
	}
}

// AddTransient declares an on-demand rule built by NewModule.
func AddTransient(ctor any, opts ...BindOption) ModuleOption {
	return func(m *Module) error {
		return m.AddTransient(ctor, opts...)
	}
}

// AddInstance declares a pre-built singleton built by NewModule.
func AddInstance(value any, opts ...BindOption) ModuleOption {
	return func(m *Module) error {
		return m.AddInstance(value, opts...)
	}
}

// Use attaches delegate modules, built by NewModule.
func Use(children ...*Module) ModuleOption {
	return func(m *Module) error {
		return m.Use(children...)
	}
}

// Name returns the module's name.
func (m *Module) Name() string {
	return m.name
}

// Err returns the first error raised by a ModuleOption passed to
// NewModule, or nil.
func (m *Module) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// AddSingleton declares that the module provides a shared instance of the
// constructor's return type. The constructor runs at most once per
// injector; its parameters are resolved against the same module tree.
func (m *Module) AddSingleton(ctor any, opts ...BindOption) error {
	b, err := newBinding(ctor, Singleton, m.analyzer, m.name, opts...)
	if err != nil {
		return err
	}
	return m.add(b)
}

// AddTransient declares that the module creates a new instance of the
// constructor's return type on every resolution.
func (m *Module) AddTransient(ctor any, opts ...BindOption) error {
	b, err := newBinding(ctor, Transient, m.analyzer, m.name, opts...)
	if err != nil {
		return err
	}
	return m.add(b)
}

// AddInstance declares a pre-built value as a shared instance. The caller
// retains ownership: the injector never disposes instance rules.
func (m *Module) AddInstance(value any, opts ...BindOption) error {
	b, err := newInstanceBinding(value, m.name, opts...)
	if err != nil {
		return err
	}
	return m.add(b)
}

// Use attaches delegate modules. Resolution of the types they provide is
// forwarded to them, with the parent's own rules taking precedence during
// lookup. Attaching a delegate that provides a type already bound in the
// tree fails with AlreadyBoundError; attaching a module that (transitively)
// delegates back to this one fails with ErrDelegationCycle.
func (m *Module) Use(children ...*Module) error {
	for _, child := range children {
		if child == nil {
			return ModuleError{Module: m.name, Cause: ErrModuleNil}
		}
		if err := child.Err(); err != nil {
			return err
		}
		if child == m || child.reaches(m) {
			return ModuleError{Module: m.name, Cause: ErrDelegationCycle}
		}

		if err := m.checkDelegate(child); err != nil {
			return err
		}

		m.mu.Lock()
		m.delegates = append(m.delegates, child)
		m.mu.Unlock()

		// Rules declared on the child after attachment are checked
		// against this tree too, so they cannot shadow it.
		child.mu.Lock()
		child.parents = append(child.parents, m)
		child.mu.Unlock()
	}

	return nil
}

// Count returns the number of rules in the module tree.
func (m *Module) Count() int {
	count := 0
	m.eachBinding(func(*binding) bool {
		count++
		return true
	})
	return count
}

// Provides reports whether the module tree holds a rule for t.
func (m *Module) Provides(t reflect.Type) bool {
	return m.lookup(t) != nil
}

// add installs a rule after verifying the type is not already provided
// anywhere in the tree, including trees this module was attached to
// with Use.
func (m *Module) add(b *binding) error {
	for _, root := range m.roots(nil) {
		if found := root.lookup(b.Type); found != nil {
			return AlreadyBoundError{Type: b.Type, Module: found.module}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bindings[b.Type]; ok {
		return AlreadyBoundError{Type: b.Type, Module: existing.module}
	}

	m.bindings[b.Type] = b
	return nil
}

// checkDelegate verifies that none of child's types collide with rules
// already present in any tree m belongs to.
func (m *Module) checkDelegate(child *Module) error {
	roots := m.roots(nil)
	var conflict error
	child.eachBinding(func(b *binding) bool {
		for _, root := range roots {
			if found := root.lookup(b.Type); found != nil {
				conflict = AlreadyBoundError{Type: b.Type, Module: found.module}
				return false
			}
		}
		return true
	})
	return conflict
}

// roots returns the topmost module of every tree this module belongs to.
// A module that was never attached with Use is its own root. Lookup from
// a root covers the entire tree, so conflict checks against the roots see
// every rule m's types could collide with.
func (m *Module) roots(seen map[*Module]struct{}) []*Module {
	if seen == nil {
		seen = make(map[*Module]struct{})
	}
	if _, ok := seen[m]; ok {
		return nil
	}
	seen[m] = struct{}{}

	m.mu.RLock()
	parents := append([]*Module(nil), m.parents...)
	m.mu.RUnlock()

	if len(parents) == 0 {
		return []*Module{m}
	}

	var roots []*Module
	for _, p := range parents {
		roots = append(roots, p.roots(seen)...)
	}
	return roots
}

// lookup returns the rule for t, preferring the module's own rules over
// its delegates.
func (m *Module) lookup(t reflect.Type) *binding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.bindings[t]; ok {
		return b
	}
	for _, d := range m.delegates {
		if b := d.lookup(t); b != nil {
			return b
		}
	}
	return nil
}

// reaches reports whether target is reachable through delegation.
func (m *Module) reaches(target *Module) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.delegates {
		if d == target || d.reaches(target) {
			return true
		}
	}
	return false
}

// eachBinding walks every rule in the tree in parent-first order. Types
// shadowed deeper in the tree are visited once, at their effective rule.
// The walk stops when fn returns false.
func (m *Module) eachBinding(fn func(*binding) bool) {
	seen := make(map[reflect.Type]struct{})
	m.walkBindings(seen, fn)
}

func (m *Module) walkBindings(seen map[reflect.Type]struct{}, fn func(*binding) bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.bindings {
		if _, ok := seen[b.Type]; ok {
			continue
		}
		seen[b.Type] = struct{}{}
		if !fn(b) {
			return false
		}
	}
	for _, d := range m.delegates {
		if !d.walkBindings(seen, fn) {
			return false
		}
	}
	return true
}

// boundTypes returns every type provided by the tree, used for error
// suggestions.
func (m *Module) boundTypes() []reflect.Type {
	var types []reflect.Type
	m.eachBinding(func(b *binding) bool {
		types = append(types, b.Type)
		return true
	})
	return types
}

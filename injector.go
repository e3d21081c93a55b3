package ikebana

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ikebana-di/ikebana/internal/graph"
	"github.com/ikebana-di/ikebana/internal/reflection"
)

// Injector pairs a resolver module with a lazily populated map from type
// identity to a provider slot. Singleton slots hold the shared instance
// once built; transient slots hold the factory.
//
// All methods are safe for concurrent use. Resolution is serialized
// internally, so constructors never run concurrently within one injector.
type Injector struct {
	id       string
	module   *Module
	analyzer *reflection.Analyzer

	mu     sync.Mutex
	slots  map[reflect.Type]*slot
	closed bool

	// resources holds constructed singletons that implement Disposable or
	// DisposableWithContext, in construction order.
	resources []any
}

// slot is one entry of the injector's type map.
type slot struct {
	provider provider
}

// An InjectorOption modifies injector construction.
type InjectorOption interface {
	applyInjectorOption(*injectorOptions)
}

type injectorOptions struct {
	validate bool
}

// WithValidation makes New validate the module's rule graph eagerly, so
// missing rules and statically visible cycles fail construction instead
// of the first resolution.
func WithValidation() InjectorOption {
	return validationOption{}
}

type validationOption struct{}

func (validationOption) applyInjectorOption(o *injectorOptions) {
	o.validate = true
}

// New creates an injector for the given module tree. It fails if the
// module is nil or carries a deferred builder error.
func New(module *Module, opts ...InjectorOption) (*Injector, error) {
	if module == nil {
		return nil, ErrModuleNil
	}
	if err := module.Err(); err != nil {
		return nil, err
	}

	options := &injectorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyInjectorOption(options)
		}
	}

	inj := &Injector{
		id:       uuid.NewString(),
		module:   module,
		analyzer: reflection.New(),
		slots:    make(map[reflect.Type]*slot),
	}

	if options.validate {
		if err := inj.Validate(); err != nil {
			return nil, err
		}
	}

	return inj, nil
}

// ID returns the unique ID of this injector.
func (inj *Injector) ID() string {
	return inj.id
}

// Module returns the injector's resolver module.
func (inj *Injector) Module() *Module {
	return inj.module
}

// Resolve returns an instance of the given type. Singleton rules return
// the shared instance, constructing it on first resolution; transient
// rules construct a new value every call.
func (inj *Injector) Resolve(t reflect.Type) (any, error) {
	if t == nil {
		return nil, ResolutionError{Type: nil, Cause: ErrNotBound}
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return nil, ResolutionError{Type: t, Cause: ErrInjectorClosed}
	}

	rc := &resolutionContext{inj: inj}
	return inj.resolveLocked(t, rc)
}

// resolveLocked is the resolution entry point used both by Resolve and by
// recursive dependency resolution. The injector mutex must be held.
func (inj *Injector) resolveLocked(t reflect.Type, rc *resolutionContext) (any, error) {
	if s, ok := inj.slots[t]; ok {
		return s.provider.provide(rc)
	}

	b := inj.module.lookup(t)
	if b == nil {
		return nil, ResolutionError{
			Type:      t,
			Cause:     ErrNotBound,
			Available: inj.module.boundTypes(),
		}
	}

	s := &slot{provider: newProvider(b)}
	inj.slots[t] = s
	return s.provider.provide(rc)
}

// Override installs an explicit instance for the value's type (or for the
// interface given with As). It fails with AlreadyResolvedError once the
// type has been resolved: cached results never change retroactively.
func (inj *Injector) Override(value any, opts ...BindOption) error {
	if value == nil {
		return BindingError{Cause: ErrInstanceNil}
	}

	options := applyBindOptions(opts)

	t := reflect.TypeOf(value)
	if options.as != nil {
		if err := checkAssignable(t, options.as); err != nil {
			return BindingError{Type: t, Cause: err}
		}
		t = options.as
	}

	return inj.overrideInstance(t, value)
}

// OverrideConstructor installs a replacement constructor for its return
// type (or for the interface given with As). The constructor behaves as a
// singleton rule: it runs on the type's first resolution, with its
// parameters resolved against the module tree. Like Override, it is
// rejected after the type's first resolution.
func (inj *Injector) OverrideConstructor(ctor any, opts ...BindOption) error {
	b, err := newBinding(ctor, Singleton, inj.analyzer, "override", opts...)
	if err != nil {
		return err
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return ErrInjectorClosed
	}
	if _, ok := inj.slots[b.Type]; ok {
		return AlreadyResolvedError{Type: b.Type}
	}

	inj.slots[b.Type] = &slot{provider: &singletonProvider{binding: b}}
	return nil
}

func (inj *Injector) overrideInstance(t reflect.Type, value any) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return ErrInjectorClosed
	}
	if _, ok := inj.slots[t]; ok {
		return AlreadyResolvedError{Type: t}
	}

	inj.slots[t] = &slot{provider: &instanceProvider{value: value}}
	return nil
}

// Invoke calls fn with its parameters resolved through the injector, and
// returns fn's trailing error if it has one. Parameter-object structs
// embedding In are supported.
func (inj *Injector) Invoke(fn any) error {
	info, err := inj.analyzer.Analyze(fn)
	if err != nil {
		return InvocationError{Function: reflect.TypeOf(fn), Cause: err}
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return ErrInjectorClosed
	}

	rc := &resolutionContext{inj: inj}
	_, err = reflection.Invoke(info, rc)
	if err != nil {
		var pe reflection.PanicError
		if errors.As(err, &pe) {
			return ConstructorPanicError{Function: info.Type, Panic: pe.Value, Stack: pe.Stack}
		}
		return err
	}

	return nil
}

// Validate walks the declared rule graph and reports every dependency
// with no rule (and no override) plus any statically visible cycle,
// without constructing anything. Types that have been overridden are
// treated as provided and their declared constructors as replaced.
func (inj *Injector) Validate() error {
	// A slot replaces the declared rule for its type: instance overrides
	// provide the type with no dependencies, while constructor overrides
	// (and rules already materialized by resolution) contribute their own
	// constructor's dependencies instead of the module's.
	replaced := make(map[reflect.Type]*binding)

	inj.mu.Lock()
	for t, s := range inj.slots {
		switch p := s.provider.(type) {
		case *instanceProvider:
			replaced[t] = nil
		case *singletonProvider:
			replaced[t] = p.binding
		case *transientProvider:
			replaced[t] = p.binding
		}
	}
	closed := inj.closed
	inj.mu.Unlock()

	if closed {
		return ErrInjectorClosed
	}

	g := graph.New()
	for t, b := range replaced {
		g.AddNode(t)
		if b == nil {
			continue
		}
		for _, dep := range b.dependencies(false) {
			g.AddEdge(t, dep)
		}
	}

	inj.module.eachBinding(func(b *binding) bool {
		g.AddNode(b.Type)
		if _, ok := replaced[b.Type]; ok {
			return true
		}
		for _, dep := range b.dependencies(false) {
			g.AddEdge(b.Type, dep)
		}
		return true
	})

	var errs error
	for _, missing := range g.Missing() {
		errs = multierr.Append(errs, ResolutionError{
			Type:      missing,
			Cause:     ErrNotBound,
			Available: inj.module.boundTypes(),
		})
	}

	if cycle := g.DetectCycle(); cycle != nil {
		errs = multierr.Append(errs, *cycle)
	}

	return errs
}

// Close disposes every singleton the injector constructed, in reverse
// construction order, and marks the injector closed. Singletons
// implementing DisposableWithContext receive ctx; plain Disposables are
// closed directly. Close is idempotent.
func (inj *Injector) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	inj.mu.Lock()
	if inj.closed {
		inj.mu.Unlock()
		return nil
	}
	inj.closed = true
	resources := inj.resources
	inj.resources = nil
	inj.mu.Unlock()

	var errs error
	for i := len(resources) - 1; i >= 0; i-- {
		switch d := resources[i].(type) {
		case DisposableWithContext:
			errs = multierr.Append(errs, d.Close(ctx))
		case Disposable:
			errs = multierr.Append(errs, d.Close())
		}
	}

	if errs == nil {
		return nil
	}
	return DisposalError{Errors: multierr.Errors(errs)}
}

// track records a constructed singleton for disposal at Close. The
// injector mutex is held by the caller.
func (inj *Injector) track(value any) {
	switch value.(type) {
	case DisposableWithContext, Disposable:
		inj.resources = append(inj.resources, value)
	}
}

// resolutionContext carries the per-resolution stack used for cycle
// detection. It implements reflection.Resolver so constructors can pull
// their dependencies through it.
type resolutionContext struct {
	inj   *Injector
	stack []reflect.Type
}

// Resolve implements reflection.Resolver.
func (rc *resolutionContext) Resolve(t reflect.Type) (any, error) {
	return rc.inj.resolveLocked(t, rc)
}

// Known implements reflection.Resolver. It reports whether t can be
// resolved at all, so optional parameter-object fields skip only
// genuinely missing rules.
func (rc *resolutionContext) Known(t reflect.Type) bool {
	if _, ok := rc.inj.slots[t]; ok {
		return true
	}
	return rc.inj.module.Provides(t)
}

// construct runs a rule's constructor, guarding against cycles with the
// resolution stack.
func (rc *resolutionContext) construct(b *binding) (any, error) {
	if b.isInstance {
		return b.instance, nil
	}

	for i, seen := range rc.stack {
		if seen == b.Type {
			path := make([]reflect.Type, 0, len(rc.stack)-i+1)
			path = append(path, rc.stack[i:]...)
			path = append(path, b.Type)
			return nil, CircularDependencyError{Path: path}
		}
	}

	rc.stack = append(rc.stack, b.Type)
	defer func() {
		rc.stack = rc.stack[:len(rc.stack)-1]
	}()

	result, err := reflection.Invoke(b.ctor, rc)
	if err != nil {
		var pe reflection.PanicError
		if errors.As(err, &pe) {
			return nil, ConstructorPanicError{Function: b.ctor.Type, Panic: pe.Value, Stack: pe.Stack}
		}
		return nil, InvocationError{Function: b.ctor.Type, Cause: err}
	}

	return result, nil
}

package ikebana

import (
	"fmt"
	"reflect"

	"github.com/ikebana-di/ikebana/internal/reflection"
)

// binding is a single resolution rule: a target type plus the constructor
// (or pre-built instance) that produces it.
type binding struct {
	// Type is the target type this rule produces.
	Type reflect.Type

	// Lifetime determines caching behavior.
	Lifetime Lifetime

	// ctor holds the analyzed constructor for function-backed rules.
	ctor *reflection.FuncInfo

	// instance holds the value for Instance rules; isInstance
	// discriminates, so nil-typed instances remain representable.
	instance   any
	isInstance bool

	// module is the name of the declaring module, kept for error
	// attribution.
	module string
}

// dependencies returns the types this rule requires.
func (b *binding) dependencies(includeOptional bool) []reflect.Type {
	if b.isInstance {
		return nil
	}
	return b.ctor.Dependencies(includeOptional)
}

// A BindOption modifies how a rule is declared.
type BindOption interface {
	applyBindOption(*bindOptions)
}

type bindOptions struct {
	as reflect.Type
}

// As rebinds a rule to the interface type I instead of the constructor's
// concrete return type. The return type must implement I.
//
//	m.AddSingleton(NewFileLogger, ikebana.As[Logger]())
func As[I any]() BindOption {
	return asOption{target: typeOf[I]()}
}

type asOption struct {
	target reflect.Type
}

func (o asOption) String() string {
	return fmt.Sprintf("As(%s)", o.target)
}

func (o asOption) applyBindOption(opts *bindOptions) {
	opts.as = o.target
}

// newBinding analyzes ctor and builds a rule with the given lifetime.
func newBinding(ctor any, lifetime Lifetime, analyzer *reflection.Analyzer, module string, opts ...BindOption) (*binding, error) {
	if !lifetime.IsValid() {
		return nil, LifetimeError{Value: lifetime}
	}
	if ctor == nil {
		return nil, BindingError{Cause: ErrConstructorNil}
	}

	options := applyBindOptions(opts)

	v := reflect.ValueOf(ctor)
	if v.Kind() != reflect.Func {
		return nil, BindingError{Type: v.Type(), Cause: ErrNotFunction}
	}
	if v.IsNil() {
		return nil, BindingError{Cause: ErrConstructorNil}
	}

	info, err := analyzer.Analyze(ctor)
	if err != nil {
		return nil, BindingError{Type: v.Type(), Cause: err}
	}
	if info.Result == nil {
		return nil, BindingError{Type: v.Type(), Cause: ErrNoResult}
	}

	target := info.Result
	if options.as != nil {
		if err := checkAssignable(info.Result, options.as); err != nil {
			return nil, BindingError{Type: info.Result, Cause: err}
		}
		target = options.as
	}

	return &binding{
		Type:     target,
		Lifetime: lifetime,
		ctor:     info,
		module:   module,
	}, nil
}

// newInstanceBinding wraps a caller-constructed value as a singleton rule.
func newInstanceBinding(value any, module string, opts ...BindOption) (*binding, error) {
	if value == nil {
		return nil, BindingError{Cause: ErrInstanceNil}
	}

	options := applyBindOptions(opts)

	target := reflect.TypeOf(value)
	if options.as != nil {
		if err := checkAssignable(target, options.as); err != nil {
			return nil, BindingError{Type: target, Cause: err}
		}
		target = options.as
	}

	return &binding{
		Type:       target,
		Lifetime:   Singleton,
		instance:   value,
		isInstance: true,
		module:     module,
	}, nil
}

func applyBindOptions(opts []BindOption) *bindOptions {
	options := &bindOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyBindOption(options)
		}
	}
	return options
}

func checkAssignable(concrete, target reflect.Type) error {
	if target.Kind() != reflect.Interface {
		return fmt.Errorf("As target %s must be an interface", formatType(target))
	}
	if !concrete.AssignableTo(target) {
		return fmt.Errorf("%s does not implement %s", formatType(concrete), formatType(target))
	}
	return nil
}

// typeOf returns the reflect.Type of T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

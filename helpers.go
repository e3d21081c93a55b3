package ikebana

import "fmt"

// Resolve resolves a service as type T. T may be a concrete type or an
// interface the rule was bound to with As.
func Resolve[T any](inj *Injector) (T, error) {
	var zero T

	instance, err := inj.Resolve(typeOf[T]())
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, ResolutionError{
			Type:  typeOf[T](),
			Cause: fmt.Errorf("type assertion failed: have %T", instance),
		}
	}

	return result, nil
}

// MustResolve resolves a service as type T and panics on error. Prefer it
// only in wiring code where a misconfigured graph should be fatal.
func MustResolve[T any](inj *Injector) T {
	result, err := Resolve[T](inj)
	if err != nil {
		panic(fmt.Sprintf("ikebana: resolve %s: %v", formatType(typeOf[T]()), err))
	}
	return result
}

// Override installs value as the instance for type T before T's first
// resolution. Unlike Injector.Override, the target type is given
// explicitly, so interfaces need no As option:
//
//	err := ikebana.Override[Mailer](inj, &fakeMailer{})
func Override[T any](inj *Injector, value T) error {
	return inj.overrideInstance(typeOf[T](), value)
}

// IsBound reports whether the injector's module tree (or an override)
// provides type T.
func IsBound[T any](inj *Injector) bool {
	t := typeOf[T]()

	inj.mu.Lock()
	_, overridden := inj.slots[t]
	inj.mu.Unlock()

	return overridden || inj.module.Provides(t)
}

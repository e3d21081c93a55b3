package ikebana

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ikebana-di/ikebana/internal/graph"
)

// Sentinel errors. These are wrapped in the typed errors below before
// being returned, so callers can match them with errors.Is.
var (
	ErrNotBound        = errors.New("no resolution rule for type")
	ErrConstructorNil  = errors.New("constructor cannot be nil")
	ErrModuleNil       = errors.New("module cannot be nil")
	ErrInstanceNil     = errors.New("instance cannot be nil")
	ErrInjectorClosed  = errors.New("injector has been closed")
	ErrDelegationCycle = errors.New("module delegation cycle")
	ErrNotFunction     = errors.New("constructor must be a function")
	ErrNoResult        = errors.New("constructor must return a value")
)

var (
	_ error = LifetimeError{}
	_ error = ModuleError{}
	_ error = BindingError{}
	_ error = AlreadyBoundError{}
	_ error = AlreadyResolvedError{}
	_ error = ResolutionError{}
	_ error = InvocationError{}
	_ error = ConstructorPanicError{}
	_ error = DisposalError{}
	_ error = CircularDependencyError{}
)

// CircularDependencyError reports a dependency cycle, either caught during
// resolution or found ahead of time by Validate.
type CircularDependencyError = graph.CircularDependencyError

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// ModuleError wraps an error raised while building a module.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// BindingError wraps an error raised while declaring a resolution rule.
type BindingError struct {
	Type  reflect.Type // nil when the target type could not be determined
	Cause error
}

func (e BindingError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("invalid rule: %v", e.Cause)
	}
	return fmt.Sprintf("invalid rule for %s: %v", formatType(e.Type), e.Cause)
}

func (e BindingError) Unwrap() error {
	return e.Cause
}

// AlreadyBoundError indicates that a rule for the type already exists in
// the module tree. Module names the module that holds the existing rule.
type AlreadyBoundError struct {
	Type   reflect.Type
	Module string
}

func (e AlreadyBoundError) Error() string {
	return fmt.Sprintf("%s is already bound by module %q", formatType(e.Type), e.Module)
}

// AlreadyResolvedError indicates an attempt to override a type after its
// first resolution. Resolution results are cached and never change
// retroactively.
type AlreadyResolvedError struct {
	Type reflect.Type
}

func (e AlreadyResolvedError) Error() string {
	return fmt.Sprintf("cannot override %s: it has already been resolved", formatType(e.Type))
}

// ResolutionError wraps an error that occurred while resolving a type.
type ResolutionError struct {
	Type  reflect.Type
	Cause error

	// Available lists bound types, used to suggest near-misses when the
	// requested type has no rule.
	Available []reflect.Type
}

func (e ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("cannot resolve %s: %v", formatType(e.Type), e.Cause))

	if errors.Is(e.Cause, ErrNotBound) && len(e.Available) > 0 {
		if similar := findSimilarTypes(e.Type, e.Available); len(similar) > 0 {
			b.WriteString("\n\nDid you mean one of these?\n")
			for _, t := range similar {
				b.WriteString(fmt.Sprintf("  - %s\n", formatType(t)))
			}
		}
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// InvocationError wraps an error returned by a constructor or an Invoke
// target.
type InvocationError struct {
	Function reflect.Type
	Cause    error
}

func (e InvocationError) Error() string {
	return fmt.Sprintf("%s failed: %v", formatType(e.Function), e.Cause)
}

func (e InvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates that a constructor panicked during
// invocation. It carries the panic value and the stack trace.
type ConstructorPanicError struct {
	Function reflect.Type
	Panic    any
	Stack    []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v\n", formatType(e.Function), e.Panic))
	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}
	return b.String()
}

// DisposalError aggregates the errors returned while closing an injector.
type DisposalError struct {
	Errors []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("disposal failed: %v", e.Errors[0])
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("disposal failed with %d errors:", len(e.Errors)))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return b.String()
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsCircularDependencyError reports whether err is (or wraps) a
// CircularDependencyError.
func IsCircularDependencyError(err error) bool {
	var circ *CircularDependencyError
	if errors.As(err, &circ) {
		return true
	}
	var circVal CircularDependencyError
	return errors.As(err, &circVal)
}

// findSimilarTypes finds types with similar names using a simple
// substring match, limited to five suggestions.
func findSimilarTypes(target reflect.Type, available []reflect.Type) []reflect.Type {
	if target == nil || len(available) == 0 {
		return nil
	}

	targetName := strings.ToLower(target.String())
	targetShort := strings.ToLower(shortName(target))

	var similar []reflect.Type
	for _, t := range available {
		if t == nil || t == target {
			continue
		}

		name := strings.ToLower(t.String())
		short := strings.ToLower(shortName(t))

		if targetShort == short ||
			strings.Contains(name, targetShort) ||
			strings.Contains(targetName, short) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// shortName returns the bare type name, looking through one level of
// pointer indirection.
func shortName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// formatType formats a reflect.Type for error messages, preferring the
// short name for named types.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

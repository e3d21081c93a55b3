package reflection

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Resolver supplies dependency instances to the invoker. It is implemented
// by the injector's resolution context.
type Resolver interface {
	// Resolve returns an instance of the given type.
	Resolve(t reflect.Type) (any, error)

	// Known reports whether a rule, override, or cached instance exists
	// for the given type. It is consulted before resolving optional
	// parameter-object fields so that only genuinely missing rules are
	// skipped; resolution failures of known types still propagate.
	Known(t reflect.Type) bool
}

// PanicError captures a panic raised by an invoked function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("function panicked: %v", e.Value)
}

// Invoke calls the analyzed function with arguments resolved through r.
// It returns the function's non-error result (nil when the function has
// none) and its trailing error, if any. A panic inside the function is
// recovered and returned as a PanicError.
func Invoke(info *FuncInfo, r Resolver) (result any, err error) {
	if info == nil {
		return nil, fmt.Errorf("function info cannot be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}

	args := make([]reflect.Value, 0, len(info.Parameters))
	for i, param := range info.Parameters {
		arg, err := buildArgument(param, r)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, param.Type, err)
		}
		args = append(args, arg)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()

	outs := info.Value.Call(args)

	if info.HasError {
		last := outs[len(outs)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}

	if info.Result == nil {
		return nil, nil
	}
	return outs[0].Interface(), nil
}

func buildArgument(param Parameter, r Resolver) (reflect.Value, error) {
	if !param.IsParamObject {
		instance, err := r.Resolve(param.Type)
		if err != nil {
			return reflect.Value{}, err
		}
		return valueOf(instance, param.Type), nil
	}

	obj := reflect.New(param.Type).Elem()
	for _, field := range param.Fields {
		if field.Optional && !r.Known(field.Type) {
			continue
		}

		instance, err := r.Resolve(field.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", field.Name, err)
		}
		obj.Field(field.Index).Set(valueOf(instance, field.Type))
	}

	return obj, nil
}

// valueOf converts a resolved instance to a reflect.Value of the expected
// type. A nil instance (e.g. a constructor legitimately returning a nil
// pointer) becomes the type's zero value.
func valueOf(instance any, t reflect.Type) reflect.Value {
	if instance == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(instance)
}

// Package reflection analyzes constructor functions and invokes them with
// resolved arguments. Analysis results are cached per function.
package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

// In is the marker type embedded in parameter-object structs. A struct
// embedding In has its exported fields resolved individually instead of
// being resolved as a single dependency.
type In struct{}

var (
	inType  = reflect.TypeOf((*In)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// FuncInfo describes an analyzed function: a resolution rule constructor
// or a callable passed to Invoke.
type FuncInfo struct {
	Type       reflect.Type
	Value      reflect.Value
	Parameters []Parameter

	// Result is the type of the first non-error return value, or nil for
	// functions that only return error (or nothing).
	Result reflect.Type

	// HasError reports whether the last return value is an error.
	HasError bool
}

// Parameter describes one function parameter.
type Parameter struct {
	Type reflect.Type

	// IsParamObject reports that Type embeds In and is populated
	// field by field.
	IsParamObject bool

	// Fields holds the injectable fields when IsParamObject is true.
	Fields []Field
}

// Field describes an exported field of a parameter object.
type Field struct {
	Index    int
	Name     string
	Type     reflect.Type
	Optional bool // from the optional:"true" tag
}

// Dependencies returns the flattened set of types the function requires,
// including the fields of parameter objects. Optional fields are excluded
// when includeOptional is false.
func (fi *FuncInfo) Dependencies(includeOptional bool) []reflect.Type {
	var deps []reflect.Type
	for _, p := range fi.Parameters {
		if !p.IsParamObject {
			deps = append(deps, p.Type)
			continue
		}
		for _, f := range p.Fields {
			if f.Optional && !includeOptional {
				continue
			}
			deps = append(deps, f.Type)
		}
	}
	return deps
}

// Analyzer performs reflection-based analysis of functions and caches the
// results. The zero value is not usable; call New.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*FuncInfo
}

// New creates an Analyzer with an empty cache.
func New() *Analyzer {
	return &Analyzer{cache: make(map[uintptr]*FuncInfo)}
}

// Analyze inspects fn and returns its cached FuncInfo. fn must be a
// non-nil function value.
func (a *Analyzer) Analyze(fn any) (*FuncInfo, error) {
	if fn == nil {
		return nil, fmt.Errorf("function cannot be nil")
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function, got %s", v.Type())
	}
	if v.IsNil() {
		return nil, fmt.Errorf("function cannot be nil")
	}

	key := v.Pointer()

	a.mu.RLock()
	info, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := analyze(v)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[key] = info
	a.mu.Unlock()

	return info, nil
}

func analyze(v reflect.Value) (*FuncInfo, error) {
	t := v.Type()

	info := &FuncInfo{
		Type:  t,
		Value: v,
	}

	for i := 0; i < t.NumIn(); i++ {
		param, err := analyzeParameter(t.In(i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d of %s: %w", i, t, err)
		}
		info.Parameters = append(info.Parameters, param)
	}

	for i := 0; i < t.NumOut(); i++ {
		out := t.Out(i)
		if out == errType {
			if i != t.NumOut()-1 {
				return nil, fmt.Errorf("%s: error must be the last return value", t)
			}
			info.HasError = true
			continue
		}
		if info.Result != nil {
			return nil, fmt.Errorf("%s: at most one non-error return value is supported", t)
		}
		info.Result = out
	}

	return info, nil
}

func analyzeParameter(t reflect.Type) (Parameter, error) {
	if !IsParamObject(t) {
		return Parameter{Type: t}, nil
	}

	param := Parameter{Type: t, IsParamObject: true}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous && field.Type == inType {
			continue
		}
		if !field.IsExported() {
			continue
		}
		if field.Type == inType {
			return Parameter{}, fmt.Errorf("field %s: In must be embedded, not named", field.Name)
		}

		param.Fields = append(param.Fields, Field{
			Index:    i,
			Name:     field.Name,
			Type:     field.Type,
			Optional: field.Tag.Get("optional") == "true",
		})
	}

	return param, nil
}

// IsParamObject reports whether t is a struct that embeds In.
func IsParamObject(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
	}
	return false
}

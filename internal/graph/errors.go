package graph

import (
	"reflect"
	"strings"
)

// CircularDependencyError reports a dependency cycle. Path holds the full
// chain, starting and ending at the same type, in resolution order.
type CircularDependencyError struct {
	Path []reflect.Type
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected: ")

	if len(e.Path) == 0 {
		b.WriteString("<empty cycle>")
		return b.String()
	}

	for i, t := range e.Path {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(typeName(t))
	}

	b.WriteString("\n\nTo resolve this:\n")
	b.WriteString("  - Use an interface to break the dependency\n")
	b.WriteString("  - Restructure to remove the circular relationship\n")

	return b.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

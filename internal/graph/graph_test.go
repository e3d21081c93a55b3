package graph

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeA struct{}

type nodeB struct{}

type nodeC struct{}

var (
	typeA = reflect.TypeOf(nodeA{})
	typeB = reflect.TypeOf(nodeB{})
	typeC = reflect.TypeOf(nodeC{})
)

func TestGraph_Missing(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode(typeA)
	g.AddEdge(typeA, typeB)
	g.AddEdge(typeA, typeC)

	missing := g.Missing()
	assert.Equal(t, []reflect.Type{typeB, typeC}, missing)

	g.AddNode(typeB)
	assert.Equal(t, []reflect.Type{typeC}, g.Missing())

	g.AddNode(typeC)
	assert.Empty(t, g.Missing())
}

func TestGraph_Has(t *testing.T) {
	t.Parallel()

	g := New()
	assert.False(t, g.Has(typeA))

	g.AddNode(typeA)
	assert.True(t, g.Has(typeA))

	// Edge targets are not nodes until added explicitly.
	g.AddEdge(typeA, typeB)
	assert.False(t, g.Has(typeB))
}

func TestGraph_DetectCycle(t *testing.T) {
	t.Parallel()

	t.Run("acyclic", func(t *testing.T) {
		t.Parallel()

		g := New()
		g.AddNode(typeA)
		g.AddNode(typeB)
		g.AddNode(typeC)
		g.AddEdge(typeA, typeB)
		g.AddEdge(typeB, typeC)

		assert.Nil(t, g.DetectCycle())
	})

	t.Run("two node cycle", func(t *testing.T) {
		t.Parallel()

		g := New()
		g.AddNode(typeA)
		g.AddNode(typeB)
		g.AddEdge(typeA, typeB)
		g.AddEdge(typeB, typeA)

		err := g.DetectCycle()
		require.NotNil(t, err)

		// Path closes on itself.
		require.GreaterOrEqual(t, len(err.Path), 3)
		assert.Equal(t, err.Path[0], err.Path[len(err.Path)-1])
	})

	t.Run("self cycle", func(t *testing.T) {
		t.Parallel()

		g := New()
		g.AddNode(typeA)
		g.AddEdge(typeA, typeA)

		err := g.DetectCycle()
		require.NotNil(t, err)
		assert.Equal(t, []reflect.Type{typeA, typeA}, err.Path)
	})

	t.Run("cycle behind a chain", func(t *testing.T) {
		t.Parallel()

		g := New()
		g.AddNode(typeA)
		g.AddNode(typeB)
		g.AddNode(typeC)
		g.AddEdge(typeA, typeB)
		g.AddEdge(typeB, typeC)
		g.AddEdge(typeC, typeB)

		err := g.DetectCycle()
		require.NotNil(t, err)

		// Only the cycle participants appear in the path.
		assert.NotContains(t, err.Path, typeA)
	})

	t.Run("deterministic reporting", func(t *testing.T) {
		t.Parallel()

		build := func() *Graph {
			g := New()
			g.AddNode(typeA)
			g.AddNode(typeB)
			g.AddEdge(typeA, typeB)
			g.AddEdge(typeB, typeA)
			return g
		}

		first := build().DetectCycle()
		second := build().DetectCycle()
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, first.Path, second.Path)
	})
}

func TestCircularDependencyError_Message(t *testing.T) {
	t.Parallel()

	err := CircularDependencyError{Path: []reflect.Type{typeA, typeB, typeA}}
	msg := err.Error()

	assert.Contains(t, msg, "circular dependency detected")
	assert.Contains(t, msg, "nodeA -> ")
	assert.Contains(t, msg, "nodeB")

	empty := CircularDependencyError{}
	assert.Contains(t, empty.Error(), "<empty cycle>")
}

package ikebana_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikebana-di/ikebana"
	"github.com/ikebana-di/ikebana/internal/testutil"
)

func TestNewModule(t *testing.T) {
	t.Parallel()

	t.Run("declarative builders", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("app",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.AddSingleton(testutil.NewDatabase),
			ikebana.AddTransient(testutil.NewService),
			ikebana.AddSingleton(testutil.NewMemoryLogger, ikebana.As[testutil.Logger]()),
		)

		require.NoError(t, m.Err())
		assert.Equal(t, "app", m.Name())
		assert.Equal(t, 4, m.Count())
	})

	t.Run("nil builders are skipped", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("app",
			ikebana.AddSingleton(testutil.NewConfig),
			nil,
			ikebana.AddSingleton(testutil.NewDatabase),
		)

		require.NoError(t, m.Err())
		assert.Equal(t, 2, m.Count())
	})

	t.Run("builder errors are deferred", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("broken",
			ikebana.AddSingleton(nil),
		)

		err := m.Err()
		require.Error(t, err)

		var merr ikebana.ModuleError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, "broken", merr.Module)
		assert.ErrorIs(t, err, ikebana.ErrConstructorNil)

		_, err = ikebana.New(m)
		assert.Error(t, err)
	})
}

func TestModule_Add(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-function constructors", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		err := m.AddSingleton(42)
		assert.ErrorIs(t, err, ikebana.ErrNotFunction)
	})

	t.Run("rejects constructors without results", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		err := m.AddSingleton(func() {})
		assert.ErrorIs(t, err, ikebana.ErrNoResult)

		err = m.AddSingleton(func() error { return nil })
		assert.ErrorIs(t, err, ikebana.ErrNoResult)
	})

	t.Run("rejects duplicate rules", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		require.NoError(t, m.AddSingleton(testutil.NewConfig))

		err := m.AddTransient(testutil.NewConfig)
		require.Error(t, err)

		var bound ikebana.AlreadyBoundError
		require.ErrorAs(t, err, &bound)
		assert.Equal(t, "test", bound.Module)
	})

	t.Run("As rebinds to an interface", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		require.NoError(t, m.AddSingleton(testutil.NewMemoryLogger, ikebana.As[testutil.Logger]()))

		inj, err := ikebana.New(m)
		require.NoError(t, err)

		logger, err := ikebana.Resolve[testutil.Logger](inj)
		require.NoError(t, err)
		assert.NotNil(t, logger)

		// The concrete type is not bound, only the interface.
		_, err = ikebana.Resolve[*testutil.MemoryLogger](inj)
		assert.ErrorIs(t, err, ikebana.ErrNotBound)
	})

	t.Run("As rejects non-implementing types", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		err := m.AddSingleton(testutil.NewConfig, ikebana.As[testutil.Logger]())

		var berr ikebana.BindingError
		require.ErrorAs(t, err, &berr)
	})

	t.Run("instances", func(t *testing.T) {
		t.Parallel()

		cfg := &testutil.Config{ID: "fixed", Value: "custom"}

		m := ikebana.NewModule("test")
		require.NoError(t, m.AddInstance(cfg))

		inj, err := ikebana.New(m)
		require.NoError(t, err)

		got, err := ikebana.Resolve[*testutil.Config](inj)
		require.NoError(t, err)
		assert.Same(t, cfg, got)
	})

	t.Run("nil instance", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test")
		err := m.AddInstance(nil)
		assert.ErrorIs(t, err, ikebana.ErrInstanceNil)
	})
}

func TestModule_Use(t *testing.T) {
	t.Parallel()

	t.Run("delegates resolution to children", func(t *testing.T) {
		t.Parallel()

		infra := ikebana.NewModule("infra",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.AddSingleton(testutil.NewDatabase),
			ikebana.AddSingleton(testutil.NewMemoryLogger, ikebana.As[testutil.Logger]()),
		)
		app := ikebana.NewModule("app",
			ikebana.Use(infra),
			ikebana.AddTransient(testutil.NewService),
		)
		require.NoError(t, app.Err())

		inj, err := ikebana.New(app)
		require.NoError(t, err)

		svc, err := ikebana.Resolve[*testutil.Service](inj)
		require.NoError(t, err)
		assert.NotNil(t, svc.DB)
		assert.NotNil(t, svc.Logger)
	})

	t.Run("rejects nil children", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("app")
		err := m.Use(nil)
		assert.ErrorIs(t, err, ikebana.ErrModuleNil)
	})

	t.Run("surfaces deferred child errors", func(t *testing.T) {
		t.Parallel()

		broken := ikebana.NewModule("broken", ikebana.AddSingleton(nil))
		m := ikebana.NewModule("app")

		err := m.Use(broken)
		require.Error(t, err)

		var merr ikebana.ModuleError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, "broken", merr.Module)
	})

	t.Run("rejects conflicting delegates", func(t *testing.T) {
		t.Parallel()

		a := ikebana.NewModule("a", ikebana.AddSingleton(testutil.NewConfig))
		b := ikebana.NewModule("b", ikebana.AddSingleton(testutil.NewConfig))

		m := ikebana.NewModule("app", ikebana.Use(a))
		require.NoError(t, m.Err())

		err := m.Use(b)
		var bound ikebana.AlreadyBoundError
		require.ErrorAs(t, err, &bound)
		assert.Equal(t, "a", bound.Module)
	})

	t.Run("rejects re-declaring a delegated rule", func(t *testing.T) {
		t.Parallel()

		child := ikebana.NewModule("child", ikebana.AddSingleton(testutil.NewConfig))
		parent := ikebana.NewModule("parent", ikebana.Use(child))
		require.NoError(t, parent.Err())

		err := parent.AddSingleton(testutil.NewConfig)
		var bound ikebana.AlreadyBoundError
		require.ErrorAs(t, err, &bound)
		assert.Equal(t, "child", bound.Module)
	})

	t.Run("rejects declaring on a child what the parent provides", func(t *testing.T) {
		t.Parallel()

		child := ikebana.NewModule("child")
		parent := ikebana.NewModule("parent",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.Use(child),
		)
		require.NoError(t, parent.Err())

		// Declared after attachment, so the conflict must surface through
		// the parent link rather than shadow the parent's rule.
		err := child.AddSingleton(testutil.NewConfig)
		var bound ikebana.AlreadyBoundError
		require.ErrorAs(t, err, &bound)
		assert.Equal(t, "parent", bound.Module)
	})

	t.Run("rejects post-attachment sibling conflicts", func(t *testing.T) {
		t.Parallel()

		a := ikebana.NewModule("a", ikebana.AddSingleton(testutil.NewConfig))
		b := ikebana.NewModule("b")
		root := ikebana.NewModule("root", ikebana.Use(a, b))
		require.NoError(t, root.Err())

		err := b.AddSingleton(testutil.NewConfig)
		var bound ikebana.AlreadyBoundError
		require.ErrorAs(t, err, &bound)
		assert.Equal(t, "a", bound.Module)
	})

	t.Run("rejects delegation cycles", func(t *testing.T) {
		t.Parallel()

		a := ikebana.NewModule("a")
		b := ikebana.NewModule("b")
		require.NoError(t, a.Use(b))

		assert.ErrorIs(t, b.Use(a), ikebana.ErrDelegationCycle)
		assert.ErrorIs(t, a.Use(a), ikebana.ErrDelegationCycle)
	})

	t.Run("nested composition counts each rule once", func(t *testing.T) {
		t.Parallel()

		leaf := ikebana.NewModule("leaf", ikebana.AddSingleton(testutil.NewConfig))
		mid := ikebana.NewModule("mid",
			ikebana.Use(leaf),
			ikebana.AddSingleton(testutil.NewDatabase),
		)
		root := ikebana.NewModule("root",
			ikebana.Use(mid),
			ikebana.AddSingleton(testutil.NewMemoryLogger, ikebana.As[testutil.Logger]()),
		)
		require.NoError(t, root.Err())

		assert.Equal(t, 3, root.Count())
	})
}

func TestModule_Provides(t *testing.T) {
	t.Parallel()

	child := ikebana.NewModule("child", ikebana.AddSingleton(testutil.NewConfig))
	parent := ikebana.NewModule("parent", ikebana.Use(child))
	require.NoError(t, parent.Err())

	inj, err := ikebana.New(parent)
	require.NoError(t, err)

	assert.True(t, ikebana.IsBound[*testutil.Config](inj))
	assert.False(t, ikebana.IsBound[*testutil.Service](inj))
}

func TestModule_ErrUnwrap(t *testing.T) {
	t.Parallel()

	m := ikebana.NewModule("app", ikebana.AddSingleton(42))
	err := m.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ikebana.ErrNotFunction))
}

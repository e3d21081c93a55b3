package ikebana_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikebana-di/ikebana"
	"github.com/ikebana-di/ikebana/internal/testutil"
)

type serviceParams struct {
	ikebana.In

	Config *testutil.Config
	Logger testutil.Logger          `optional:"true"`
	Closer *testutil.ContextCloser `optional:"true"`
}

type paramService struct {
	cfg    *testutil.Config
	logger testutil.Logger
	closer *testutil.ContextCloser
}

func newParamService(p serviceParams) *paramService {
	return &paramService{cfg: p.Config, logger: p.Logger, closer: p.Closer}
}

func TestIn_ParamObjects(t *testing.T) {
	t.Parallel()

	t.Run("fields are resolved individually", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.AddSingleton(testutil.NewMemoryLogger, ikebana.As[testutil.Logger]()),
			ikebana.AddSingleton(newParamService),
		)
		inj, err := ikebana.New(m)
		require.NoError(t, err)

		svc, err := ikebana.Resolve[*paramService](inj)
		require.NoError(t, err)

		assert.NotNil(t, svc.cfg)
		assert.NotNil(t, svc.logger)
		assert.Nil(t, svc.closer, "optional field with no rule stays zero")
	})

	t.Run("missing required field fails", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test",
			// *testutil.Config is not bound.
			ikebana.AddSingleton(newParamService),
		)
		inj, err := ikebana.New(m)
		require.NoError(t, err)

		_, err = ikebana.Resolve[*paramService](inj)
		assert.ErrorIs(t, err, ikebana.ErrNotBound)
	})

	t.Run("failure of a bound optional type propagates", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.AddSingleton(func() (testutil.Logger, error) {
				return nil, testutil.ErrConstructor
			}),
			ikebana.AddSingleton(newParamService),
		)
		inj, err := ikebana.New(m)
		require.NoError(t, err)

		_, err = ikebana.Resolve[*paramService](inj)
		assert.ErrorIs(t, err, testutil.ErrConstructor)
	})

	t.Run("optional field picks up overrides", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test",
			ikebana.AddSingleton(testutil.NewConfig),
			ikebana.AddSingleton(newParamService),
		)
		inj, err := ikebana.New(m)
		require.NoError(t, err)

		closer := testutil.NewContextCloser(nil)
		require.NoError(t, inj.Override(closer))

		svc, err := ikebana.Resolve[*paramService](inj)
		require.NoError(t, err)
		assert.Same(t, closer, svc.closer)
	})

	t.Run("param objects work with Invoke", func(t *testing.T) {
		t.Parallel()

		m := ikebana.NewModule("test",
			ikebana.AddSingleton(testutil.NewConfig),
		)
		inj, err := ikebana.New(m)
		require.NoError(t, err)

		var got *testutil.Config
		err = inj.Invoke(func(p serviceParams) {
			got = p.Config
		})
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

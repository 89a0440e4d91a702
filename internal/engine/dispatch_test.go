package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vmesh/internal/engine"
)

func TestDispatch(t *testing.T) {
	c, counter := boxContext(t)
	require.NoError(t, counter.Edge(c, keyB, keyA))

	variants := []engine.FormatKey{keyC, keyB}

	t.Run("first exact variant wins", func(t *testing.T) {
		d := newBox(t, c, keyC, 1)
		defer d.Release()

		got, err := engine.Dispatch(d, variants, keyA)
		require.NoError(t, err)
		assert.Same(t, d, got)
	})

	t.Run("later exact variant", func(t *testing.T) {
		d := newBox(t, c, keyB, 1)
		defer d.Release()

		got, err := engine.Dispatch(d, variants, keyA)
		require.NoError(t, err)
		assert.Same(t, d, got)
		assert.Zero(t, counter.Conversions[[2]engine.FormatKey{keyB, keyA}])
	})

	t.Run("fallback converts once", func(t *testing.T) {
		d := newBox(t, c, keyB, 9)
		defer d.Release()

		got, err := engine.Dispatch(d, []engine.FormatKey{keyC}, keyA)
		require.NoError(t, err)
		assert.True(t, got.Is(keyA))

		_, err = engine.Dispatch(d, []engine.FormatKey{keyC}, keyA)
		require.NoError(t, err)
		assert.Equal(t, 1, counter.Conversions[[2]engine.FormatKey{keyB, keyA}])
	})

	t.Run("no variant and no edge", func(t *testing.T) {
		d := newBox(t, c, keyA, 1)
		defer d.Release()

		_, err := engine.Dispatch(d, []engine.FormatKey{keyC}, keyB)
		assert.Equal(t, engine.CodeNotConvertible, codeOf(t, err))
		assert.ErrorIs(t, err, engine.ErrConversionNotRegistered)
	})

	t.Run("nil data", func(t *testing.T) {
		_, err := engine.Dispatch(nil, variants, keyA)
		assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))
	})
}

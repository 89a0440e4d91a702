package engine_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/testutil"
)

var (
	keyA = engine.Key("box", "a")
	keyB = engine.Key("box", "b")
	keyC = engine.Key("box", "c")
)

func newContext(t *testing.T, opts ...engine.Option) *engine.Context {
	t.Helper()
	base := []engine.Option{
		engine.WithLogger(slog.New(slog.DiscardHandler)),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("inst")),
		engine.WithSession("session-test"),
	}
	c := engine.New(append(base, opts...)...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// boxContext registers box[a], box[b], box[c] with counting constructors.
func boxContext(t *testing.T, opts ...engine.Option) (*engine.Context, *testutil.Counter) {
	t.Helper()
	c := newContext(t, opts...)
	counter := testutil.NewCounter()
	require.NoError(t, counter.RegisterCounting(c, "box", "a", "b", "c"))
	return c, counter
}

func newBox(t *testing.T, c *engine.Context, key engine.FormatKey, v int) *engine.Data {
	t.Helper()
	d, err := c.MakeData(key.Type, key.Format)
	require.NoError(t, err)
	d.Value().(*testutil.Box).Value = v
	return d
}

func codeOf(t *testing.T, err error) engine.Code {
	t.Helper()
	require.Error(t, err)
	return engine.CodeOf(err)
}

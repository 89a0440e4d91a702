package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vmesh/internal/engine"
)

// registerScale registers "scale": result = value * factor.
func registerScale(t *testing.T, c *engine.Context) {
	t.Helper()
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name: "scale",
		Inputs: []engine.ParamSpec{
			{Name: "value", Type: engine.TypeDouble, Required: true},
			{Name: "factor", Type: engine.TypeDouble, Default: 2.0},
		},
		Outputs: []engine.OutputSpec{
			{Name: "result", Type: engine.TypeDouble},
		},
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				v, _, err := engine.Input(rc, "value", engine.Double)
				if err != nil {
					return err
				}
				f, err := engine.InputOr(rc, "factor", engine.Double, 1.0)
				if err != nil {
					return err
				}
				return engine.SetOutputValue(rc, "result", engine.Double, *v*f)
			})
		},
	}))
}

// source is a test producer whose "value" output equals its seed input.
type source struct {
	runs int
	fail bool
}

func registerSource(t *testing.T, c *engine.Context, name string, s *source) {
	t.Helper()
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name: name,
		Inputs: []engine.ParamSpec{
			{Name: "seed", Type: engine.TypeInt, Default: 1},
		},
		Outputs: []engine.OutputSpec{
			{Name: "value", Type: engine.TypeDouble},
			{Name: "factor", Type: engine.TypeDouble},
		},
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				s.runs++
				if s.fail {
					return errors.New("source exploded")
				}
				seed, err := engine.InputOr(rc, "seed", engine.Int, 0)
				if err != nil {
					return err
				}
				return engine.SetOutputValue(rc, "value", engine.Double, float64(seed))
			})
		},
	}))
}

func newInstance(t *testing.T, c *engine.Context, name string) *engine.AlgorithmInstance {
	t.Helper()
	a, err := c.NewAlgorithm(name)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a
}

func result(t *testing.T, a *engine.AlgorithmInstance) float64 {
	t.Helper()
	v, err := engine.GetOutput(a, "result", engine.Double)
	require.NoError(t, err)
	return *v
}

func TestRun_ExplicitInputs(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	require.NoError(t, a.SetInput("value", 4.0))
	require.NoError(t, a.SetInput("factor", 0.5))
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 2.0, result(t, a))
	assert.Equal(t, engine.StateSucceeded, a.State())
	assert.Equal(t, []string{"result"}, a.OutputNames())
}

func TestRun_DefaultLiteral(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	require.NoError(t, a.SetInput("value", 3.0))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 6.0, result(t, a), "factor defaults to 2.0")
}

func TestRun_IntInputConvertedToDouble(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	require.NoError(t, a.SetInput("value", 5))
	require.NoError(t, a.SetInput("factor", 1))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 5.0, result(t, a))
}

func TestRun_MissingRequiredInputNamesSlot(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	err := a.Run(context.Background())
	require.Error(t, err)

	var e *engine.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, engine.CodeMissingRequiredInput, e.Code)
	assert.Equal(t, "value", e.Slot)
	assert.Equal(t, engine.Double.Key(), e.Key)
	assert.Contains(t, err.Error(), "slot=value")
	assert.Contains(t, err.Error(), "type=double")

	assert.Equal(t, engine.StateFailed, a.State())
	assert.Equal(t, err, a.Err())
	assert.Empty(t, a.OutputNames())
}

func TestRun_InputConversionFailedNamesSlot(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	require.NoError(t, a.SetInput("value", "not a number"))
	err := a.Run(context.Background())

	var e *engine.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, engine.CodeInputConversionFailed, e.Code)
	assert.Equal(t, "value", e.Slot)
	assert.Equal(t, engine.Double.Key(), e.Key)
}

func TestSetInput_UnknownSlot(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	err := a.SetInput("nope", 1.0)
	assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))

	err = a.SetInput("value", struct{}{})
	assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))
}

func TestNewAlgorithm_NotRegistered(t *testing.T) {
	c := newContext(t)
	_, err := c.NewAlgorithm("missing")
	assert.Equal(t, engine.CodeAlgorithmNotRegistered, codeOf(t, err))
	assert.True(t, errors.Is(err, engine.ErrAlgorithmNotRegistered))
}

func TestRegisterAlgorithm_Validation(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)

	err := c.RegisterAlgorithm(engine.AlgorithmTemplate{Name: "scale", New: func() engine.Algorithm { return nil }})
	assert.Equal(t, engine.CodeAlreadyRegistered, codeOf(t, err))

	err = c.RegisterAlgorithm(engine.AlgorithmTemplate{Name: "nofactory"})
	assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))

	err = c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name:   "dupslot",
		Inputs: []engine.ParamSpec{{Name: "x"}, {Name: "x"}},
		New:    func() engine.Algorithm { return nil },
	})
	assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))

	assert.Equal(t, []string{"scale"}, c.AlgorithmNames())
}

func TestRun_DefaultSourcePulledOnce(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	s := &source{}
	registerSource(t, c, "source", s)

	src := newInstance(t, c, "source")
	require.NoError(t, src.SetInput("seed", 3))
	a := newInstance(t, c, "scale")
	a.SetDefaultSource(src)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 6.0, result(t, a))
	assert.Equal(t, 1, s.runs)
	assert.True(t, src.Succeeded())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 1, s.runs, "succeeded source is not re-run")

	// Rewiring the source invalidates it.
	require.NoError(t, src.SetInput("seed", 4))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 2, s.runs)
	assert.Equal(t, 8.0, result(t, a))
}

func TestRun_DefaultSourceOutputNotProducedFallsBackToDefault(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	registerSource(t, c, "source", &source{})

	// source declares "factor" but never sets it.
	src := newInstance(t, c, "source")
	a := newInstance(t, c, "scale")
	a.SetDefaultSource(src)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 2.0, result(t, a), "seed 1 times default factor 2")
}

func TestRun_ExplicitInputBeatsDefaultSource(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	s := &source{}
	registerSource(t, c, "source", s)

	src := newInstance(t, c, "source")
	a := newInstance(t, c, "scale")
	a.SetDefaultSource(src)
	require.NoError(t, a.SetInput("value", 10.0))
	require.NoError(t, a.SetInput("factor", 1.0))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 10.0, result(t, a))
	assert.Equal(t, 0, s.runs, "no slot resolved through the source")
}

func TestRun_SetInputFrom(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	registerSource(t, c, "source", &source{})

	src := newInstance(t, c, "source")
	require.NoError(t, src.SetInput("seed", 7))

	a := newInstance(t, c, "scale")
	require.NoError(t, a.SetInputFrom("factor", src, "value"))
	require.NoError(t, a.SetInput("value", 1.0))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 7.0, result(t, a))

	err := a.SetInputFrom("factor", src, "missing")
	assert.Equal(t, engine.CodeInvalidArgument, codeOf(t, err))

	a.UnsetInput("factor")
	assert.Equal(t, engine.StateWired, a.State())
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 2.0, result(t, a))
}

func TestRun_SourceFailureIsReportedAndRecoverable(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	s := &source{fail: true}
	registerSource(t, c, "source", s)

	src := newInstance(t, c, "source")
	a := newInstance(t, c, "scale")
	a.SetDefaultSource(src)

	err := a.Run(context.Background())
	var e *engine.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, engine.CodeAlgorithmRunFailed, e.Code)
	assert.Equal(t, "value", e.Slot)
	assert.Contains(t, err.Error(), "source exploded")
	assert.Equal(t, engine.StateFailed, a.State())
	assert.Equal(t, engine.StateFailed, src.State())
	_, ok := a.Output("result")
	assert.False(t, ok)

	s.fail = false
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 2.0, result(t, a))
	assert.Equal(t, 2, s.runs)
}

func TestRun_FailedRerunClearsOutputs(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a := newInstance(t, c, "scale")

	require.NoError(t, a.SetInput("value", 1.0))
	require.NoError(t, a.Run(context.Background()))
	_, ok := a.Output("result")
	require.True(t, ok)

	a.UnsetInput("value")
	require.Error(t, a.Run(context.Background()))
	_, ok = a.Output("result")
	assert.False(t, ok)
}

func TestRun_CyclicDefaultSources(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)

	a := newInstance(t, c, "scale")
	b := newInstance(t, c, "scale")
	a.SetDefaultSource(b)
	b.SetDefaultSource(a)

	err := a.Run(context.Background())
	assert.Equal(t, engine.CodeCyclicDependency, codeOf(t, err))
	assert.True(t, errors.Is(err, engine.ErrCyclicDependency))

	self := newInstance(t, c, "scale")
	self.SetDefaultSource(self)
	err = self.Run(context.Background())
	assert.Equal(t, engine.CodeCyclicDependency, codeOf(t, err))
}

func TestRun_BodyPanicIsAFailure(t *testing.T) {
	c := newContext(t)
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name: "boom",
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(*engine.RunContext) error { panic("kaboom") })
		},
	}))
	a := newInstance(t, c, "boom")

	err := a.Run(context.Background())
	assert.Equal(t, engine.CodeAlgorithmRunFailed, codeOf(t, err))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRun_UnknownOutputSlot(t *testing.T) {
	c := newContext(t)
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name: "stray",
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				return engine.SetOutputValue(rc, "nope", engine.Int, 1)
			})
		},
	}))
	a := newInstance(t, c, "stray")

	err := a.Run(context.Background())
	assert.Equal(t, engine.CodeAlgorithmRunFailed, codeOf(t, err))
	assert.True(t, errors.Is(err, engine.ErrInvalidArgument))
	assert.Equal(t, 0, c.LiveData(), "rejected output handle is released")
}

func TestInstance_ReleaseDropsData(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)
	a, err := c.NewAlgorithm("scale")
	require.NoError(t, err)

	require.NoError(t, a.SetInput("value", 5))
	require.NoError(t, a.Run(context.Background()))
	assert.Positive(t, c.LiveData())

	a.Release()
	assert.Equal(t, 0, c.LiveData())
}

func TestInstance_Identity(t *testing.T) {
	c := newContext(t)
	registerScale(t, c)

	a := newInstance(t, c, "scale")
	b := newInstance(t, c, "scale")
	assert.Equal(t, "inst-0001", a.ID())
	assert.Equal(t, "inst-0002", b.ID())

	assert.Equal(t, "scale", a.Name())
	a.SetName("double_it")
	assert.Equal(t, "double_it", a.Name())
	assert.Equal(t, "scale", a.Template().Name)
	assert.Equal(t, engine.StateConstructed, b.State())
}

func TestRunContext_ValidReportsResolvedSlots(t *testing.T) {
	c := newContext(t)
	var valid map[string]bool
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name: "inspect",
		Inputs: []engine.ParamSpec{
			{Name: "note", Type: engine.TypeString},
			{Name: "level", Type: engine.TypeInt, Default: 3},
		},
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				valid = map[string]bool{
					"note":  rc.Valid("note"),
					"level": rc.Valid("level"),
					"other": rc.Valid("other"),
				}
				return nil
			})
		},
	}))
	a := newInstance(t, c, "inspect")

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, map[string]bool{"note": false, "level": true, "other": false}, valid)

	require.NoError(t, a.SetInput("note", "hello"))
	require.NoError(t, a.Run(context.Background()))
	assert.True(t, valid["note"])
}

func TestInstance_ReleaseLogsDestructorFailure(t *testing.T) {
	var logs bytes.Buffer
	c := newContext(t, engine.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, c.RegisterDataType("fragile", "",
		func() (any, error) { return new(int), nil },
		func(any) error { return errors.New("disk on fire") },
	))
	require.NoError(t, c.RegisterAlgorithm(engine.AlgorithmTemplate{
		Name:    "make_fragile",
		Outputs: []engine.OutputSpec{{Name: "out", Type: "fragile"}},
		New: func() engine.Algorithm {
			return engine.AlgorithmFunc(func(rc *engine.RunContext) error {
				_, err := rc.NewOutput("out")
				return err
			})
		},
	}))

	a, err := c.NewAlgorithm("make_fragile")
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))
	assert.NotContains(t, logs.String(), "release data failed")

	a.Release()
	assert.Equal(t, 0, c.LiveData())
	assert.Contains(t, logs.String(), "level=WARN msg=\"release data failed\" type=fragile")
	assert.Contains(t, logs.String(), "disk on fire")
}

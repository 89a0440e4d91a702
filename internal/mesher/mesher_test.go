package mesher

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

func newContext(t *testing.T) *engine.Context {
	t.Helper()
	c := engine.New(engine.WithLogger(slog.New(slog.DiscardHandler)))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.LoadModule(mesh.Module))
	require.NoError(t, c.LoadModule(Module))
	return c
}

func run(t *testing.T, c *engine.Context, name string, inputs map[string]any) *engine.AlgorithmInstance {
	t.Helper()
	a, err := c.NewAlgorithm(name)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	for slot, v := range inputs {
		require.NoError(t, a.SetInput(slot, v))
	}
	require.NoError(t, a.Run(context.Background()))
	return a
}

func intOutput(t *testing.T, a *engine.AlgorithmInstance, name string) int {
	t.Helper()
	v, err := engine.GetOutput(a, name, engine.Int)
	require.NoError(t, err)
	return *v
}

func TestMeshLine(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		size       float64
		cells      int
	}{
		{"exact multiple", 0, 2, 1, 2},
		{"rounds up", 0, 10, 3, 4},
		{"larger than interval", -1, 1, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := meshLine(tt.start, tt.end, tt.size)
			require.NoError(t, err)
			require.NoError(t, m.Validate())
			assert.Len(t, m.Cells, tt.cells)
			assert.Len(t, m.Points, tt.cells+1)
			assert.Equal(t, tt.start, m.Points[0][0])
			assert.Equal(t, tt.end, m.Points[tt.cells][0])
		})
	}

	_, err := meshLine(0, 1, 0)
	assert.ErrorContains(t, err, "cell_size")
	_, err = meshLine(1, 1, 1)
	assert.ErrorContains(t, err, "greater than start")
}

func TestMeshLine_RejectsUnboundedCellCount(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		size       float64
		want       string
	}{
		{"underflowing size", 0, 1, 1e-300, "more than"},
		{"too many cells", 0, 1, 1e-12, "more than"},
		{"just over the limit", 0, MaxCells + 1, 1, "more than"},
		{"infinite end", 0, math.Inf(1), 1, "not finite"},
		{"nan end", 0, math.NaN(), 1, "more than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := meshLine(tt.start, tt.end, tt.size)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	m, err := meshLine(0, 1, 1.0/1024)
	require.NoError(t, err)
	assert.Len(t, m.Cells, 1024)
}

func TestMeshRect(t *testing.T) {
	m, err := meshRect(2, 1, 2, 1)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, []mesh.Point{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}, m.Points)
	assert.Equal(t, [][]int{{0, 1, 4, 3}, {1, 2, 5, 4}}, m.Cells)

	_, err = meshRect(0, 1, 1, 1)
	assert.Error(t, err)
	_, err = meshRect(1, 1, 0, 1)
	assert.Error(t, err)
}

func TestMeshRect_RejectsUnboundedCellCount(t *testing.T) {
	tests := []struct {
		name   string
		nx, ny int
	}{
		{"product over limit", MaxCells/2 + 1, 2},
		{"single axis over limit", MaxCells + 1, 1},
		{"product overflows int", math.MaxInt / 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := meshRect(1, 1, tt.nx, tt.ny)
			assert.ErrorContains(t, err, "exceeds the limit")
		})
	}
}

func TestSplitColumns(t *testing.T) {
	m, err := meshRect(3, 1, 3, 2)
	require.NoError(t, err)

	seg := splitColumns(m, 3)
	assert.Equal(t, []int{0, 0, 1, 0, 0, 1}, seg.Segments)

	seeds := seedPoints(&seg)
	require.Len(t, seeds, 2)
	assert.Equal(t, 0, seeds[0].Segment)
	assert.InDelta(t, 1.0, seeds[0].Point[0], 1e-12)
	assert.InDelta(t, 0.5, seeds[0].Point[1], 1e-12)
	assert.InDelta(t, 2.5, seeds[1].Point[0], 1e-12)
}

func TestLineMesherAlgorithm(t *testing.T) {
	c := newContext(t)
	a := run(t, c, LineMesher, map[string]any{"start": 0, "end": 4.0, "cell_size": 2.0})

	m, err := engine.GetOutput(a, "mesh", mesh.Plain)
	require.NoError(t, err)
	assert.Len(t, m.Cells, 2)
	assert.Equal(t, mesh.Line, m.CellType)
}

func TestLineMesherAlgorithm_MissingEnd(t *testing.T) {
	c := newContext(t)
	a, err := c.NewAlgorithm(LineMesher)
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, a.SetInput("start", 0.0))

	err = a.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrMissingRequiredInput)
	assert.ErrorContains(t, err, "slot=end")
}

func TestRectMesherAlgorithm(t *testing.T) {
	c := newContext(t)

	t.Run("full", func(t *testing.T) {
		a := run(t, c, RectMesher, map[string]any{"width": 2.0, "height": 1.0, "nx": 2})
		d, ok := a.Output("mesh")
		require.True(t, ok)
		assert.True(t, d.Is(mesh.FullMesh.Key()))

		full, err := engine.GetOutput(a, "mesh", mesh.FullMesh)
		require.NoError(t, err)
		assert.Len(t, full.Edges, 7)

		_, ok = a.Output("seed_points")
		assert.False(t, ok)
	})

	t.Run("segmented", func(t *testing.T) {
		a := run(t, c, RectMesher, map[string]any{"width": 2.0, "height": 1.0, "nx": 2, "segmented": true})
		seg, err := engine.GetOutput(a, "mesh", mesh.SegmentedMesh)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, seg.Segments)

		seeds, err := engine.GetOutput(a, "seed_points", mesh.Seeds)
		require.NoError(t, err)
		assert.Len(t, *seeds, 2)
	})
}

func TestMeshStats_DispatchesOnFormat(t *testing.T) {
	c := newContext(t)

	tests := []struct {
		name     string
		inputs   map[string]any
		vertices int
		cells    int
		segments int
	}{
		{"full", map[string]any{"width": 1.0, "height": 1.0, "nx": 2, "ny": 2}, 9, 4, 1},
		{"segmented", map[string]any{"width": 1.0, "height": 1.0, "nx": 2, "ny": 2, "segmented": true}, 9, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := run(t, c, RectMesher, tt.inputs)
			stats, err := c.NewAlgorithm(MeshStats)
			require.NoError(t, err)
			defer stats.Release()
			stats.SetDefaultSource(src)

			require.NoError(t, stats.Run(context.Background()))
			assert.Equal(t, tt.vertices, intOutput(t, stats, "vertex_count"))
			assert.Equal(t, tt.cells, intOutput(t, stats, "cell_count"))
			assert.Equal(t, tt.segments, intOutput(t, stats, "segment_count"))
		})
	}

	t.Run("plain", func(t *testing.T) {
		line := run(t, c, LineMesher, map[string]any{"start": 0.0, "end": 3.0})
		stats, err := c.NewAlgorithm(MeshStats)
		require.NoError(t, err)
		defer stats.Release()
		require.NoError(t, stats.SetInputFrom("mesh", line, "mesh"))
		require.NoError(t, stats.Run(context.Background()))
		assert.Equal(t, 4, intOutput(t, stats, "vertex_count"))
		assert.Equal(t, 3, intOutput(t, stats, "cell_count"))
	})
}

func TestMeshStats_RejectsNonMesh(t *testing.T) {
	c := newContext(t)
	a, err := c.NewAlgorithm(MeshStats)
	require.NoError(t, err)
	defer a.Release()

	require.NoError(t, a.SetInput("mesh", 3))
	err = a.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrInputConversionFailed)
	assert.ErrorContains(t, err, "slot=mesh")
}

package mesher

import (
	"fmt"
	"math"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

type lineMesher struct{}

func (lineMesher) Run(rc *engine.RunContext) error {
	start, _, err := engine.Input(rc, "start", engine.Double)
	if err != nil {
		return err
	}
	end, _, err := engine.Input(rc, "end", engine.Double)
	if err != nil {
		return err
	}
	size, err := engine.InputOr(rc, "cell_size", engine.Double, 1.0)
	if err != nil {
		return err
	}

	m, err := meshLine(*start, *end, size)
	if err != nil {
		return err
	}
	rc.Logger().Info("line meshed", "vertices", len(m.Points), "cells", len(m.Cells))
	return engine.SetOutputValue(rc, "mesh", mesh.Plain, m)
}

// meshLine splits [start, end] into the fewest equal cells no longer than
// size.
func meshLine(start, end, size float64) (mesh.Mesh, error) {
	if size <= 0 || math.IsNaN(size) {
		return mesh.Mesh{}, fmt.Errorf("cell_size must be positive, got %v", size)
	}
	length := end - start
	if length <= 0 {
		return mesh.Mesh{}, fmt.Errorf("end %v must be greater than start %v", end, start)
	}

	if math.IsInf(length, 0) {
		return mesh.Mesh{}, fmt.Errorf("interval [%v, %v] is not finite", start, end)
	}

	ratio := math.Ceil(length/size - 1e-9)
	if math.IsNaN(ratio) || ratio > MaxCells {
		return mesh.Mesh{}, fmt.Errorf("cell_size %v splits [%v, %v] into more than %d cells", size, start, end, MaxCells)
	}
	n := max(int(ratio), 1)
	step := length / float64(n)

	m := mesh.Mesh{
		Dimension: 1,
		CellType:  mesh.Line,
		Points:    make([]mesh.Point, n+1),
		Cells:     make([][]int, n),
	}
	for i := 0; i <= n; i++ {
		m.Points[i] = mesh.Point{start + float64(i)*step}
	}
	m.Points[n] = mesh.Point{end}
	for i := 0; i < n; i++ {
		m.Cells[i] = []int{i, i + 1}
	}
	return m, nil
}

package mesher

import (
	"fmt"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

type rectMesher struct{}

func (rectMesher) Run(rc *engine.RunContext) error {
	w, _, err := engine.Input(rc, "width", engine.Double)
	if err != nil {
		return err
	}
	h, _, err := engine.Input(rc, "height", engine.Double)
	if err != nil {
		return err
	}
	nx, err := engine.InputOr(rc, "nx", engine.Int, 1)
	if err != nil {
		return err
	}
	ny, err := engine.InputOr(rc, "ny", engine.Int, 1)
	if err != nil {
		return err
	}
	segmented, err := engine.InputOr(rc, "segmented", engine.Bool, false)
	if err != nil {
		return err
	}

	m, err := meshRect(*w, *h, nx, ny)
	if err != nil {
		return err
	}

	if !segmented {
		full := mesh.Full{Mesh: m, Edges: mesh.DeriveEdges(&m)}
		rc.Logger().Info("rectangle meshed", "vertices", len(m.Points), "cells", len(m.Cells), "edges", len(full.Edges))
		return engine.SetOutputValue(rc, "mesh", mesh.FullMesh, full)
	}

	seg := splitColumns(m, nx)
	rc.Logger().Info("rectangle meshed", "vertices", len(m.Points), "cells", len(m.Cells), "segments", len(seg.SegmentIDs()))
	if err := engine.SetOutputValue(rc, "mesh", mesh.SegmentedMesh, seg); err != nil {
		return err
	}
	return engine.SetOutputValue(rc, "seed_points", mesh.Seeds, seedPoints(&seg))
}

// meshRect builds a structured nx x ny quadrilateral grid. Vertices are
// numbered row by row from the origin.
func meshRect(w, h float64, nx, ny int) (mesh.Mesh, error) {
	if w <= 0 || h <= 0 {
		return mesh.Mesh{}, fmt.Errorf("width and height must be positive, got %v x %v", w, h)
	}
	if nx < 1 || ny < 1 {
		return mesh.Mesh{}, fmt.Errorf("nx and ny must be at least 1, got %d x %d", nx, ny)
	}
	if nx > MaxCells/ny {
		return mesh.Mesh{}, fmt.Errorf("%d x %d cells exceeds the limit of %d", nx, ny, MaxCells)
	}

	m := mesh.Mesh{
		Dimension: 2,
		CellType:  mesh.Quadrilateral,
		Points:    make([]mesh.Point, 0, (nx+1)*(ny+1)),
		Cells:     make([][]int, 0, nx*ny),
	}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.Points = append(m.Points, mesh.Point{w * float64(i) / float64(nx), h * float64(j) / float64(ny)})
		}
	}
	row := nx + 1
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := j*row + i
			m.Cells = append(m.Cells, []int{v, v + 1, v + row + 1, v + row})
		}
	}
	return m, nil
}

// splitColumns assigns the left half of the columns to segment 0 and the
// rest to segment 1. A single column stays in segment 0.
func splitColumns(m mesh.Mesh, nx int) mesh.Segmented {
	seg := mesh.Segmented{Mesh: m, Segments: make([]int, len(m.Cells))}
	for c := range m.Cells {
		seg.Segments[c] = (c % nx) * 2 / nx
	}
	return seg
}

// seedPoints places one seed at the centroid of each segment's cells.
func seedPoints(s *mesh.Segmented) mesh.SeedPoints {
	var seeds mesh.SeedPoints
	for _, id := range s.SegmentIDs() {
		var sum mesh.Point
		n := 0
		for c, cell := range s.Cells {
			if s.Segments[c] != id {
				continue
			}
			for _, v := range cell {
				for k := range sum {
					sum[k] += s.Points[v][k]
				}
				n++
			}
		}
		for k := range sum {
			sum[k] /= float64(n)
		}
		seeds = append(seeds, mesh.SeedPoint{Point: sum, Segment: id})
	}
	return seeds
}

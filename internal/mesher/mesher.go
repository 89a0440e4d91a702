// Package mesher provides mesh generating and inspecting algorithms.
package mesher

import (
	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

// Algorithm names.
const (
	LineMesher = "line_mesher"
	RectMesher = "rect_mesher"
	MeshStats  = "mesh_stats"
)

// MaxCells bounds the number of cells a single mesher run may generate.
const MaxCells = 1 << 24

// Module registers the algorithms of this package. The mesh module must be
// loaded for them to run.
var Module = engine.ModuleFunc{ModuleName: "mesher", Fn: Register}

// Register adds line_mesher, rect_mesher and mesh_stats.
func Register(r engine.Registrar) error {
	for _, t := range []engine.AlgorithmTemplate{lineTemplate, rectTemplate, statsTemplate} {
		if err := r.RegisterAlgorithm(t); err != nil {
			return err
		}
	}
	return nil
}

var lineTemplate = engine.AlgorithmTemplate{
	Name:        LineMesher,
	Description: "Meshes the interval [start, end] into 1-simplex cells",
	Inputs: []engine.ParamSpec{
		{Name: "start", Type: engine.TypeDouble, Required: true},
		{Name: "end", Type: engine.TypeDouble, Required: true},
		{Name: "cell_size", Type: engine.TypeDouble, Default: 1.0, Description: "upper bound of the cell length"},
	},
	Outputs: []engine.OutputSpec{
		{Name: "mesh", Type: mesh.TypeMesh},
	},
	New: func() engine.Algorithm { return lineMesher{} },
}

var rectTemplate = engine.AlgorithmTemplate{
	Name:        RectMesher,
	Description: "Meshes the rectangle [0, width] x [0, height] into quadrilaterals",
	Inputs: []engine.ParamSpec{
		{Name: "width", Type: engine.TypeDouble, Required: true},
		{Name: "height", Type: engine.TypeDouble, Required: true},
		{Name: "nx", Type: engine.TypeInt, Default: 1},
		{Name: "ny", Type: engine.TypeInt, Default: 1},
		{Name: "segmented", Type: engine.TypeBool, Default: false, Description: "split into left and right segments"},
	},
	Outputs: []engine.OutputSpec{
		{Name: "mesh", Type: mesh.TypeMesh, Format: engine.AnyFormat},
		{Name: "seed_points", Type: mesh.TypeSeedPoints},
	},
	New: func() engine.Algorithm { return rectMesher{} },
}

var statsTemplate = engine.AlgorithmTemplate{
	Name:        MeshStats,
	Description: "Counts vertices, cells and segments of any mesh format",
	Inputs: []engine.ParamSpec{
		{Name: "mesh", Type: mesh.TypeMesh, Format: engine.AnyFormat, Required: true},
	},
	Outputs: []engine.OutputSpec{
		{Name: "vertex_count", Type: engine.TypeInt},
		{Name: "cell_count", Type: engine.TypeInt},
		{Name: "segment_count", Type: engine.TypeInt},
	},
	New: func() engine.Algorithm { return meshStats{} },
}

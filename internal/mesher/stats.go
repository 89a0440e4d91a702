package mesher

import (
	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

// preferred is the order in which mesh_stats looks for a representation it
// reads natively before converting to plain.
var preferred = []engine.FormatKey{mesh.SegmentedMesh.Key(), mesh.FullMesh.Key()}

type meshStats struct{}

func (meshStats) Run(rc *engine.RunContext) error {
	in, _ := rc.Input("mesh")
	d, err := engine.Dispatch(in, preferred, mesh.Plain.Key())
	if err != nil {
		return err
	}

	var (
		m        *mesh.Mesh
		segments = 1
	)
	switch {
	case engine.IsType(d, mesh.SegmentedMesh):
		s, _ := engine.Get(d, mesh.SegmentedMesh)
		m, segments = &s.Mesh, len(s.SegmentIDs())
	case engine.IsType(d, mesh.FullMesh):
		f, _ := engine.Get(d, mesh.FullMesh)
		m = &f.Mesh
	default:
		if m, err = engine.Get(d, mesh.Plain); err != nil {
			return err
		}
	}

	rc.Logger().Debug("mesh stats", "format", in.BinaryFormat(), "read_as", d.BinaryFormat())
	if err := engine.SetOutputValue(rc, "vertex_count", engine.Int, len(m.Points)); err != nil {
		return err
	}
	if err := engine.SetOutputValue(rc, "cell_count", engine.Int, len(m.Cells)); err != nil {
		return err
	}
	return engine.SetOutputValue(rc, "segment_count", engine.Int, segments)
}

package meshio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

// writeOrder lists the representations the writer handles natively, most
// informative first. Anything else is converted to a plain mesh once.
var writeOrder = []engine.FormatKey{mesh.SegmentedMesh.Key(), mesh.FullMesh.Key()}

type writer struct{}

func (writer) Run(rc *engine.RunContext) error {
	filename, _, err := engine.Input(rc, "filename", engine.String)
	if err != nil {
		return err
	}
	explicit, err := engine.InputOr(rc, "file_type", engine.String, "")
	if err != nil {
		return err
	}
	ft, err := fileType(explicit, *filename)
	if err != nil {
		return err
	}

	var seeds mesh.SeedPoints
	if rc.Valid("seed_points") {
		sp, _, err := engine.Input(rc, "seed_points", mesh.Seeds)
		if err != nil {
			return err
		}
		seeds = *sp
	}

	in, _ := rc.Input("mesh")
	d, err := engine.Dispatch(in, writeOrder, mesh.Plain.Key())
	if err != nil {
		return err
	}

	var (
		m   *mesh.Mesh
		seg *mesh.Segmented
	)
	switch {
	case engine.IsType(d, mesh.SegmentedMesh):
		seg, _ = engine.Get(d, mesh.SegmentedMesh)
		m = &seg.Mesh
	case engine.IsType(d, mesh.FullMesh):
		f, _ := engine.Get(d, mesh.FullMesh)
		m = &f.Mesh
	default:
		if m, err = engine.Get(d, mesh.Plain); err != nil {
			return err
		}
	}

	var segments []int
	if seg != nil {
		if err := seg.Validate(); err != nil {
			return err
		}
		segments = seg.Segments
	} else if err := m.Validate(); err != nil {
		return err
	}

	path := *filename
	switch ft {
	case FileTypeVTK:
		err = writeFile(path, func(w io.Writer) error { return WriteVTK(w, m, segments) })
	case FileTypeVMesh:
		var docPath string
		path, docPath = splitVMesh(path)
		if err = writeFile(path, func(w io.Writer) error { return WriteVTK(w, m, segments) }); err != nil {
			break
		}
		doc := NewDocument(filepath.Base(path), m, seg, seeds)
		err = writeFile(docPath, func(w io.Writer) error { return WriteDocument(w, doc) })
	}
	if err != nil {
		return err
	}

	rc.Logger().Info("mesh written",
		"file", path,
		"file_type", ft,
		"format", in.BinaryFormat(),
		"written_as", d.BinaryFormat(),
	)
	return engine.SetOutputValue(rc, "file", engine.String, path)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

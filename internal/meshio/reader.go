package meshio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

type reader struct{}

func (reader) Run(rc *engine.RunContext) error {
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

	vtkPath := *filename
	var doc *Document
	if ft == FileTypeVMesh {
		_, docPath := splitVMesh(*filename)
		d, err := readDocument(docPath)
		if err != nil {
			return err
		}
		doc = &d
		vtkPath = filepath.Join(filepath.Dir(docPath), d.File)
	}

	f, err := os.Open(vtkPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", vtkPath, err)
	}
	defer f.Close()

	m, segments, err := ReadVTK(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", vtkPath, err)
	}
	if doc != nil {
		m.Dimension = doc.Dimension
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("read %s: %w", vtkPath, err)
	}

	rc.Logger().Info("mesh read", "file", vtkPath, "vertices", len(m.Points), "cells", len(m.Cells), "segmented", segments != nil)

	if segments != nil {
		err = engine.SetOutputValue(rc, "mesh", mesh.SegmentedMesh, mesh.Segmented{Mesh: m, Segments: segments})
	} else {
		err = engine.SetOutputValue(rc, "mesh", mesh.Plain, m)
	}
	if err != nil || doc == nil {
		return err
	}

	seeds, err := doc.SeedPoints()
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}
	return engine.SetOutputValue(rc, "seed_points", mesh.Seeds, seeds)
}

func readDocument(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := ReadDocument(f)
	if err != nil {
		return doc, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

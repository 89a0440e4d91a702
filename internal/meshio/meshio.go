// Package meshio provides the mesh_writer and mesh_reader algorithms.
//
// Two file types are supported: legacy ASCII VTK (.vtk), and vmesh, which is
// a .vtk file plus an XML side-car (.vmesh) describing dimension, cell type
// and segmentation.
package meshio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/vmesh/internal/engine"
	"github.com/roach88/vmesh/internal/mesh"
)

// File types.
const (
	FileTypeVTK   = "vtk"
	FileTypeVMesh = "vmesh"
)

// Algorithm names.
const (
	MeshWriter = "mesh_writer"
	MeshReader = "mesh_reader"
)

// Module registers mesh_writer and mesh_reader. The mesh module must be
// loaded for them to run.
var Module = engine.ModuleFunc{ModuleName: "meshio", Fn: Register}

// Register adds the I/O algorithms.
func Register(r engine.Registrar) error {
	if err := r.RegisterAlgorithm(writerTemplate); err != nil {
		return err
	}
	return r.RegisterAlgorithm(readerTemplate)
}

var writerTemplate = engine.AlgorithmTemplate{
	Name:        MeshWriter,
	Description: "Writes a mesh to a vtk or vmesh file",
	Inputs: []engine.ParamSpec{
		{Name: "mesh", Type: mesh.TypeMesh, Format: engine.AnyFormat, Required: true},
		{Name: "filename", Type: engine.TypeString, Required: true},
		{Name: "file_type", Type: engine.TypeString, Description: "vtk or vmesh; inferred from the extension when unset"},
		{Name: "seed_points", Type: mesh.TypeSeedPoints},
	},
	Outputs: []engine.OutputSpec{
		{Name: "file", Type: engine.TypeString, Description: "path of the mesh file written"},
	},
	New: func() engine.Algorithm { return writer{} },
}

var readerTemplate = engine.AlgorithmTemplate{
	Name:        MeshReader,
	Description: "Reads a mesh from a vtk or vmesh file",
	Inputs: []engine.ParamSpec{
		{Name: "filename", Type: engine.TypeString, Required: true},
		{Name: "file_type", Type: engine.TypeString},
	},
	Outputs: []engine.OutputSpec{
		{Name: "mesh", Type: mesh.TypeMesh, Format: engine.AnyFormat},
		{Name: "seed_points", Type: mesh.TypeSeedPoints},
	},
	New: func() engine.Algorithm { return reader{} },
}

// fileType returns the explicit type, or the one implied by the extension.
func fileType(explicit, filename string) (string, error) {
	ft := strings.ToLower(strings.TrimSpace(explicit))
	if ft == "" {
		ft = strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}
	switch ft {
	case FileTypeVTK, FileTypeVMesh:
		return ft, nil
	case "":
		return "", fmt.Errorf("cannot infer file type of %q", filename)
	default:
		return "", fmt.Errorf("unsupported file type %q", ft)
	}
}

// splitVMesh returns the .vtk and .vmesh paths for a vmesh filename.
func splitVMesh(filename string) (vtkPath, docPath string) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + ".vtk", base + ".vmesh"
}

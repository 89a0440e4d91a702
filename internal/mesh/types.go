package mesh

import (
	"fmt"

	"github.com/roach88/vmesh/internal/engine"
)

// Data type and format names registered by Register.
const (
	TypeMesh        = "mesh"
	FormatFull      = "full"
	FormatSegmented = "segmented"
	TypeSeedPoints  = "seed_points"
)

// Typed bindings.
var (
	Plain         = engine.NewType[*Mesh](TypeMesh, engine.DefaultFormat)
	FullMesh      = engine.NewType[*Full](TypeMesh, FormatFull)
	SegmentedMesh = engine.NewType[*Segmented](TypeMesh, FormatSegmented)
	Seeds         = engine.NewType[*SeedPoints](TypeSeedPoints, engine.DefaultFormat)
)

// Module registers the mesh data types and their conversions.
var Module = engine.ModuleFunc{ModuleName: "mesh", Fn: Register}

// Register adds mesh, mesh[full], mesh[segmented] and seed_points, with
// conversions between plain and each richer format in both directions.
func Register(r engine.Registrar) error {
	types := []struct {
		key engine.FormatKey
		mk  engine.MakeFunc
	}{
		{Plain.Key(), func() (any, error) { return new(Mesh), nil }},
		{FullMesh.Key(), func() (any, error) { return new(Full), nil }},
		{SegmentedMesh.Key(), func() (any, error) { return new(Segmented), nil }},
		{Seeds.Key(), func() (any, error) { return new(SeedPoints), nil }},
	}
	for _, t := range types {
		if err := r.RegisterDataType(t.key.Type, t.key.Format, t.mk, nil); err != nil {
			return err
		}
	}

	edges := []struct {
		from, to engine.FormatKey
		fn       engine.ConvertFunc
	}{
		{FullMesh.Key(), Plain.Key(), fullToPlain},
		{Plain.Key(), FullMesh.Key(), plainToFull},
		{SegmentedMesh.Key(), Plain.Key(), segmentedToPlain},
		{Plain.Key(), SegmentedMesh.Key(), plainToSegmented},
	}
	for _, e := range edges {
		if err := r.RegisterConversion(e.from.Type, e.from.Format, e.to.Type, e.to.Format, e.fn); err != nil {
			return err
		}
	}
	return nil
}

func fullToPlain(from, to any) error {
	src, dst, err := cast[Full, Mesh](from, to)
	if err != nil {
		return err
	}
	*dst = src.Mesh.Clone()
	return nil
}

func plainToFull(from, to any) error {
	src, dst, err := cast[Mesh, Full](from, to)
	if err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return err
	}
	dst.Mesh = src.Clone()
	dst.Edges = DeriveEdges(src)
	return nil
}

func segmentedToPlain(from, to any) error {
	src, dst, err := cast[Segmented, Mesh](from, to)
	if err != nil {
		return err
	}
	*dst = src.Mesh.Clone()
	return nil
}

// plainToSegmented puts every cell into segment 0.
func plainToSegmented(from, to any) error {
	src, dst, err := cast[Mesh, Segmented](from, to)
	if err != nil {
		return err
	}
	dst.Mesh = src.Clone()
	dst.Segments = make([]int, len(src.Cells))
	return nil
}

func cast[F, T any](from, to any) (*F, *T, error) {
	src, ok := from.(*F)
	if !ok {
		return nil, nil, fmt.Errorf("source is %T, want %T", from, src)
	}
	dst, ok := to.(*T)
	if !ok {
		return nil, nil, fmt.Errorf("target is %T, want %T", to, dst)
	}
	return src, dst, nil
}

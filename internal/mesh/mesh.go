// Package mesh provides the mesh data types: a plain mesh, a mesh with its
// edge list ("full") and a mesh partitioned into segments ("segmented"),
// plus seed points for segmented meshing.
package mesh

import (
	"fmt"
	"sort"
)

// CellType names the cell shape of a mesh.
type CellType string

const (
	Line          CellType = "1-simplex"
	Triangle      CellType = "2-simplex"
	Quadrilateral CellType = "quadrilateral"
	Tetrahedron   CellType = "3-simplex"
)

var cellVertices = map[CellType]int{
	Line:          2,
	Triangle:      3,
	Quadrilateral: 4,
	Tetrahedron:   4,
}

// Vertices returns the number of vertices per cell, 0 for unknown types.
func (c CellType) Vertices() int { return cellVertices[c] }

// Dimension returns the topological dimension of the cell.
func (c CellType) Dimension() int {
	switch c {
	case Line:
		return 1
	case Triangle, Quadrilateral:
		return 2
	case Tetrahedron:
		return 3
	default:
		return 0
	}
}

// ParseCellType accepts the names above.
func ParseCellType(s string) (CellType, error) {
	ct := CellType(s)
	if _, ok := cellVertices[ct]; !ok {
		return "", fmt.Errorf("unknown cell type %q", s)
	}
	return ct, nil
}

// Point is a vertex position. Unused coordinates are zero.
type Point [3]float64

// Mesh is the plain representation: geometry and cell connectivity.
type Mesh struct {
	// Dimension is the geometric dimension of the points (1..3).
	Dimension int
	CellType  CellType
	Points    []Point
	// Cells index into Points, CellType.Vertices() indices each.
	Cells [][]int
}

// Validate checks the connectivity against the cell type.
func (m *Mesh) Validate() error {
	if m.Dimension < 1 || m.Dimension > 3 {
		return fmt.Errorf("dimension %d out of range", m.Dimension)
	}
	n := m.CellType.Vertices()
	if n == 0 {
		return fmt.Errorf("unknown cell type %q", m.CellType)
	}
	for i, cell := range m.Cells {
		if len(cell) != n {
			return fmt.Errorf("cell %d has %d vertices, %s needs %d", i, len(cell), m.CellType, n)
		}
		for _, v := range cell {
			if v < 0 || v >= len(m.Points) {
				return fmt.Errorf("cell %d references vertex %d of %d", i, v, len(m.Points))
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() Mesh {
	out := Mesh{
		Dimension: m.Dimension,
		CellType:  m.CellType,
		Points:    append([]Point(nil), m.Points...),
		Cells:     make([][]int, len(m.Cells)),
	}
	for i, c := range m.Cells {
		out.Cells[i] = append([]int(nil), c...)
	}
	return out
}

// Edge is an unordered vertex pair stored low index first.
type Edge [2]int

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// cellEdges lists the local vertex pairs that form edges of one cell.
var cellEdges = map[CellType][][2]int{
	Line:          {{0, 1}},
	Triangle:      {{0, 1}, {1, 2}, {2, 0}},
	Quadrilateral: {{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	Tetrahedron:   {{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
}

// DeriveEdges returns the unique edges of m, sorted.
func DeriveEdges(m *Mesh) []Edge {
	local := cellEdges[m.CellType]
	seen := make(map[Edge]struct{})
	for _, cell := range m.Cells {
		for _, le := range local {
			if le[0] >= len(cell) || le[1] >= len(cell) {
				continue
			}
			seen[newEdge(cell[le[0]], cell[le[1]])] = struct{}{}
		}
	}
	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Full is a mesh together with its edge list.
type Full struct {
	Mesh
	Edges []Edge
}

// Segmented is a mesh whose cells carry a segment ID each.
type Segmented struct {
	Mesh
	// Segments[i] is the segment of Cells[i].
	Segments []int
}

// SegmentIDs returns the distinct segment IDs, sorted.
func (s *Segmented) SegmentIDs() []int {
	seen := make(map[int]struct{})
	for _, id := range s.Segments {
		seen[id] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CellCount returns the number of cells in segment id.
func (s *Segmented) CellCount(id int) int {
	n := 0
	for _, seg := range s.Segments {
		if seg == id {
			n++
		}
	}
	return n
}

// Validate checks the mesh and that every cell has a segment.
func (s *Segmented) Validate() error {
	if err := s.Mesh.Validate(); err != nil {
		return err
	}
	if len(s.Segments) != len(s.Cells) {
		return fmt.Errorf("%d segment ids for %d cells", len(s.Segments), len(s.Cells))
	}
	return nil
}

// SeedPoint marks a point inside the region of one segment.
type SeedPoint struct {
	Point   Point
	Segment int
}

// SeedPoints is the instance type of the seed_points data type.
type SeedPoints []SeedPoint

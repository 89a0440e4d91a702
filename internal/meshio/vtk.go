package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/vmesh/internal/mesh"
)

// Legacy VTK cell type codes.
var vtkCellTypes = map[mesh.CellType]int{
	mesh.Line:          3,
	mesh.Triangle:      5,
	mesh.Quadrilateral: 9,
	mesh.Tetrahedron:   10,
}

func cellTypeOf(code int) (mesh.CellType, bool) {
	for ct, c := range vtkCellTypes {
		if c == code {
			return ct, true
		}
	}
	return "", false
}

const (
	vtkHeader     = "# vtk DataFile Version 3.0"
	segmentScalar = "segment_id"

	// Counts read from a file only size the first allocation up to this;
	// the slices grow as entries are actually read.
	preallocLimit   = 1 << 16
	maxCellVertices = 8
)

// WriteVTK writes m as a legacy ASCII unstructured grid. A non-nil segments
// slice is written as integer cell data named segment_id.
func WriteVTK(w io.Writer, m *mesh.Mesh, segments []int) error {
	code, ok := vtkCellTypes[m.CellType]
	if !ok {
		return fmt.Errorf("vtk: unsupported cell type %q", m.CellType)
	}
	if segments != nil && len(segments) != len(m.Cells) {
		return fmt.Errorf("vtk: %d segment ids for %d cells", len(segments), len(m.Cells))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, vtkHeader)
	fmt.Fprintf(bw, "vmesh dimension %d\n", m.Dimension)
	fmt.Fprintln(bw, "ASCII")
	fmt.Fprintln(bw, "DATASET UNSTRUCTURED_GRID")

	fmt.Fprintf(bw, "POINTS %d double\n", len(m.Points))
	for _, p := range m.Points {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]))
	}

	size := 0
	for _, c := range m.Cells {
		size += len(c) + 1
	}
	fmt.Fprintf(bw, "CELLS %d %d\n", len(m.Cells), size)
	for _, c := range m.Cells {
		fields := make([]string, 0, len(c)+1)
		fields = append(fields, strconv.Itoa(len(c)))
		for _, v := range c {
			fields = append(fields, strconv.Itoa(v))
		}
		fmt.Fprintln(bw, strings.Join(fields, " "))
	}

	fmt.Fprintf(bw, "CELL_TYPES %d\n", len(m.Cells))
	for range m.Cells {
		fmt.Fprintln(bw, code)
	}

	if segments != nil {
		fmt.Fprintf(bw, "CELL_DATA %d\n", len(m.Cells))
		fmt.Fprintf(bw, "SCALARS %s int 1\n", segmentScalar)
		fmt.Fprintln(bw, "LOOKUP_TABLE default")
		for _, s := range segments {
			fmt.Fprintln(bw, s)
		}
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ReadVTK reads a file written by WriteVTK. segments is nil when the file
// carries no segment_id cell data.
func ReadVTK(r io.Reader) (m mesh.Mesh, segments []int, err error) {
	br := bufio.NewReader(r)
	header := make([]string, 3)
	for i := range header {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return m, nil, fmt.Errorf("vtk: read header: %w", err)
		}
		header[i] = strings.TrimSpace(line)
	}
	if !strings.HasPrefix(header[0], "# vtk DataFile") {
		return m, nil, fmt.Errorf("vtk: not a legacy vtk file")
	}
	if header[2] != "ASCII" {
		return m, nil, fmt.Errorf("vtk: only ASCII files are supported, got %q", header[2])
	}
	m.Dimension = 3
	if f := strings.Fields(header[1]); len(f) == 3 && f[1] == "dimension" {
		if d, err := strconv.Atoi(f[2]); err == nil {
			m.Dimension = d
		}
	}

	s := &tokens{sc: bufio.NewScanner(br)}
	s.sc.Split(bufio.ScanWords)

	s.expect("DATASET")
	s.expect("UNSTRUCTURED_GRID")

	s.expect("POINTS")
	n := s.count("point count")
	s.word() // scalar type
	m.Points = make([]mesh.Point, 0, min(n, preallocLimit))
	for i := 0; i < n && s.err == nil; i++ {
		var p mesh.Point
		for k := range p {
			p[k] = s.float()
		}
		m.Points = append(m.Points, p)
	}

	s.expect("CELLS")
	nc := s.count("cell count")
	s.int() // total size
	m.Cells = make([][]int, 0, min(nc, preallocLimit))
	for i := 0; i < nc && s.err == nil; i++ {
		k := s.count("vertex count")
		if s.err == nil && k > maxCellVertices {
			s.err = fmt.Errorf("cell %d has %d vertices, at most %d supported", i, k, maxCellVertices)
		}
		if s.err != nil {
			break
		}
		cell := make([]int, k)
		for j := range cell {
			cell[j] = s.int()
		}
		m.Cells = append(m.Cells, cell)
	}

	s.expect("CELL_TYPES")
	s.int()
	for i := 0; i < nc && s.err == nil; i++ {
		code := s.int()
		ct, ok := cellTypeOf(code)
		switch {
		case s.err != nil:
		case !ok:
			s.err = fmt.Errorf("unsupported vtk cell type %d", code)
		case m.CellType == "":
			m.CellType = ct
		case m.CellType != ct:
			s.err = fmt.Errorf("mixed cell types %s and %s", m.CellType, ct)
		}
	}
	if s.err != nil {
		return m, nil, fmt.Errorf("vtk: %w", s.err)
	}

	if s.sc.Scan() && s.sc.Text() == "CELL_DATA" {
		s.int()
		s.expect("SCALARS")
		name := s.word()
		s.word()
		s.word()
		s.expect("LOOKUP_TABLE")
		s.word()
		if name == segmentScalar {
			segments = make([]int, 0, min(nc, preallocLimit))
			for i := 0; i < nc && s.err == nil; i++ {
				segments = append(segments, s.int())
			}
		}
	}
	if s.err != nil {
		return m, nil, fmt.Errorf("vtk: %w", s.err)
	}
	if err := s.sc.Err(); err != nil {
		return m, nil, fmt.Errorf("vtk: %w", err)
	}
	return m, segments, nil
}

// tokens is a word scanner that remembers the first error.
type tokens struct {
	sc  *bufio.Scanner
	err error
}

func (t *tokens) word() string {
	if t.err != nil {
		return ""
	}
	if !t.sc.Scan() {
		t.err = io.ErrUnexpectedEOF
		return ""
	}
	return t.sc.Text()
}

func (t *tokens) expect(keyword string) {
	if w := t.word(); t.err == nil && w != keyword {
		t.err = fmt.Errorf("expected %s, got %q", keyword, w)
	}
}

func (t *tokens) int() int {
	w := t.word()
	if t.err != nil {
		return 0
	}
	v, err := strconv.Atoi(w)
	if err != nil {
		t.err = err
	}
	return v
}

// count reads a non-negative integer.
func (t *tokens) count(what string) int {
	v := t.int()
	if t.err == nil && v < 0 {
		t.err = fmt.Errorf("negative %s %d", what, v)
	}
	if t.err != nil {
		return 0
	}
	return v
}

func (t *tokens) float() float64 {
	w := t.word()
	if t.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(w, 64)
	if err != nil {
		t.err = err
	}
	return v
}

package meshio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/vmesh/internal/mesh"
)

// Document is the .vmesh side-car describing a mesh written next to it.
type Document struct {
	XMLName      xml.Name      `xml:"mesh"`
	File         string        `xml:"file"`
	Dimension    int           `xml:"dimension"`
	VertexCount  int           `xml:"vertex_count"`
	CellCount    int           `xml:"cell_count"`
	SegmentCount int           `xml:"segment_count"`
	Topology     Topology      `xml:"topology"`
	Segmentation *Segmentation `xml:"segmentation,omitempty"`
}

// Topology names the cell type.
type Topology struct {
	CellType string `xml:"celltype"`
}

// Segmentation lists the segments of a segmented mesh.
type Segmentation struct {
	Segments []Segment `xml:"segment"`
}

// Segment describes one segment. SeedPoints hold "x y z" triples.
type Segment struct {
	ID         int      `xml:"id"`
	CellCount  int      `xml:"cell_count"`
	SeedPoints []string `xml:"seed_point,omitempty"`
}

// NewDocument describes m stored in file. seg and seeds may be nil.
func NewDocument(file string, m *mesh.Mesh, seg *mesh.Segmented, seeds mesh.SeedPoints) Document {
	doc := Document{
		File:         file,
		Dimension:    m.Dimension,
		VertexCount:  len(m.Points),
		CellCount:    len(m.Cells),
		SegmentCount: 0,
		Topology:     Topology{CellType: string(m.CellType)},
	}
	if seg == nil {
		return doc
	}

	ids := seg.SegmentIDs()
	doc.SegmentCount = len(ids)
	doc.Segmentation = &Segmentation{}
	for _, id := range ids {
		s := Segment{ID: id, CellCount: seg.CellCount(id)}
		for _, sp := range seeds {
			if sp.Segment == id {
				s.SeedPoints = append(s.SeedPoints, formatPoint(sp.Point, m.Dimension))
			}
		}
		doc.Segmentation.Segments = append(doc.Segmentation.Segments, s)
	}
	return doc
}

// SeedPoints returns the seed points recorded in the segmentation.
func (d *Document) SeedPoints() (mesh.SeedPoints, error) {
	if d.Segmentation == nil {
		return nil, nil
	}
	var out mesh.SeedPoints
	for _, s := range d.Segmentation.Segments {
		for _, text := range s.SeedPoints {
			p, err := parsePoint(text)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", s.ID, err)
			}
			out = append(out, mesh.SeedPoint{Point: p, Segment: s.ID})
		}
	}
	return out, nil
}

// WriteDocument encodes doc as indented XML with a declaration.
func WriteDocument(w io.Writer, doc Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode vmesh: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadDocument decodes a .vmesh side-car.
func ReadDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode vmesh: %w", err)
	}
	if doc.File == "" {
		return doc, fmt.Errorf("decode vmesh: missing <file>")
	}
	return doc, nil
}

func formatPoint(p mesh.Point, dim int) string {
	if dim < 1 || dim > 3 {
		dim = 3
	}
	parts := make([]string, dim)
	for i := range parts {
		parts[i] = formatFloat(p[i])
	}
	return strings.Join(parts, " ")
}

func parsePoint(s string) (mesh.Point, error) {
	var p mesh.Point
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 3 {
		return p, fmt.Errorf("invalid point %q", s)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return p, fmt.Errorf("invalid point %q: %w", s, err)
		}
		p[i] = v
	}
	return p, nil
}

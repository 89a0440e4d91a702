package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pipeline is a named list of algorithm steps and their wiring.
type Pipeline struct {
	Name string `json:"name"`
	// Chain makes each step's default source the step before it, unless the
	// step names one.
	Chain bool   `json:"chain,omitempty"`
	Steps []Step `json:"steps"`
}

// Step instantiates one algorithm.
type Step struct {
	Name          string  `json:"name"`
	Algorithm     string  `json:"algorithm"`
	DefaultSource string  `json:"default_source,omitempty"`
	Inputs        []Input `json:"inputs,omitempty"`
}

// Input binds one input slot to a literal or to another step's output.
// Exactly one of Value and From is set.
type Input struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	From  *Ref   `json:"from,omitempty"`
}

// Ref names an output of a step, written "step.output".
type Ref struct {
	Step   string `json:"step"`
	Output string `json:"output"`
}

func (r Ref) String() string { return r.Step + "." + r.Output }

// ParseRef parses "step.output".
func ParseRef(s string) (Ref, error) {
	step, output, ok := strings.Cut(s, ".")
	if !ok || step == "" || output == "" {
		return Ref{}, fmt.Errorf("invalid reference %q: want step.output", s)
	}
	return Ref{Step: step, Output: output}, nil
}

// Step returns the step with the given name.
func (p *Pipeline) Step(name string) (*Step, bool) {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i], true
		}
	}
	return nil, false
}

// ParseError is a pipeline document error with its source position, when
// known.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Format is a pipeline document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// FormatOf picks the document syntax from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported pipeline file %s: want .yaml, .yml, .cue or .hcl", path)
	}
}

// Parse decodes a document of the given syntax and validates it. filename
// is used in error positions only.
func Parse(format Format, data []byte, filename string) (*Pipeline, error) {
	var (
		p   *Pipeline
		err error
	)
	switch format {
	case FormatYAML:
		p, err = ParseYAML(data, filename)
	case FormatCUE:
		p, err = ParseCUE(data, filename)
	case FormatHCL:
		p, err = ParseHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported pipeline format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if errs := Validate(p); len(errs) > 0 {
		return nil, joinValidation(filename, errs)
	}
	return p, nil
}

// LoadFile reads and parses a pipeline file, choosing the syntax by
// extension.
func LoadFile(path string) (*Pipeline, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	return Parse(format, data, path)
}

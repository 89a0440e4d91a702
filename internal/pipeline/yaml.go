package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlPipeline struct {
	Name  string     `yaml:"name"`
	Chain bool       `yaml:"chain"`
	Steps []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Name          string `yaml:"name"`
	Algorithm     string `yaml:"algorithm"`
	DefaultSource string `yaml:"default_source"`
	// Inputs stays a node so slots keep their document order.
	Inputs yaml.Node `yaml:"inputs"`
}

type yamlLink struct {
	From string `yaml:"from"`
}

// ParseYAML decodes a YAML pipeline document:
//
//	name: rect-to-vtk
//	chain: true
//	steps:
//	  - name: mesher
//	    algorithm: rect_mesher
//	    inputs:
//	      width: 2.0
//	      nx: 4
//	  - name: writer
//	    algorithm: mesh_writer
//	    inputs:
//	      mesh: {from: mesher.mesh}
//	      filename: out.vtk
//
// Unknown fields are rejected.
func ParseYAML(data []byte, filename string) (*Pipeline, error) {
	var doc yamlPipeline
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{File: filename, Message: "empty document"}
		}
		return nil, &ParseError{File: filename, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	p := &Pipeline{Name: doc.Name, Chain: doc.Chain, Steps: make([]Step, 0, len(doc.Steps))}
	for i, ys := range doc.Steps {
		inputs, err := yamlInputs(&ys.Inputs, filename, fmt.Sprintf("steps[%d].inputs", i))
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, Step{
			Name:          ys.Name,
			Algorithm:     ys.Algorithm,
			DefaultSource: ys.DefaultSource,
			Inputs:        inputs,
		})
	}
	return p, nil
}

func yamlInputs(n *yaml.Node, filename, field string) ([]Input, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, yamlError(n, filename, field, "inputs must be a mapping")
	}

	inputs := make([]Input, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		in := Input{Name: key.Value}
		inField := field + "." + key.Value

		switch val.Kind {
		case yaml.ScalarNode:
			if err := val.Decode(&in.Value); err != nil {
				return nil, yamlError(val, filename, inField, err.Error())
			}
		case yaml.MappingNode:
			var link yamlLink
			if err := val.Decode(&link); err != nil {
				return nil, yamlError(val, filename, inField, err.Error())
			}
			ref, err := ParseRef(link.From)
			if err != nil {
				return nil, yamlError(val, filename, inField, err.Error())
			}
			in.From = &ref
		default:
			return nil, yamlError(val, filename, inField, "input must be a scalar or {from: step.output}")
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func yamlError(n *yaml.Node, filename, field, msg string) *ParseError {
	return &ParseError{File: filename, Line: n.Line, Column: n.Column, Field: field, Message: msg}
}

package pipeline

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

type hclPipeline struct {
	Name  string     `hcl:"name,optional"`
	Chain bool       `hcl:"chain,optional"`
	Steps []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	Name          string `hcl:"name,label"`
	Algorithm     string `hcl:"algorithm,optional"`
	DefaultSource string `hcl:"default_source,optional"`
	// Inputs stays an expression so slots keep their source order.
	Inputs hcl.Expression `hcl:"inputs,optional"`
}

// ParseHCL decodes an HCL pipeline document:
//
//	name  = "rect-to-vtk"
//	chain = true
//
//	step "mesher" {
//	  algorithm = "rect_mesher"
//	  inputs = {
//	    width = 2.5
//	    nx    = 4
//	  }
//	}
//
//	step "writer" {
//	  algorithm = "mesh_writer"
//	  inputs = {
//	    mesh     = { from = "mesher.mesh" }
//	    filename = "out.vtk"
//	  }
//	}
//
// HCL has a single number type: whole numbers become int inputs, others
// become double inputs.
func ParseHCL(data []byte, filename string) (*Pipeline, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, hclError(diags, "")
	}

	var doc hclPipeline
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, hclError(diags, "")
	}

	p := &Pipeline{Name: doc.Name, Chain: doc.Chain, Steps: make([]Step, 0, len(doc.Steps))}
	for _, hs := range doc.Steps {
		inputs, err := hclInputs(hs.Inputs, "step."+hs.Name+".inputs")
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, Step{
			Name:          hs.Name,
			Algorithm:     hs.Algorithm,
			DefaultSource: hs.DefaultSource,
			Inputs:        inputs,
		})
	}
	return p, nil
}

func hclInputs(expr hcl.Expression, field string) ([]Input, error) {
	if expr == nil {
		return nil, nil
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsNull() {
		return nil, nil
	}

	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, hclError(diags, field)
	}

	inputs := make([]Input, 0, len(pairs))
	for _, pair := range pairs {
		key, diags := pair.Key.Value(nil)
		if diags.HasErrors() {
			return nil, hclError(diags, field)
		}
		if key.Type() != cty.String || key.IsNull() {
			return nil, hclRangeError(pair.Key.Range(), field, "input name must be a string")
		}
		name := key.AsString()
		inField := field + "." + name

		val, diags := pair.Value.Value(nil)
		if diags.HasErrors() {
			return nil, hclError(diags, inField)
		}
		in, err := hclInput(name, val)
		if err != nil {
			return nil, hclRangeError(pair.Value.Range(), inField, err.Error())
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func hclInput(name string, val cty.Value) (Input, error) {
	in := Input{Name: name}
	if !val.IsKnown() || val.IsNull() {
		return in, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		in.Value = val.AsString()
	case ty == cty.Bool:
		in.Value = val.True()
	case ty == cty.Number:
		if val.AsBigFloat().IsInt() {
			var i int
			if err := gocty.FromCtyValue(val, &i); err != nil {
				return in, fmt.Errorf("could not convert number to int: %w", err)
			}
			in.Value = i
			return in, nil
		}
		var f float64
		if err := gocty.FromCtyValue(val, &f); err != nil {
			return in, fmt.Errorf("could not convert number to float64: %w", err)
		}
		in.Value = f
	case ty.IsObjectType() && ty.HasAttribute("from"):
		var from string
		if err := gocty.FromCtyValue(val.GetAttr("from"), &from); err != nil {
			return in, fmt.Errorf("from: %w", err)
		}
		ref, err := ParseRef(from)
		if err != nil {
			return in, err
		}
		in.From = &ref
	default:
		return in, fmt.Errorf("input must be a string, number, bool or { from = \"step.output\" }, got %s", ty.FriendlyName())
	}
	return in, nil
}

func hclError(diags hcl.Diagnostics, field string) *ParseError {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		if d.Subject != nil {
			return hclRangeError(*d.Subject, field, msg)
		}
		return &ParseError{Field: field, Message: msg}
	}
	return &ParseError{Field: field, Message: diags.Error()}
}

func hclRangeError(rng hcl.Range, field, msg string) *ParseError {
	return &ParseError{
		File:    rng.Filename,
		Line:    rng.Start.Line,
		Column:  rng.Start.Column,
		Field:   field,
		Message: msg,
	}
}

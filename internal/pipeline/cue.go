package pipeline

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ParseCUE decodes a CUE pipeline document:
//
//	name:  "rect-to-vtk"
//	chain: true
//	steps: [
//		{name: "mesher", algorithm: "rect_mesher", inputs: {width: 2.0, nx: 4}},
//		{name: "writer", algorithm: "mesh_writer", inputs: {
//			mesh: from: "mesher.mesh"
//			filename: "out.vtk"
//		}},
//	]
//
// Every field must be concrete. Integer literals become int inputs and
// decimal literals become double inputs.
func ParseCUE(data []byte, filename string) (*Pipeline, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := cueCheckFields(v, "", "name", "chain", "steps"); err != nil {
		return nil, err
	}

	p := &Pipeline{}
	var err error
	if p.Name, err = cueOptionalString(v, "name"); err != nil {
		return nil, err
	}
	if chain := v.LookupPath(cue.ParsePath("chain")); chain.Exists() {
		if p.Chain, err = chain.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return p, nil
	}
	iter, err := stepsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		step, err := cueStep(iter.Value(), fmt.Sprintf("steps[%d]", i))
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func cueStep(v cue.Value, field string) (Step, error) {
	var s Step
	if err := cueCheckFields(v, field, "name", "algorithm", "default_source", "inputs"); err != nil {
		return s, err
	}

	var err error
	if s.Name, err = cueOptionalString(v, "name"); err != nil {
		return s, err
	}
	if s.Algorithm, err = cueOptionalString(v, "algorithm"); err != nil {
		return s, err
	}
	if s.DefaultSource, err = cueOptionalString(v, "default_source"); err != nil {
		return s, err
	}

	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return s, nil
	}
	iter, err := inputsVal.Fields()
	if err != nil {
		return s, formatCUEError(err)
	}
	for iter.Next() {
		in, err := cueInput(iter.Label(), iter.Value(), field+".inputs")
		if err != nil {
			return s, err
		}
		s.Inputs = append(s.Inputs, in)
	}
	return s, nil
}

func cueInput(name string, v cue.Value, field string) (Input, error) {
	in := Input{Name: name}
	field += "." + name

	var err error
	switch v.Kind() {
	case cue.IntKind:
		var i int64
		i, err = v.Int64()
		in.Value = int(i)
	case cue.FloatKind:
		in.Value, err = v.Float64()
	case cue.BoolKind:
		in.Value, err = v.Bool()
	case cue.StringKind:
		in.Value, err = v.String()
	case cue.StructKind:
		from := v.LookupPath(cue.ParsePath("from"))
		if !from.Exists() {
			return in, cueError(v.Pos(), field, "input struct must be {from: \"step.output\"}")
		}
		s, serr := from.String()
		if serr != nil {
			return in, formatCUEError(serr)
		}
		ref, rerr := ParseRef(s)
		if rerr != nil {
			return in, cueError(from.Pos(), field, rerr.Error())
		}
		in.From = &ref
	default:
		return in, cueError(v.Pos(), field, fmt.Sprintf("input must be a concrete scalar or {from: ...}, got %v", v.IncompleteKind()))
	}
	if err != nil {
		return in, formatCUEError(err)
	}
	return in, nil
}

func cueOptionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// cueCheckFields rejects fields outside allowed, catching typos.
func cueCheckFields(v cue.Value, field string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		known := false
		for _, a := range allowed {
			if a == label {
				known = true
				break
			}
		}
		if !known {
			name := label
			if field != "" {
				name = field + "." + label
			}
			return cueError(iter.Value().Pos(), name, "unknown field")
		}
	}
	return nil
}

func cueError(pos token.Pos, field, msg string) *ParseError {
	e := &ParseError{Field: field, Message: msg}
	if pos.IsValid() {
		e.File = pos.Filename()
		e.Line = pos.Line()
		e.Column = pos.Column()
	}
	return e
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return cueError(positions[0], "cue", first.Error())
	}
	return err
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	link := func(step, output string) *Ref { return &Ref{Step: step, Output: output} }

	tests := []struct {
		name  string
		steps []Step
		codes []string
	}{
		{
			name:  "valid",
			steps: rectStats().Steps,
		},
		{
			name:  "no steps",
			codes: []string{ErrNoSteps},
		},
		{
			name:  "empty name and algorithm",
			steps: []Step{{}},
			codes: []string{ErrStepNameEmpty, ErrAlgorithmEmpty},
		},
		{
			name:  "dotted name",
			steps: []Step{{Name: "a.b", Algorithm: "x"}},
			codes: []string{ErrStepNameInvalid},
		},
		{
			name:  "duplicate name",
			steps: []Step{{Name: "a", Algorithm: "x"}, {Name: "a", Algorithm: "y"}},
			codes: []string{ErrDuplicateStep},
		},
		{
			name:  "unknown default source",
			steps: []Step{{Name: "a", Algorithm: "x", DefaultSource: "b"}},
			codes: []string{ErrUnknownStep},
		},
		{
			name:  "self default source",
			steps: []Step{{Name: "a", Algorithm: "x", DefaultSource: "a"}},
			codes: []string{ErrSelfReference},
		},
		{
			name: "later step is a valid source",
			steps: []Step{
				{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in", From: link("b", "out")}}},
				{Name: "b", Algorithm: "y"},
			},
		},
		{
			name:  "self link",
			steps: []Step{{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in", From: link("a", "out")}}}},
			codes: []string{ErrSelfReference},
		},
		{
			name:  "unknown link",
			steps: []Step{{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in", From: link("c", "out")}}}},
			codes: []string{ErrUnknownStep},
		},
		{
			name:  "input bound twice",
			steps: []Step{{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in", Value: 1}, {Name: "in", Value: 2}}}},
			codes: []string{ErrDuplicateInput},
		},
		{
			name:  "input without value",
			steps: []Step{{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in"}}}},
			codes: []string{ErrInputBinding},
		},
		{
			name:  "input with value and link",
			steps: []Step{{Name: "a", Algorithm: "x", Inputs: []Input{{Name: "in", Value: 1, From: link("a", "out")}}}},
			codes: []string{ErrInputBinding},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&Pipeline{Name: "p", Steps: tt.steps})
			var codes []string
			for _, e := range errs {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "steps[0].name", Message: "step name is required", Code: ErrStepNameEmpty}
	assert.Equal(t, "[V102] steps[0].name: step name is required", e.Error())
	assert.Equal(t, "[V102] p.yaml: steps[0].name: step name is required", e.withFile("p.yaml").Error())
}

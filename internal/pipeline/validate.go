package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes (V100-V199)
const (
	ErrNoSteps         = "V101" // pipeline has no steps
	ErrStepNameEmpty   = "V102" // step name is required
	ErrStepNameInvalid = "V103" // step name contains '.'
	ErrDuplicateStep   = "V104" // step name used twice
	ErrAlgorithmEmpty  = "V105" // algorithm is required
	ErrUnknownStep     = "V106" // reference to an undeclared step
	ErrSelfReference   = "V107" // step refers to itself
	ErrDuplicateInput  = "V108" // input slot bound twice
	ErrInputBinding    = "V109" // input has neither or both of value and from
)

// ValidationError is one structural problem in a pipeline.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

func (e ValidationError) withFile(file string) ValidationError {
	e.File = file
	return e
}

// Validate checks a pipeline's structure. Returns all errors found.
// Algorithm names and slot names are checked later, by Instantiate, against
// the registries of a Context.
func Validate(p *Pipeline) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if len(p.Steps) == 0 {
		add("steps", ErrNoSteps, "at least one step is required")
		return errs
	}

	declared := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		switch {
		case s.Name == "":
			add(field+".name", ErrStepNameEmpty, "step name is required")
		case strings.Contains(s.Name, "."):
			add(field+".name", ErrStepNameInvalid, "step name %q must not contain '.'", s.Name)
		case declared[s.Name]:
			add(field+".name", ErrDuplicateStep, "duplicate step name %q", s.Name)
		}
		declared[s.Name] = true
		if s.Algorithm == "" {
			add(field+".algorithm", ErrAlgorithmEmpty, "algorithm is required")
		}
	}

	for i, s := range p.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if s.DefaultSource != "" {
			switch {
			case s.DefaultSource == s.Name:
				add(field+".default_source", ErrSelfReference, "step %q is its own default source", s.Name)
			case !declared[s.DefaultSource]:
				add(field+".default_source", ErrUnknownStep, "unknown step %q", s.DefaultSource)
			}
		}

		bound := make(map[string]bool, len(s.Inputs))
		for _, in := range s.Inputs {
			inField := field + ".inputs." + in.Name
			if bound[in.Name] {
				add(inField, ErrDuplicateInput, "input bound twice")
			}
			bound[in.Name] = true

			if (in.From == nil) == (in.Value == nil) {
				add(inField, ErrInputBinding, "exactly one of value and from is required")
				continue
			}
			if in.From == nil {
				continue
			}
			switch {
			case in.From.Step == s.Name:
				add(inField, ErrSelfReference, "step %q reads its own output %q", s.Name, in.From.Output)
			case !declared[in.From.Step]:
				add(inField, ErrUnknownStep, "unknown step %q", in.From.Step)
			}
		}
	}
	return errs
}

// joinValidation folds validation errors into one error, tagged with file.
func joinValidation(file string, verrs []ValidationError) error {
	errs := make([]error, len(verrs))
	for i, e := range verrs {
		errs[i] = e.withFile(file)
	}
	return errors.Join(errs...)
}

package engine

import (
	"fmt"
	"sort"
)

// Algorithm is the body of one algorithm run. It reads its resolved inputs
// and writes outputs through rc. A returned error marks the run failed.
type Algorithm interface {
	Run(rc *RunContext) error
}

// AlgorithmFunc adapts a function to Algorithm.
type AlgorithmFunc func(rc *RunContext) error

// Run implements Algorithm.
func (f AlgorithmFunc) Run(rc *RunContext) error { return f(rc) }

// AnyFormat in a ParamSpec accepts every binary format of the slot type.
const AnyFormat = "*"

// ParamSpec declares one input slot.
type ParamSpec struct {
	Name        string
	Description string

	// Type and Format declare the representation the algorithm expects.
	// An empty Type accepts any data; Format AnyFormat accepts any format
	// of Type. Inputs of another representation are converted before the
	// body runs.
	Type   string
	Format string

	// Required slots fail the run with CodeMissingRequiredInput when
	// nothing resolves them.
	Required bool

	// Default is a literal used when neither an explicit input nor a
	// default source resolves the slot. See Context.Literal.
	Default any
}

// Key returns the declared (type, format) pair.
func (p ParamSpec) Key() FormatKey { return Key(p.Type, p.Format) }

// accepts reports whether key satisfies the declaration without conversion.
func (p ParamSpec) accepts(key FormatKey) bool {
	want := p.Key()
	switch {
	case want.Type == "":
		return true
	case want.Format == AnyFormat:
		return key.Type == want.Type
	default:
		return key == want
	}
}

// target is the representation to convert to when accepts is false.
func (p ParamSpec) target() FormatKey {
	want := p.Key()
	if want.Format == AnyFormat {
		return Key(want.Type, DefaultFormat)
	}
	return want
}

// OutputSpec declares one output slot.
type OutputSpec struct {
	Name        string
	Description string
	Type        string
	Format      string
}

// Key returns the declared (type, format) pair.
func (o OutputSpec) Key() FormatKey { return Key(o.Type, o.Format) }

// AlgorithmTemplate is a named factory for algorithm instances.
type AlgorithmTemplate struct {
	Name        string
	Description string
	Inputs      []ParamSpec
	Outputs     []OutputSpec

	// New creates the body for one instance.
	New func() Algorithm

	module string
}

// Module returns the module that registered the template, "" if built in.
func (t *AlgorithmTemplate) Module() string { return t.module }

// Input returns the declaration of an input slot.
func (t *AlgorithmTemplate) Input(name string) (ParamSpec, bool) {
	for _, p := range t.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Output returns the declaration of an output slot.
func (t *AlgorithmTemplate) Output(name string) (OutputSpec, bool) {
	for _, o := range t.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputSpec{}, false
}

func (t *AlgorithmTemplate) validate() error {
	if t.Name == "" {
		return newError(CodeInvalidArgument, FormatKey{}, "algorithm name must not be empty")
	}
	if t.New == nil {
		return &Error{Code: CodeInvalidArgument, Message: "algorithm factory must not be nil", Algorithm: t.Name}
	}
	seen := make(map[string]bool)
	for _, p := range t.Inputs {
		if p.Name == "" || seen[p.Name] {
			return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("invalid or duplicate input slot %q", p.Name), Algorithm: t.Name}
		}
		seen[p.Name] = true
	}
	seen = make(map[string]bool)
	for _, o := range t.Outputs {
		if o.Name == "" || seen[o.Name] {
			return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("invalid or duplicate output slot %q", o.Name), Algorithm: t.Name}
		}
		seen[o.Name] = true
	}
	return nil
}

// RegisterAlgorithm adds a template. Names are unique per Context.
func (c *Context) RegisterAlgorithm(t AlgorithmTemplate) error {
	t.Name = normalizeName(t.Name)
	if err := t.validate(); err != nil {
		return err
	}
	if _, exists := c.algorithms[t.Name]; exists {
		return &Error{Code: CodeAlreadyRegistered, Message: "algorithm already registered", Algorithm: t.Name}
	}
	t.Inputs = append([]ParamSpec(nil), t.Inputs...)
	t.Outputs = append([]OutputSpec(nil), t.Outputs...)
	t.module = c.loading
	c.algorithms[t.Name] = &t
	c.onRollback(func() { delete(c.algorithms, t.Name) })
	c.logger.Debug("algorithm registered", "algorithm", t.Name, "module", c.loading)
	return nil
}

// AlgorithmTemplate returns the template registered under name.
func (c *Context) AlgorithmTemplate(name string) (*AlgorithmTemplate, error) {
	t, ok := c.algorithms[normalizeName(name)]
	if !ok {
		return nil, &Error{Code: CodeAlgorithmNotRegistered, Message: "algorithm not registered", Algorithm: name}
	}
	return t, nil
}

// AlgorithmNames returns the registered template names, sorted.
func (c *Context) AlgorithmNames() []string {
	names := make([]string, 0, len(c.algorithms))
	for name := range c.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/vmesh/internal/metric"
)

// Context owns the data type registry, the conversion graph, the algorithm
// template registry and the modules loaded into it. Every Data handle and
// AlgorithmInstance is created through a Context and must not outlive it.
//
// A Context is not synchronized: registration, conversion and algorithm
// execution assume one goroutine at a time. Independent Contexts share no
// state except the process-wide module reference counts.
type Context struct {
	logger  *slog.Logger
	metrics *metric.Metrics
	journal Journal
	ids     IDGenerator
	session string

	types      map[string]*DataTemplate
	algorithms map[string]*AlgorithmTemplate
	modules    map[string]*moduleHandle
	live       map[*Data]struct{}

	// loading is the module currently running its Register hook; undo
	// reverts what that hook registered so far.
	loading string
	undo    []func()

	refs   int
	closed bool
	seq    int64
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for registry and run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// WithJournal records every algorithm run.
func WithJournal(j Journal) Option {
	return func(c *Context) { c.journal = j }
}

// WithIDGenerator overrides the instance and session ID generator.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Context) { c.ids = g }
}

// WithSession fixes the session ID stamped on journal records.
// By default a fresh ID is generated.
func WithSession(id string) Option {
	return func(c *Context) { c.session = id }
}

// New creates a Context holding one reference, with the built-in data types
// and conversions registered.
func New(opts ...Option) *Context {
	c := &Context{
		logger:     slog.Default(),
		ids:        UUIDv7Generator{},
		types:      make(map[string]*DataTemplate),
		algorithms: make(map[string]*AlgorithmTemplate),
		modules:    make(map[string]*moduleHandle),
		live:       make(map[*Data]struct{}),
		refs:       1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == "" {
		c.session = c.ids.Generate()
	}

	registerBuiltins(c)
	return c
}

// Logger returns the Context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Session returns the session ID stamped on journal records.
func (c *Context) Session() string { return c.session }

// RegisterDataType adds the (name, format) entry, creating the logical type
// on first use.
//
// Registering the same constructor/destructor pair again is a no-op;
// registering a different pair for an existing entry fails with
// CodeAlreadyRegistered. Functions are compared by code pointer, so two
// closures made by one function literal count as the same pair even when
// they capture different state.
func (c *Context) RegisterDataType(name, format string, mk MakeFunc, del DeleteFunc) error {
	key := Key(name, format)
	if key.Type == "" {
		return newError(CodeInvalidArgument, key, "data type name must not be empty")
	}
	if mk == nil {
		return newError(CodeInvalidArgument, key, "constructor must not be nil")
	}

	dt, ok := c.types[key.Type]
	if !ok {
		dt = &DataTemplate{name: key.Type, formats: make(map[string]*FormatTemplate)}
		c.types[key.Type] = dt
		c.onRollback(func() { delete(c.types, key.Type) })
	}

	if existing, ok := dt.formats[key.Format]; ok {
		if existing.sameFuncs(mk, del) {
			return nil
		}
		return newError(CodeAlreadyRegistered, key, "conflicting constructor/destructor for registered format")
	}

	dt.formats[key.Format] = &FormatTemplate{
		key:         key,
		make:        mk,
		del:         del,
		conversions: make(map[FormatKey]ConvertFunc),
		module:      c.loading,
	}
	c.onRollback(func() { delete(dt.formats, key.Format) })
	c.logger.Debug("data type registered", "type", key.Type, "format", key.Format, "module", c.loading)
	return nil
}

// DataType returns the template of a logical type.
func (c *Context) DataType(name string) (*DataTemplate, error) {
	dt, ok := c.types[normalizeName(name)]
	if !ok {
		return nil, newError(CodeTypeNotRegistered, Key(name, DefaultFormat), "data type not registered")
	}
	return dt, nil
}

// FormatTemplate returns the template registered for key.
func (c *Context) FormatTemplate(key FormatKey) (*FormatTemplate, error) {
	dt, err := c.DataType(key.Type)
	if err != nil {
		return nil, err
	}
	return dt.Format(key.Format)
}

// DataTypeNames returns the registered logical type names, sorted.
func (c *Context) DataTypeNames() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MakeData constructs a new handle with the registered constructor.
// The caller owns the returned reference.
func (c *Context) MakeData(name, format string) (*Data, error) {
	tmpl, err := c.FormatTemplate(Key(name, format))
	if err != nil {
		return nil, err
	}
	return c.makeData(tmpl)
}

func (c *Context) makeData(tmpl *FormatTemplate) (*Data, error) {
	v, err := tmpl.construct()
	if err != nil {
		return nil, &Error{Code: CodeInvalidArgument, Message: "constructor failed", Key: tmpl.key, Err: err}
	}
	d := &Data{ctx: c, tmpl: tmpl, value: v, refs: 1}
	c.live[d] = struct{}{}
	if c.metrics != nil {
		c.metrics.DataLive.Inc()
	}
	return d, nil
}

func (c *Context) forget(d *Data) {
	if _, ok := c.live[d]; !ok {
		return
	}
	delete(c.live, d)
	if c.metrics != nil {
		c.metrics.DataLive.Dec()
	}
}

// LiveData returns the number of handles not yet destroyed.
func (c *Context) LiveData() int {
	return len(c.live)
}

// Retain adds a reference to the Context.
func (c *Context) Retain() *Context {
	c.refs++
	return c
}

// Release drops one reference and closes the Context on the last one.
func (c *Context) Release() error {
	if c.refs <= 0 {
		return errors.New("engine: context already released")
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}
	return c.Close()
}

// Close tears the Context down: every live handle is destroyed, the
// registries are cleared and only then are module references dropped, so
// no destructor runs after its module has been unloaded.
//
// Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.refs = 0

	var errs []error
	for d := range c.live {
		if d.parent != nil {
			continue
		}
		d.refs = 0
		if err := d.destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	// Orphaned cached conversions, if any parent was destroyed elsewhere.
	for d := range c.live {
		d.refs = 0
		if err := d.destroy(); err != nil {
			errs = append(errs, err)
		}
	}

	c.types = make(map[string]*DataTemplate)
	c.algorithms = make(map[string]*AlgorithmTemplate)

	for name, h := range c.modules {
		if err := h.release(); err != nil {
			errs = append(errs, fmt.Errorf("unload module %s: %w", name, err))
		}
		delete(c.modules, name)
	}

	c.logger.Debug("context closed", "session", c.session)
	return errors.Join(errs...)
}

func (c *Context) nextSeq() int64 {
	c.seq++
	return c.seq
}

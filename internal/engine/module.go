package engine

import (
	"fmt"
	"log/slog"
	"plugin"
	"sort"
	"sync"
)

// Registrar is the surface a module's Register hook receives.
type Registrar interface {
	RegisterDataType(name, format string, mk MakeFunc, del DeleteFunc) error
	RegisterConversion(fromType, fromFormat, toType, toFormat string, fn ConvertFunc) error
	RegisterAlgorithm(t AlgorithmTemplate) error
	Logger() *slog.Logger
}

var _ Registrar = (*Context)(nil)

// Module contributes data types, conversions and algorithm templates.
type Module interface {
	Name() string
	Register(r Registrar) error
}

// Unloader is implemented by modules that hold resources to free once no
// Context references them any more.
type Unloader interface {
	Unload() error
}

// ModuleFunc adapts a register function to Module.
type ModuleFunc struct {
	ModuleName string
	Fn         func(r Registrar) error
}

// Name implements Module.
func (m ModuleFunc) Name() string { return m.ModuleName }

// Register implements Module.
func (m ModuleFunc) Register(r Registrar) error { return m.Fn(r) }

// moduleRefs counts, per module name, how many Contexts hold the module.
// It is the only state shared between Contexts.
var moduleRefs = struct {
	sync.Mutex
	counts map[string]int
}{counts: make(map[string]int)}

// ModuleRefCount returns how many Contexts currently hold the module.
func ModuleRefCount(name string) int {
	moduleRefs.Lock()
	defer moduleRefs.Unlock()
	return moduleRefs.counts[name]
}

type moduleHandle struct {
	module Module
	path   string
}

func acquireModule(name string) {
	moduleRefs.Lock()
	defer moduleRefs.Unlock()
	moduleRefs.counts[name]++
}

// release drops the process-wide reference and unloads on the last drop.
func (h *moduleHandle) release() error {
	name := h.module.Name()

	moduleRefs.Lock()
	moduleRefs.counts[name]--
	last := moduleRefs.counts[name] <= 0
	if last {
		delete(moduleRefs.counts, name)
	}
	moduleRefs.Unlock()

	if !last {
		return nil
	}
	if u, ok := h.module.(Unloader); ok {
		return u.Unload()
	}
	return nil
}

// LoadModule runs m's Register hook against the Context and takes a
// process-wide reference on it. Loading a module the Context already holds
// is a no-op.
func (c *Context) LoadModule(m Module) error {
	return c.loadModule(m, "")
}

func (c *Context) loadModule(m Module, path string) error {
	name := m.Name()
	if name == "" {
		return newError(CodeInvalidArgument, FormatKey{}, "module name must not be empty")
	}
	if _, ok := c.modules[name]; ok {
		return nil
	}

	c.loading = name
	err := m.Register(c)
	undo := c.undo
	c.loading, c.undo = "", nil
	if err != nil {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		c.logger.Warn("module load rolled back", "module", name, "registrations", len(undo), "error", err)
		return fmt.Errorf("register module %s: %w", name, err)
	}

	acquireModule(name)
	c.modules[name] = &moduleHandle{module: m, path: path}
	c.logger.Info("module loaded", "module", name, "path", path)
	return nil
}

// onRollback records how to revert a registration made by the module
// being loaded. Registrations made outside a module load are permanent.
func (c *Context) onRollback(fn func()) {
	if c.loading != "" {
		c.undo = append(c.undo, fn)
	}
}

// ModuleNames returns the names of the loaded modules, sorted.
func (c *Context) ModuleNames() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PluginSymbol is the function a Go plugin must export:
//
//	func Register(r engine.Registrar) error
const PluginSymbol = "Register"

// PluginNameSymbol optionally names the plugin module:
//
//	var ModuleName = "my-plugin"
const PluginNameSymbol = "ModuleName"

// LoadPlugin opens a Go plugin and loads it as a module named after the
// plugin's ModuleName symbol, or its path.
//
// Go cannot unload plugin code; dropping the last reference only runs the
// bookkeeping, and the registrations vanish with the Context.
func (c *Context) LoadPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", path, err)
	}
	register, ok := sym.(func(Registrar) error)
	if !ok {
		return fmt.Errorf("plugin %s: %s has type %T, want func(engine.Registrar) error", path, PluginSymbol, sym)
	}

	name := path
	if nameSym, err := p.Lookup(PluginNameSymbol); err == nil {
		if s, ok := nameSym.(*string); ok && *s != "" {
			name = *s
		}
	}

	return c.loadModule(ModuleFunc{ModuleName: name, Fn: register}, path)
}

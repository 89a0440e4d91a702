package engine

import (
	"reflect"
	"sort"
)

// MakeFunc constructs a fresh instance of one binary format.
//
// Instances are usually pointers so that conversion functions can fill
// them in place.
type MakeFunc func() (any, error)

// DeleteFunc releases an instance created by the matching MakeFunc.
// A nil DeleteFunc means the instance needs no explicit release.
type DeleteFunc func(any) error

// ConvertFunc fills to from from. Both instances were created by the
// constructors registered for their (type, format) pairs.
type ConvertFunc func(from, to any) error

// FormatTemplate describes one binary format of a logical type: its
// constructor/destructor pair and the conversion edges leaving it.
type FormatTemplate struct {
	key         FormatKey
	make        MakeFunc
	del         DeleteFunc
	conversions map[FormatKey]ConvertFunc
	module      string
}

// Key returns the (type, format) pair this template constructs.
func (t *FormatTemplate) Key() FormatKey { return t.key }

// Module returns the name of the module that registered the format, or ""
// for built-in formats.
func (t *FormatTemplate) Module() string { return t.module }

// Conversions returns the target keys reachable in one hop, sorted.
func (t *FormatTemplate) Conversions() []FormatKey {
	keys := make([]FormatKey, 0, len(t.conversions))
	for k := range t.conversions {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// CanConvertTo reports whether a direct edge to target is registered.
func (t *FormatTemplate) CanConvertTo(target FormatKey) bool {
	_, ok := t.conversions[target]
	return ok
}

func (t *FormatTemplate) construct() (any, error) {
	return t.make()
}

func (t *FormatTemplate) destruct(v any) error {
	if t.del == nil {
		return nil
	}
	return t.del(v)
}

func (t *FormatTemplate) sameFuncs(mk MakeFunc, del DeleteFunc) bool {
	return funcPointer(t.make) == funcPointer(mk) && funcPointer(t.del) == funcPointer(del)
}

// DataTemplate describes one logical type and its registered binary formats.
type DataTemplate struct {
	name    string
	formats map[string]*FormatTemplate
}

// Name returns the logical type name.
func (d *DataTemplate) Name() string { return d.name }

// Formats returns the registered binary format names, sorted.
func (d *DataTemplate) Formats() []string {
	names := make([]string, 0, len(d.formats))
	for name := range d.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format returns the template for one binary format.
func (d *DataTemplate) Format(format string) (*FormatTemplate, error) {
	t, ok := d.formats[normalizeName(format)]
	if !ok {
		return nil, newError(CodeFormatNotRegistered, Key(d.name, format), "binary format not registered")
	}
	return t, nil
}

// funcPointer identifies a function by its code pointer. Closures built by
// the same literal compare equal regardless of what they capture.
func funcPointer(f any) uintptr {
	v := reflect.ValueOf(f)
	if !v.IsValid() || v.IsNil() {
		return 0
	}
	return v.Pointer()
}

func sortKeys(keys []FormatKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].Format < keys[j].Format
	})
}

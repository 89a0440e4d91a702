package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultFormat is the binary format name of a type's default representation.
const DefaultFormat = ""

// FormatKey identifies one binary format of one logical type.
type FormatKey struct {
	Type   string
	Format string
}

// Key builds a normalized FormatKey.
//
// Names are NFC normalized and trimmed so that keys coming from pipeline
// files, plugins and Go code compare equal.
func Key(typeName, format string) FormatKey {
	return FormatKey{Type: normalizeName(typeName), Format: normalizeName(format)}
}

// IsZero reports whether the key names no type.
func (k FormatKey) IsZero() bool {
	return k.Type == "" && k.Format == ""
}

// String renders the key as type or type[format].
func (k FormatKey) String() string {
	if k.Format == DefaultFormat {
		return k.Type
	}
	return k.Type + "[" + k.Format + "]"
}

// ParseKey is the inverse of FormatKey.String.
func ParseKey(s string) FormatKey {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "]") {
		if i := strings.LastIndex(s, "["); i > 0 {
			return Key(s[:i], s[i+1:len(s)-1])
		}
	}
	return Key(s, DefaultFormat)
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Package value defines the closed set of value types a configuration
// document can hold: typed scalars, ordered string arrays, and nested
// blocks. Every value stored in a document maps to exactly one Kind, and
// every scalar Kind maps to the type tag used in the script text format.
package value

import (
	"time"
)

// Kind identifies which variant of the value model a stored value is.
type Kind int

const (
	// KindUnknown is the terminal fallback for values whose runtime type
	// matches none of the known variants. Unknown values cannot be
	// serialized.
	KindUnknown Kind = iota

	// KindInt is a 64-bit signed integer.
	KindInt

	// KindFloat is a 32-bit floating point number.
	KindFloat

	// KindDouble is a 64-bit floating point number.
	KindDouble

	// KindBool is a boolean.
	KindBool

	// KindString is a string.
	KindString

	// KindTime is a timestamp.
	KindTime

	// KindArray is an ordered sequence of raw strings.
	KindArray

	// KindBlock is a nested block of entries.
	KindBlock
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	case KindArray:
		return "array"
	case KindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Tag returns the type tag used for this kind in the script text format.
// Blocks have no scalar tag and return the empty string; KindUnknown
// returns "unknown", which is not a writable tag.
func (k Kind) Tag() string {
	if k == KindBlock {
		return ""
	}
	return k.String()
}

// KindOf returns the Kind for a stored value. The mapping is exhaustive
// over the closed variant and stable: the same input always yields the
// same kind.
func KindOf(v any) Kind {
	switch v.(type) {
	case int64:
		return KindInt
	case float32:
		return KindFloat
	case float64:
		return KindDouble
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTime
	case []string:
		return KindArray
	case *Block:
		return KindBlock
	default:
		return KindUnknown
	}
}

// TagOf returns the script type tag for a stored value.
func TagOf(v any) string {
	return KindOf(v).Tag()
}

// Normalize converts a caller-supplied value into its canonical stored
// representation: integer types widen to int64, string-element slices
// collapse to []string, and nested maps become Blocks (keys sorted for
// determinism, since Go map iteration order is unspecified). Values
// outside the closed variant are returned unchanged and will report
// KindUnknown.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := AsString(item)
			if !ok {
				return v
			}
			items = append(items, s)
		}
		return items
	case map[string]any:
		return blockFromMap(t)
	default:
		return v
	}
}

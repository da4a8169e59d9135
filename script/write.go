package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/confscript/value"
)

// indent is the per-depth indentation unit. Purely cosmetic.
const indent = "    "

// UnsupportedValueError reports a value that has no script representation
// and therefore cannot be written.
type UnsupportedValueError struct {
	// Path is the dotted path of the offending entry.
	Path string
	// Value is the unsupported value.
	Value any
}

// Error implements the error interface.
func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("script: value at %q has unsupported type %T", e.Path, e.Value)
}

// Write emits script text for a document tree. Entries are written in
// block insertion order, comments registered against an entry's dotted
// path are emitted on the line before it, and nesting is indented four
// spaces per level. A value outside the closed variant has no textual
// form; writing fails rather than emitting an unparseable tag.
func Write(root *value.Block, comments map[string]string) (string, error) {
	var sb strings.Builder
	if err := writeBlock(&sb, root, comments, "", 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeBlock(sb *strings.Builder, b *value.Block, comments map[string]string, path string, depth int) error {
	prefix := strings.Repeat(indent, depth)

	for _, key := range b.Keys() {
		p := extendPath(path, key)
		if c, ok := comments[p]; ok && c != "" {
			sb.WriteString(prefix + "// " + c + "\n")
		}

		v, _ := b.Get(key)
		switch t := v.(type) {
		case *value.Block:
			sb.WriteString(prefix + key + " {\n")
			if err := writeBlock(sb, t, comments, p, depth+1); err != nil {
				return err
			}
			sb.WriteString(prefix + "};\n")

		case []string:
			sb.WriteString(prefix + key + "[] = [" + strings.Join(t, ", ") + "];\n")

		default:
			tag := value.TagOf(v)
			if tag == "unknown" || tag == "" {
				return &UnsupportedValueError{Path: p, Value: v}
			}
			sb.WriteString(prefix + tag + " " + key + " = " + literal(v) + ";\n")
		}
	}

	return nil
}

// literal renders a scalar in its natural textual form. Strings are
// quoted; there is no escaping mechanism, so strings containing a double
// quote or ", " are a documented format limitation.
func literal(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return `"` + t + `"`
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return ""
	}
}

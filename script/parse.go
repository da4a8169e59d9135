// Package script implements the script configuration dialect: a
// line-oriented text format of typed scalar entries, named blocks, and
// string arrays.
//
//	// annotation
//	int maxHealth = 100;
//	player {
//	    string name = "Hero";
//	    items[] = [sword, shield];
//	};
//
// Parse turns text into a value.Block tree plus a comment map keyed by
// dotted path; Write is its inverse. Parsing is deliberately lenient:
// lines that match no known pattern are dropped, bad literals fall back
// to their type's zero value, and an unmatched closing brace is a no-op,
// so a damaged file still loads as a partial document.
package script

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/confscript/value"
)

// The four line patterns, compiled once. Typed block open must be tested
// before bare block open: a bare open is a subset of the typed shape, and
// testing in the other order would capture the type token as the name.
var (
	entryRe     = regexp.MustCompile(`^(\w+)\s+(\w+)\s*=\s*(.*);$`)
	arrayRe     = regexp.MustCompile(`^(\w+)\[\]\s*=\s*\[(.*)\];$`)
	typedOpenRe = regexp.MustCompile(`^(\w+)\s+(\w+)\s*\{$`)
	bareOpenRe  = regexp.MustCompile(`^(\w+)\s*\{$`)
)

// frame records the block that was being populated when a nested block
// opened, and the key the nested block will be assigned under when it
// closes.
type frame struct {
	parent *value.Block
	name   string
}

// Parse converts script text into a document tree and its comment map.
// It never fails; see the package comment for the leniency rules.
func Parse(text string) (*value.Block, map[string]string) {
	root := value.NewBlock()
	comments := make(map[string]string)

	cur := root
	path := ""
	var stack []frame

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":

		case strings.HasPrefix(line, "//"):
			if path != "" {
				comments[path] = strings.TrimSpace(strings.TrimPrefix(line, "//"))
			}

		case typedOpenRe.MatchString(line):
			m := typedOpenRe.FindStringSubmatch(line)
			stack = append(stack, frame{parent: cur, name: m[2]})
			cur = value.NewBlock()
			path = extendPath(path, m[2])

		case bareOpenRe.MatchString(line):
			m := bareOpenRe.FindStringSubmatch(line)
			stack = append(stack, frame{parent: cur, name: m[1]})
			cur = value.NewBlock()
			path = extendPath(path, m[1])

		case line == "};":
			if len(stack) == 0 {
				// Unmatched closer; ignore rather than corrupt state.
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			f.parent.Set(f.name, cur)
			cur = f.parent
			path = parentPath(path)

		case arrayRe.MatchString(line):
			m := arrayRe.FindStringSubmatch(line)
			cur.Set(m[1], splitItems(m[2]))

		case entryRe.MatchString(line):
			m := entryRe.FindStringSubmatch(line)
			cur.Set(m[2], parseScalar(m[1], m[3]))

		default:
			// Unrecognized line; dropped.
		}
	}

	return root, comments
}

// parseScalar parses a literal according to its type token. Unparseable
// literals fall back to the type's zero value; unrecognized type tokens
// pass the raw text through untouched.
func parseScalar(typ, raw string) any {
	raw = strings.TrimSpace(raw)

	switch strings.ToLower(typ) {
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return int64(0)
		}
		return n
	case "bool":
		b, ok := value.AsBool(raw)
		if !ok {
			return false
		}
		return b
	case "float":
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return float32(0)
		}
		return float32(f)
	case "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return f
	case "string":
		return unquote(raw)
	case "datetime":
		// ParseTime yields the zero time on failure, which is the
		// documented fallback.
		t, _ := value.ParseTime(unquote(raw))
		return t
	default:
		return raw
	}
}

// splitItems splits an array body on ", " and drops empty entries.
func splitItems(body string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(body, ", ") {
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// unquote strips one leading and one trailing double quote, if present.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func extendPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func parentPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

// Package docpath resolves dotted field paths such as "body.summary" against
// nested documents and flattens the value found there into text.
package docpath

import (
	"fmt"
	"strconv"
	"strings"

	"fieldvec/internal/domain"
)

// Lookup descends doc along the dot-separated path. Mapping values are
// entered by key; a numeric segment indexes into a sequence.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case domain.Document:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := index(key, len(node))
			if !ok {
				return nil, false
			}
			cur = node[i]
		case []string:
			i, ok := index(key, len(node))
			if !ok {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func index(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// ExtractString returns the text stored at path. A missing or nil value yields
// def. Sequences are joined with a single space; an empty sequence yields "".
func ExtractString(doc map[string]any, path, def string) string {
	v, ok := Lookup(doc, path)
	if !ok || v == nil {
		return def
	}
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, " ")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = toString(p)
		}
		return strings.Join(parts, " ")
	default:
		return toString(val)
	}
}

// ExtractAll extracts path from every document, in order.
func ExtractAll(docs []domain.Document, path, def string) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = ExtractString(d, path, def)
	}
	return out
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

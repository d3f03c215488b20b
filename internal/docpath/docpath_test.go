package docpath

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldvec/internal/domain"
)

func TestExtractString(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		path string
		def  string
		want string
	}{
		{name: "nested list joined", doc: map[string]any{"a": map[string]any{"b": []any{"x", "y"}}}, path: "a.b", want: "x y"},
		{name: "string slice joined", doc: map[string]any{"tags": []string{"go", "ml"}}, path: "tags", want: "go ml"},
		{name: "missing field", doc: map[string]any{}, path: "a.b", want: ""},
		{name: "missing field custom default", doc: map[string]any{}, path: "a", def: "n/a", want: "n/a"},
		{name: "nil value", doc: map[string]any{"a": nil}, path: "a", def: "d", want: "d"},
		{name: "empty sequence is not default", doc: map[string]any{"a": []any{}}, path: "a", def: "d", want: ""},
		{name: "plain string", doc: map[string]any{"title": "Hello World"}, path: "title", want: "Hello World"},
		{name: "number", doc: map[string]any{"n": 3.0}, path: "n", want: "3"},
		{name: "bool", doc: map[string]any{"ok": true}, path: "ok", want: "true"},
		{name: "through scalar", doc: map[string]any{"a": "text"}, path: "a.b", def: "d", want: "d"},
		{name: "list index", doc: map[string]any{"authors": []any{map[string]any{"name": "Ann"}}}, path: "authors.0.name", want: "Ann"},
		{name: "list index out of range", doc: map[string]any{"authors": []any{}}, path: "authors.3", def: "d", want: "d"},
		{name: "string map", doc: map[string]any{"meta": map[string]string{"lang": "en"}}, path: "meta.lang", want: "en"},
		{name: "document value", doc: map[string]any{"inner": domain.Document{"k": "v"}}, path: "inner.k", want: "v"},
		{name: "mixed list", doc: map[string]any{"a": []any{"x", 2.5, nil}}, path: "a", want: "x 2.5 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractString(tt.doc, tt.path, tt.def))
		})
	}
}

func TestExtractAll(t *testing.T) {
	docs := []domain.Document{
		{"title": "first"},
		{},
		{"title": []any{"a", "b"}},
	}
	assert.Equal(t, []string{"first", "", "a b"}, ExtractAll(docs, "title", ""))
}

func TestLookup(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}

	v, ok := Lookup(doc, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = Lookup(doc, "a.x.c")
	assert.False(t, ok)
}

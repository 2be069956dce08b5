// Package render wraps template compilation and rendering for the jinja and
// debug.log processors. Templates are compiled once per processor instance
// and rendered per record against a fixed namespace: item (the record),
// features (column metadata, with .names for class label columns) and index.
// Resolution is strict: an identifier outside that namespace fails at
// compile time, and a referenced record column absent from the record fails
// the render instead of disappearing into an empty string.
package render

import (
	"fmt"
	"sort"

	"github.com/flosch/pongo2/v6"

	"github.com/prepline/prepline/pkg/features"
)

// Template is a compiled template, reusable across records.
type Template struct {
	Source  string
	tpl     *pongo2.Template
	columns []string
}

// Compile parses the template source. Malformed templates and undefined
// names fail here, at processor construction.
func Compile(src string) (*Template, error) {
	tpl, err := pongo2.FromString(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	cols, err := scanColumns(src)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(cols))
	for col := range cols {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return &Template{Source: src, tpl: tpl, columns: columns}, nil
}

// Columns returns the record columns the template references as
// item.<column>, sorted.
func (t *Template) Columns() []string { return t.columns }

// Render evaluates the template against one record.
func (t *Template) Render(item features.Record, feats features.Features, index int) (string, error) {
	for _, col := range t.columns {
		if _, ok := item[col]; !ok {
			return "", fmt.Errorf("column %q not present in record", col)
		}
	}
	out, err := t.tpl.Execute(pongo2.Context{
		"item":     map[string]any(item),
		"features": featureContext(feats),
		"index":    index,
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// featureContext exposes static per-column metadata to templates. Class
// label columns (scalar or sequence element) carry their name list, so
// templates can join or index label vocabularies.
func featureContext(feats features.Features) map[string]any {
	out := make(map[string]any, len(feats))
	for col, f := range feats {
		meta := map[string]any{"type": f.String()}
		if names, ok := labelNames(f); ok {
			meta["names"] = names
		}
		out[col] = meta
	}
	return out
}

func labelNames(f features.Feature) ([]string, bool) {
	switch t := f.(type) {
	case features.ClassLabel:
		return t.Names, true
	case features.Sequence:
		return labelNames(t.Of)
	}
	return nil, false
}

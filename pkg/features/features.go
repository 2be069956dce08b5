// Package features describes the logical shape of dataset records: a named,
// typed feature schema and the record values conforming to it.
package features

import (
	"fmt"
	"sort"
	"strings"
)

// Kind enumerates supported scalar types.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Feature is the type of a single column: a scalar value, a class label,
// a sequence of features or a struct of named features.
type Feature interface {
	fmt.Stringer
	feature()
}

// Value is a scalar feature of the given kind.
type Value struct {
	Kind Kind
}

func (Value) feature()         {}
func (v Value) String() string { return v.Kind.String() }

// Int is shorthand for an int64 scalar feature.
func Int() Value { return Value{Kind: KindInt} }

// Float is shorthand for a float64 scalar feature.
func Float() Value { return Value{Kind: KindFloat} }

// Str is shorthand for a string scalar feature.
func Str() Value { return Value{Kind: KindString} }

// Bool is shorthand for a bool scalar feature.
func Bool() Value { return Value{Kind: KindBool} }

// ClassLabel is an integer feature whose values index into a fixed list of
// names. The name-to-id mapping is stable for the lifetime of the schema.
type ClassLabel struct {
	Names []string
}

func (ClassLabel) feature() {}

func (c ClassLabel) String() string {
	return fmt.Sprintf("class_label(%d)", len(c.Names))
}

// ID returns the label id for a name.
func (c ClassLabel) ID(name string) (int64, bool) {
	for i, n := range c.Names {
		if n == name {
			return int64(i), true
		}
	}
	return 0, false
}

// Name returns the name for a label id.
func (c ClassLabel) Name(id int64) (string, bool) {
	if id < 0 || id >= int64(len(c.Names)) {
		return "", false
	}
	return c.Names[id], true
}

// Sequence is a homogeneous list feature. Length is the fixed element count,
// or -1 when the length varies per record.
type Sequence struct {
	Of     Feature
	Length int
}

func (Sequence) feature() {}

func (s Sequence) String() string {
	if s.Length >= 0 {
		return fmt.Sprintf("sequence(%s, length=%d)", s.Of, s.Length)
	}
	return fmt.Sprintf("sequence(%s)", s.Of)
}

// Seq builds a variable-length sequence feature.
func Seq(of Feature) Sequence { return Sequence{Of: of, Length: -1} }

// SeqN builds a fixed-length sequence feature.
func SeqN(of Feature, n int) Sequence { return Sequence{Of: of, Length: n} }

// Struct is a feature with named sub-features.
type Struct map[string]Feature

func (Struct) feature() {}

func (s Struct) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + s[k].String()
	}
	return "struct{" + strings.Join(parts, ", ") + "}"
}

// Equal reports whether two features describe the same type.
func Equal(a, b Feature) bool {
	switch at := a.(type) {
	case Value:
		bt, ok := b.(Value)
		return ok && at.Kind == bt.Kind
	case ClassLabel:
		bt, ok := b.(ClassLabel)
		if !ok || len(at.Names) != len(bt.Names) {
			return false
		}
		for i := range at.Names {
			if at.Names[i] != bt.Names[i] {
				return false
			}
		}
		return true
	case Sequence:
		bt, ok := b.(Sequence)
		return ok && at.Length == bt.Length && Equal(at.Of, bt.Of)
	case Struct:
		bt, ok := b.(Struct)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, f := range at {
			g, ok := bt[k]
			if !ok || !Equal(f, g) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Features maps column names to their feature type.
type Features map[string]Feature

// Copy returns a shallow copy of the schema.
func (f Features) Copy() Features {
	out := make(Features, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Columns returns the column names in sorted order.
func (f Features) Columns() []string {
	cols := make([]string, 0, len(f))
	for k := range f {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Merge overlays new columns onto the schema. Overwriting an existing column
// with a different feature type is a conflict.
func (f Features) Merge(add Features) (Features, error) {
	out := f.Copy()
	for k, v := range add {
		if old, ok := out[k]; ok && !Equal(old, v) {
			return nil, fmt.Errorf("column %q: %s conflicts with existing %s", k, v, old)
		}
		out[k] = v
	}
	return out, nil
}

func (f Features) String() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Columns() {
		parts = append(parts, k+": "+f[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

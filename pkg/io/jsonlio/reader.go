// Package jsonlio reads and writes datasets as JSON lines, one record per
// line. The reader infers a feature schema from a sample when none is given
// and coerces every decoded record to it.
package jsonlio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/ioutils"
)

type ReaderOptions struct {
	// SampleRows bounds the schema inference sample. Defaults to 100.
	SampleRows int
}

// Reader streams records from a JSON lines file. Sampled records are
// buffered during inference and replayed by Next, so every record is
// returned exactly once.
type Reader struct {
	rc    io.ReadCloser
	dec   *json.Decoder
	opt   ReaderOptions
	feats features.Features
	buf   []map[string]any
}

func Open(path string, opt ReaderOptions) (*Reader, error) {
	rc, err := ioutils.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return &Reader{rc: rc, dec: json.NewDecoder(rc), opt: opt}, nil
}

// SetSchema fixes the schema, e.g. from a features.json sidecar, skipping
// inference.
func (r *Reader) SetSchema(feats features.Features) {
	r.feats = feats
}

// Schema returns the reader's schema, inferring it from a sample on first
// call if none was set.
func (r *Reader) Schema() (features.Features, error) {
	if r.feats != nil {
		return r.feats, nil
	}
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	for len(r.buf) < max {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		r.buf = append(r.buf, m)
	}
	feats, err := inferFeatures(r.buf)
	if err != nil {
		return nil, err
	}
	r.feats = feats
	return feats, nil
}

// Next returns the next record coerced to the schema, or io.EOF.
func (r *Reader) Next() (features.Record, error) {
	if r.feats == nil {
		if _, err := r.Schema(); err != nil {
			return nil, err
		}
	}
	var m map[string]any
	if len(r.buf) > 0 {
		m = r.buf[0]
		r.buf = r.buf[1:]
	} else {
		if err := r.dec.Decode(&m); err != nil {
			return nil, err
		}
	}
	rec := make(features.Record, len(r.feats))
	for name, f := range r.feats {
		raw, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("record is missing column %q", name)
		}
		v, err := features.Coerce(raw, f)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}

func (r *Reader) Close() error { return r.rc.Close() }

// inferFeatures unifies the features of all sampled records. Every record
// must carry every column.
func inferFeatures(sample []map[string]any) (features.Features, error) {
	if len(sample) == 0 {
		return nil, fmt.Errorf("cannot infer schema from empty input")
	}
	keys := make([]string, 0, len(sample[0]))
	for k := range sample[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	feats := make(features.Features, len(keys))
	for _, k := range keys {
		var merged features.Feature
		for i, m := range sample {
			v, ok := m[k]
			if !ok {
				return nil, fmt.Errorf("record %d is missing column %q", i, k)
			}
			f, err := inferFeature(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", k, err)
			}
			merged, err = unify(merged, f)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", k, err)
			}
		}
		feats[k] = merged
	}
	return feats, nil
}

func inferFeature(v any) (features.Feature, error) {
	switch t := v.(type) {
	case bool:
		return features.Bool(), nil
	case float64:
		if float64(int64(t)) == t {
			return features.Int(), nil
		}
		return features.Float(), nil
	case string:
		return features.Str(), nil
	case []any:
		var elem features.Feature
		for _, it := range t {
			f, err := inferFeature(it)
			if err != nil {
				return nil, err
			}
			elem, err = unify(elem, f)
			if err != nil {
				return nil, err
			}
		}
		if elem == nil {
			// Element type of an always-empty column is unknowable.
			return nil, fmt.Errorf("cannot infer element type of empty sequence")
		}
		return features.SeqN(elem, len(t)), nil
	case map[string]any:
		st := make(features.Struct, len(t))
		for k, it := range t {
			f, err := inferFeature(it)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			st[k] = f
		}
		return st, nil
	}
	return nil, fmt.Errorf("cannot infer feature from %T", v)
}

// unify merges two inferred features: ints widen to floats, sequence
// lengths that differ become variable.
func unify(a, b features.Feature) (features.Feature, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if features.Equal(a, b) {
		return a, nil
	}
	av, aOK := a.(features.Value)
	bv, bOK := b.(features.Value)
	if aOK && bOK {
		if (av.Kind == features.KindInt && bv.Kind == features.KindFloat) ||
			(av.Kind == features.KindFloat && bv.Kind == features.KindInt) {
			return features.Float(), nil
		}
		return nil, fmt.Errorf("conflicting value kinds %s and %s", a, b)
	}
	as, aOK := a.(features.Sequence)
	bs, bOK := b.(features.Sequence)
	if aOK && bOK {
		elem, err := unify(as.Of, bs.Of)
		if err != nil {
			return nil, err
		}
		length := as.Length
		if bs.Length != length {
			length = -1
		}
		return features.SeqN(elem, length), nil
	}
	ast, aOK := a.(features.Struct)
	bst, bOK := b.(features.Struct)
	if aOK && bOK {
		if len(ast) != len(bst) {
			return nil, fmt.Errorf("conflicting struct fields %s and %s", a, b)
		}
		out := make(features.Struct, len(ast))
		for k, af := range ast {
			bf, ok := bst[k]
			if !ok {
				return nil, fmt.Errorf("conflicting struct fields %s and %s", a, b)
			}
			f, err := unify(af, bf)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("conflicting features %s and %s", a, b)
}

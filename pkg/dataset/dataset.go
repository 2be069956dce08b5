// Package dataset resolves dataset directories and split expressions into
// lazily streamed record sources. A dataset is a directory with one file per
// base split (<split>.jsonl or <split>.csv) and an optional features.json
// schema sidecar.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/csvio"
	"github.com/prepline/prepline/pkg/io/jsonlio"
)

// Dataset is an opened dataset directory.
type Dataset struct {
	dir     string
	sidecar features.Features
}

// Open validates the dataset directory and loads the schema sidecar when
// present.
func Open(dir string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset %q is not a directory", dir)
	}
	d := &Dataset{dir: dir}

	sidecar := filepath.Join(dir, "features.json")
	if b, err := os.ReadFile(sidecar); err == nil {
		var feats features.Features
		if err := json.Unmarshal(b, &feats); err != nil {
			return nil, fmt.Errorf("dataset %q: parse features.json: %w", dir, err)
		}
		d.sidecar = feats
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset %q: %w", dir, err)
	}
	return d, nil
}

// Split is a resolved split expression: a record range over one base split
// file, with a fixed schema.
type Split struct {
	path   string
	isCSV  bool
	feats  features.Features
	lo, hi int
}

// Resolve parses a split expression and binds it to a split file. The base
// split must exist; jsonl is preferred when both formats are present.
func (d *Dataset) Resolve(expr string) (*Split, error) {
	se, err := ParseSplit(expr)
	if err != nil {
		return nil, err
	}

	path, isCSV, err := d.splitFile(se.Base)
	if err != nil {
		return nil, err
	}

	feats := d.sidecar
	if feats == nil {
		if feats, err = inferSchema(path, isCSV); err != nil {
			return nil, fmt.Errorf("split %q: infer schema: %w", se.Base, err)
		}
	}

	n, err := countRecords(path, isCSV, feats)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", se.Base, err)
	}
	lo, hi, err := se.Bounds(n)
	if err != nil {
		return nil, err
	}
	return &Split{path: path, isCSV: isCSV, feats: feats, lo: lo, hi: hi}, nil
}

func (d *Dataset) splitFile(base string) (path string, isCSV bool, err error) {
	for _, c := range []struct {
		ext   string
		isCSV bool
	}{
		{".jsonl", false},
		{".jsonl.gz", false},
		{".csv", true},
		{".csv.gz", true},
	} {
		p := filepath.Join(d.dir, base+c.ext)
		if _, err := os.Stat(p); err == nil {
			return p, c.isCSV, nil
		}
	}
	return "", false, fmt.Errorf("dataset %q has no file for split %q", d.dir, base)
}

// Schema returns the split's feature schema.
func (s *Split) Schema() features.Features { return s.feats }

// Len returns the number of records selected by the split expression.
func (s *Split) Len() int { return s.hi - s.lo }

// RecordReader streams records one at a time, returning io.EOF when
// exhausted.
type RecordReader interface {
	Next() (features.Record, error)
	Close() error
}

// Open starts a fresh stream over the split's record range. Each call
// restarts from the beginning of the range.
func (s *Split) Open() (RecordReader, error) {
	inner, err := openReader(s.path, s.isCSV, s.feats)
	if err != nil {
		return nil, err
	}
	r := &rangeReader{inner: inner, remaining: s.Len()}
	for i := 0; i < s.lo; i++ {
		if _, err := inner.Next(); err != nil {
			inner.Close()
			return nil, fmt.Errorf("seek to record %d: %w", s.lo, err)
		}
	}
	return r, nil
}

type rangeReader struct {
	inner     RecordReader
	remaining int
}

func (r *rangeReader) Next() (features.Record, error) {
	if r.remaining <= 0 {
		return nil, io.EOF
	}
	rec, err := r.inner.Next()
	if err != nil {
		return nil, err
	}
	r.remaining--
	return rec, nil
}

func (r *rangeReader) Close() error { return r.inner.Close() }

func openReader(path string, isCSV bool, feats features.Features) (RecordReader, error) {
	if isCSV {
		r, err := csvio.Open(path, csvio.ReaderOptions{})
		if err != nil {
			return nil, err
		}
		if feats != nil {
			r.SetSchema(feats)
		}
		return r, nil
	}
	r, err := jsonlio.Open(path, jsonlio.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	r.SetSchema(feats)
	return r, nil
}

func inferSchema(path string, isCSV bool) (features.Features, error) {
	if isCSV {
		r, err := csvio.Open(path, csvio.ReaderOptions{})
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.Schema()
	}
	r, err := jsonlio.Open(path, jsonlio.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Schema()
}

func countRecords(path string, isCSV bool, feats features.Features) (int, error) {
	r, err := openReader(path, isCSV, feats)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	n := 0
	for {
		if _, err := r.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return 0, err
		}
		n++
	}
}

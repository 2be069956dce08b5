// Package csvio reads and writes flat datasets as CSV. Only scalar columns
// are supported; nested features belong in jsonl.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/ioutils"
)

type ReaderOptions struct {
	Delimiter  rune // 0 = ','
	SampleRows int  // for inference; default 100
}

// Reader streams flat records from a CSV file with a header row. Rows read
// for schema inference are buffered and replayed by Next.
type Reader struct {
	rc    io.ReadCloser
	r     *csv.Reader
	opt   ReaderOptions
	names []string
	feats features.Features
	buf   [][]string
}

func Open(path string, opt ReaderOptions) (*Reader, error) {
	rc, err := ioutils.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(rc)
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}
	return &Reader{rc: rc, r: r, opt: opt}, nil
}

// SetSchema fixes the schema, e.g. from a features.json sidecar, skipping
// inference. Values are still parsed from the header's column order.
func (r *Reader) SetSchema(feats features.Features) {
	r.feats = feats
}

func (r *Reader) readHeader() error {
	header, err := r.r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	r.names = make([]string, len(header))
	for i := range header {
		r.names[i] = strings.ToValidUTF8(header[i], "?")
	}
	if len(r.names) > 0 {
		r.names[0] = strings.TrimPrefix(r.names[0], "\ufeff")
	}
	return nil
}

// Schema reads the header and samples rows to determine column kinds.
func (r *Reader) Schema() (features.Features, error) {
	if r.names == nil {
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}
	if r.feats != nil {
		return r.feats, nil
	}

	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	for len(r.buf) < max {
		rec, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		r.buf = append(r.buf, rec)
	}

	kinds := inferKinds(r.buf, len(r.names))
	r.feats = make(features.Features, len(r.names))
	for i, name := range r.names {
		r.feats[name] = features.Value{Kind: kinds[i]}
	}
	return r.feats, nil
}

// Next returns the next record coerced to the schema, or io.EOF.
func (r *Reader) Next() (features.Record, error) {
	if r.names == nil || r.feats == nil {
		if _, err := r.Schema(); err != nil {
			return nil, err
		}
	}
	var row []string
	if len(r.buf) > 0 {
		row = r.buf[0]
		r.buf = r.buf[1:]
	} else {
		var err error
		row, err = r.r.Read()
		if err != nil {
			return nil, err
		}
	}
	if len(row) != len(r.names) {
		return nil, fmt.Errorf("row has %d fields, header has %d", len(row), len(r.names))
	}
	rec := make(features.Record, len(r.names))
	for i, name := range r.names {
		f, ok := r.feats[name]
		if !ok {
			return nil, fmt.Errorf("column %q not declared in schema", name)
		}
		val := strings.ToValidUTF8(strings.TrimSpace(row[i]), "?")
		v, err := features.Coerce(val, f)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}

func (r *Reader) Close() error { return r.rc.Close() }

var numre = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

func inferKinds(rows [][]string, ncol int) []features.Kind {
	kinds := make([]features.Kind, ncol)
	for c := 0; c < ncol; c++ {
		num, integer, boolean, str := 0, 0, 0, 0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[c])
			if v == "" {
				continue
			}
			switch {
			case numre.MatchString(v):
				num++
				if !strings.ContainsAny(v, ".eE") {
					integer++
				}
			case strings.EqualFold(v, "true") || strings.EqualFold(v, "false"):
				boolean++
			default:
				str++
			}
		}
		switch {
		case boolean > num && boolean > str:
			kinds[c] = features.KindBool
		case num > str:
			if integer == num {
				kinds[c] = features.KindInt
			} else {
				kinds[c] = features.KindFloat
			}
		default:
			kinds[c] = features.KindString
		}
	}
	return kinds
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}

package jsonlio

import (
	"encoding/json"
	"io"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/ioutils"
)

// Writer appends records to a JSON lines file, one object per line.
type Writer struct {
	out  io.WriteCloser
	enc  *json.Encoder
	rows int
}

func NewWriter(path string) (*Writer, error) {
	out, err := ioutils.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return &Writer{out: out, enc: json.NewEncoder(out)}, nil
}

func (w *Writer) Write(rec features.Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of records written so far.
func (w *Writer) Rows() int { return w.rows }

func (w *Writer) Close() error { return w.out.Close() }

// WriteAll writes a full record slice to path.
func WriteAll(path string, recs []features.Record) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

package jsonlio

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func writeLines(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInferAndRead(t *testing.T) {
	path := writeLines(t, `{"text": "hello", "label": 1, "ids": [1, 2, 3]}
{"text": "world", "label": 0, "ids": [4, 5]}
`)
	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	feats, err := r.Schema()
	if err != nil {
		t.Fatal(err)
	}
	if !features.Equal(feats["text"], features.Str()) {
		t.Fatalf("text: got %s", feats["text"])
	}
	if !features.Equal(feats["label"], features.Int()) {
		t.Fatalf("label: got %s", feats["label"])
	}
	// Lengths 3 and 2 unify to a variable-length int sequence.
	if !features.Equal(feats["ids"], features.Seq(features.Int())) {
		t.Fatalf("ids: got %s", feats["ids"])
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["text"] != "hello" || rec["label"] != int64(1) {
		t.Fatalf("first record: %v", rec)
	}
	if !reflect.DeepEqual(rec["ids"], []int64{1, 2, 3}) {
		t.Fatalf("ids: %v", rec["ids"])
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSetSchemaCoercion(t *testing.T) {
	path := writeLines(t, `{"label": "pos"}
`)
	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	r.SetSchema(features.Features{
		"label": features.ClassLabel{Names: []string{"neg", "pos"}},
	})
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["label"] != int64(1) {
		t.Fatalf("label: got %v", rec["label"])
	}
}

func TestMissingColumn(t *testing.T) {
	path := writeLines(t, `{"a": 1}
`)
	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	r.SetSchema(features.Features{"b": features.Int()})
	if _, err := r.Next(); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestFloatWidening(t *testing.T) {
	path := writeLines(t, `{"x": 1}
{"x": 2.5}
`)
	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	feats, err := r.Schema()
	if err != nil {
		t.Fatal(err)
	}
	if !features.Equal(feats["x"], features.Float()) {
		t.Fatalf("x: got %s", feats["x"])
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["x"] != float64(1) {
		t.Fatalf("x: got %v (%T)", rec["x"], rec["x"])
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	recs := []features.Record{
		{"text": "a", "ids": []int64{1, 2}},
		{"text": "b", "ids": []int64{3}},
	}
	if err := WriteAll(path, recs); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got["text"] != "a" || !reflect.DeepEqual(got["ids"], []int64{1, 2}) {
		t.Fatalf("round trip: %v", got)
	}
}

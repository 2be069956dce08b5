package csvio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInferAndRead(t *testing.T) {
	path := writeCSV(t, "text,label,score\nhello,1,0.5\nworld,0,1.25\n")
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
	if !features.Equal(feats["score"], features.Float()) {
		t.Fatalf("score: got %s", feats["score"])
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["text"] != "hello" || rec["label"] != int64(1) || rec["score"] != 0.5 {
		t.Fatalf("first record: %v", rec)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBoolColumn(t *testing.T) {
	path := writeCSV(t, "keep\ntrue\nfalse\ntrue\n")
	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	feats, err := r.Schema()
	if err != nil {
		t.Fatal(err)
	}
	if !features.Equal(feats["keep"], features.Bool()) {
		t.Fatalf("keep: got %s", feats["keep"])
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["keep"] != true {
		t.Fatalf("keep: got %v", rec["keep"])
	}
}

func TestWriteAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	feats := features.Features{"text": features.Str(), "label": features.Int()}
	recs := []features.Record{
		{"text": "a", "label": int64(0)},
		{"text": "b", "label": int64(1)},
	}
	if err := WriteAll(path, feats, recs); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rec, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if rec["text"] != "a" || rec["label"] != int64(0) {
		t.Fatalf("round trip: %v", rec)
	}
}

func TestWriteAllRejectsSequences(t *testing.T) {
	feats := features.Features{"ids": features.Seq(features.Int())}
	err := WriteAll(filepath.Join(t.TempDir(), "out.csv"), feats, nil)
	if err == nil {
		t.Fatal("expected error for sequence column")
	}
}

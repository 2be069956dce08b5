package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func writeDataset(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "train.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(f, `{"text": "doc %d", "label": %d}`+"\n", i, i%2)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readAll(t *testing.T, s *Split) []features.Record {
	t.Helper()
	r, err := s.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var out []features.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rec)
	}
}

func TestResolveFullSplit(t *testing.T) {
	dir := writeDataset(t, 10)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.Resolve("train")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 10 {
		t.Fatalf("len: got %d", s.Len())
	}
	recs := readAll(t, s)
	if len(recs) != 10 {
		t.Fatalf("read %d records", len(recs))
	}
	if recs[3]["text"] != "doc 3" {
		t.Fatalf("record 3: %v", recs[3])
	}
}

func TestResolvePartition(t *testing.T) {
	dir := writeDataset(t, 9)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := d.Resolve("train[:80%]")
	if err != nil {
		t.Fatal(err)
	}
	tail, err := d.Resolve("train[80%:]")
	if err != nil {
		t.Fatal(err)
	}
	if head.Len()+tail.Len() != 9 {
		t.Fatalf("partition sizes %d+%d != 9", head.Len(), tail.Len())
	}
	hRecs := readAll(t, head)
	tRecs := readAll(t, tail)
	if len(hRecs) != head.Len() || len(tRecs) != tail.Len() {
		t.Fatalf("read %d and %d records", len(hRecs), len(tRecs))
	}
	// The tail stream starts where the head stream ends.
	if tRecs[0]["text"] != fmt.Sprintf("doc %d", head.Len()) {
		t.Fatalf("tail starts at %v", tRecs[0]["text"])
	}
}

func TestOpenRestarts(t *testing.T) {
	dir := writeDataset(t, 4)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.Resolve("train")
	if err != nil {
		t.Fatal(err)
	}
	first := readAll(t, s)
	second := readAll(t, s)
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("restarted stream lengths %d, %d", len(first), len(second))
	}
}

func TestSidecarSchema(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "train.jsonl"),
		[]byte(`{"label": "pos"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sidecar := `{"label": {"type": "class_label", "names": ["neg", "pos"]}}`
	if err := os.WriteFile(filepath.Join(dir, "features.json"), []byte(sidecar), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.Resolve("train")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Schema()["label"].(features.ClassLabel); !ok {
		t.Fatalf("label: got %s", s.Schema()["label"])
	}
	recs := readAll(t, s)
	if recs[0]["label"] != int64(1) {
		t.Fatalf("label: got %v", recs[0]["label"])
	}
}

func TestCSVSplit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.csv"),
		[]byte("text,label\na,0\nb,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := d.Resolve("test")
	if err != nil {
		t.Fatal(err)
	}
	recs := readAll(t, s)
	if len(recs) != 2 || recs[1]["label"] != int64(1) {
		t.Fatalf("csv records: %v", recs)
	}
}

func TestMissingSplit(t *testing.T) {
	dir := writeDataset(t, 1)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Resolve("validation"); err == nil {
		t.Fatal("expected error for missing split")
	}
}

func TestMissingDataset(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dataset directory")
	}
}

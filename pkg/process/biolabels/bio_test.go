package biolabels

import (
	"reflect"
	"testing"

	"github.com/prepline/prepline/pkg/features"
)

func bioFeatures(tags []string) features.Features {
	return features.Features{
		"word_ids": features.Seq(features.Int()),
		"word_bio": features.Seq(features.ClassLabel{Names: tags}),
	}
}

func TestWordBioAlignment(t *testing.T) {
	cfg := defaultConfig()
	cfg.WordBioColumn = "word_bio"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	tags := []string{"O", "B-PER", "I-PER"}
	out, err := p.MapFeatures(bioFeatures(tags))
	if err != nil {
		t.Fatal(err)
	}
	seq, ok := out["bio"].(features.Sequence)
	if !ok {
		t.Fatalf("bio feature: got %s", out["bio"])
	}
	label, ok := seq.Of.(features.ClassLabel)
	if !ok || !reflect.DeepEqual(label.Names, tags) {
		t.Fatalf("bio vocabulary: got %v", seq.Of)
	}

	// Words tagged [O, B-PER, I-PER, O]; word 1 splits into two tokens, so
	// the repeated word keeps the entity but as an in tag.
	rec, err := p.Process(features.Record{
		"word_ids": []int64{-1, 0, 1, 1, 2, 3, -1},
		"word_bio": []int64{0, 1, 2, 0},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{-100, 0, 1, 2, 2, 0, -100}
	if !reflect.DeepEqual(rec["bio"], want) {
		t.Fatalf("got %v, want %v", rec["bio"], want)
	}
}

func TestWordBioMissingInTag(t *testing.T) {
	cfg := defaultConfig()
	cfg.WordBioColumn = "word_bio"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.MapFeatures(bioFeatures([]string{"O", "B-PER"})); err == nil {
		t.Fatal("expected error for begin tag without matching in tag")
	}
}

func TestWordSpans(t *testing.T) {
	cfg := defaultConfig()
	cfg.WordSpanColumn = "spans"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	in := features.Features{
		"word_ids": features.Seq(features.Int()),
		"spans": features.Seq(features.Struct{
			"begin": features.Int(),
			"end":   features.Int(),
			"type":  features.ClassLabel{Names: []string{"PER", "ORG"}},
		}),
	}
	out, err := p.MapFeatures(in)
	if err != nil {
		t.Fatal(err)
	}
	seq := out["bio"].(features.Sequence)
	wantTags := []string{"O", "B-PER", "I-PER", "B-ORG", "I-ORG"}
	if !reflect.DeepEqual(seq.Of.(features.ClassLabel).Names, wantTags) {
		t.Fatalf("bio vocabulary: got %v", seq.Of)
	}

	rec, err := p.Process(features.Record{
		"word_ids": []int64{-1, 0, 1, 2, 3, -1},
		"spans": []any{
			map[string]any{"begin": int64(1), "end": int64(3), "type": int64(0)},
		},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{-100, 0, 1, 2, 0, -100}
	if !reflect.DeepEqual(rec["bio"], want) {
		t.Fatalf("got %v, want %v", rec["bio"], want)
	}
}

func TestWordSpansSkipOverlap(t *testing.T) {
	cfg := defaultConfig()
	cfg.WordSpanColumn = "spans"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	in := features.Features{
		"word_ids": features.Seq(features.Int()),
		"spans": features.Seq(features.Struct{
			"begin": features.Int(),
			"end":   features.Int(),
			"type":  features.ClassLabel{Names: []string{"PER"}},
		}),
	}
	if _, err := p.MapFeatures(in); err != nil {
		t.Fatal(err)
	}
	rec, err := p.Process(features.Record{
		"word_ids": []int64{0, 1, 2},
		"spans": []any{
			map[string]any{"begin": int64(0), "end": int64(2), "type": int64(0)},
			map[string]any{"begin": int64(1), "end": int64(3), "type": int64(0)},
			map[string]any{"begin": int64(5), "end": int64(9), "type": int64(0)},
		},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Second span overlaps the first, third is out of bounds; both skipped.
	want := []int64{1, 2, 0}
	if !reflect.DeepEqual(rec["bio"], want) {
		t.Fatalf("got %v, want %v", rec["bio"], want)
	}
}

func TestSourceSelection(t *testing.T) {
	cfg := defaultConfig()
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error when no label source is set")
	}
	cfg.WordBioColumn = "a"
	cfg.WordSpanColumn = "b"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for multiple label sources")
	}
}

func TestTokenBioColumnAlias(t *testing.T) {
	cfg := defaultConfig()
	cfg.TokenBioColumn = "word_bio"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.MapFeatures(bioFeatures([]string{"O", "B-PER", "I-PER"})); err != nil {
		t.Fatal(err)
	}
	rec, err := p.Process(features.Record{
		"word_ids": []int64{0, 1},
		"word_bio": []int64{1, 0},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec["bio"], []int64{1, 0}) {
		t.Fatalf("got %v", rec["bio"])
	}

	cfg = defaultConfig()
	cfg.WordBioColumn = "a"
	cfg.TokenBioColumn = "b"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for conflicting bio columns")
	}
}

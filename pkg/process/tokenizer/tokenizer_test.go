package tokenizer

import (
	"strings"
	"testing"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/tokenize"
)

// fakeTok is a deterministic whitespace tokenizer: one token per word,
// id = 1000+word index, wrapped in [CLS]/[SEP] when withSpecials is set.
type fakeTok struct {
	withSpecials bool
}

func (f fakeTok) Encode(text string) (*tokenize.Encoding, error) {
	return f.EncodeWords(strings.Fields(text))
}

func (f fakeTok) EncodePair(text, pair string) (*tokenize.Encoding, error) {
	a, _ := f.EncodeWords(strings.Fields(text))
	b, _ := f.EncodeWords(strings.Fields(pair))
	enc := &tokenize.Encoding{}
	enc.IDs = append(append([]int64{}, a.IDs...), b.IDs...)
	for range a.IDs {
		enc.TypeIDs = append(enc.TypeIDs, 0)
	}
	for range b.IDs {
		enc.TypeIDs = append(enc.TypeIDs, 1)
	}
	for range enc.IDs {
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SpecialTokensMask = append(enc.SpecialTokensMask, 0)
		enc.WordIDs = append(enc.WordIDs, -1)
	}
	return enc, nil
}

func (f fakeTok) EncodeWords(words []string) (*tokenize.Encoding, error) {
	enc := &tokenize.Encoding{}
	if f.withSpecials {
		enc.IDs = append(enc.IDs, 101)
		enc.TypeIDs = append(enc.TypeIDs, 0)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SpecialTokensMask = append(enc.SpecialTokensMask, 1)
		enc.WordIDs = append(enc.WordIDs, -1)
		enc.Tokens = append(enc.Tokens, "[CLS]")
	}
	for i, w := range words {
		enc.IDs = append(enc.IDs, int64(1000+i))
		enc.TypeIDs = append(enc.TypeIDs, 0)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SpecialTokensMask = append(enc.SpecialTokensMask, 0)
		enc.WordIDs = append(enc.WordIDs, int64(i))
		enc.Tokens = append(enc.Tokens, w)
	}
	if f.withSpecials {
		enc.IDs = append(enc.IDs, 102)
		enc.TypeIDs = append(enc.TypeIDs, 0)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SpecialTokensMask = append(enc.SpecialTokensMask, 1)
		enc.WordIDs = append(enc.WordIDs, -1)
		enc.Tokens = append(enc.Tokens, "[SEP]")
	}
	return enc, nil
}

func TestMapFeatures(t *testing.T) {
	cfg := defaultConfig()
	cfg.ReturnWordIDs = true
	p, err := New(cfg, fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.MapFeatures(features.Features{"text": features.Str()})
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range []string{"input_ids", "token_type_ids", "attention_mask", "word_ids"} {
		f, ok := out[col]
		if !ok {
			t.Fatalf("missing output column %q", col)
		}
		if !features.Equal(f, features.Seq(features.Int())) {
			t.Fatalf("column %q: got %s", col, f)
		}
	}
}

func TestMapFeaturesFixedLength(t *testing.T) {
	cfg := defaultConfig()
	cfg.Padding = "max_length"
	cfg.Truncation = true
	cfg.MaxLength = 32
	p, err := New(cfg, fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.MapFeatures(features.Features{"text": features.Str()})
	if err != nil {
		t.Fatal(err)
	}
	if !features.Equal(out["input_ids"], features.SeqN(features.Int(), 32)) {
		t.Fatalf("input_ids: got %s, want fixed length 32", out["input_ids"])
	}
}

func TestMapFeaturesMissingColumn(t *testing.T) {
	p, err := New(defaultConfig(), fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.MapFeatures(features.Features{"other": features.Str()}); err == nil {
		t.Fatal("expected error for missing text column")
	}
}

func TestProcessSingle(t *testing.T) {
	cfg := defaultConfig()
	cfg.ReturnWordIDs = true
	cfg.ReturnLength = true
	p, err := New(cfg, fakeTok{withSpecials: true})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Process(features.Record{"text": "two words"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	ids := out["input_ids"].([]int64)
	if len(ids) != 4 {
		t.Fatalf("expected 4 tokens incl specials, got %d", len(ids))
	}
	wordIDs := out["word_ids"].([]int64)
	if wordIDs[0] != -1 || wordIDs[1] != 0 || wordIDs[2] != 1 || wordIDs[3] != -1 {
		t.Fatalf("bad word ids %v", wordIDs)
	}
	if out["length"].(int64) != 4 {
		t.Fatalf("bad length %v", out["length"])
	}
}

func TestProcessSplitIntoWords(t *testing.T) {
	cfg := defaultConfig()
	cfg.IsSplitIntoWords = true
	cfg.ReturnWordIDs = true
	p, err := New(cfg, fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Process(features.Record{"text": []string{"a", "b", "c"}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := out["word_ids"].([]int64); len(got) != 3 || got[2] != 2 {
		t.Fatalf("bad word ids %v", got)
	}
}

func TestProcessPair(t *testing.T) {
	cfg := defaultConfig()
	cfg.TextPairColumn = "hypothesis"
	p, err := New(cfg, fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Process(features.Record{"text": "a b", "hypothesis": "c"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	tt := out["token_type_ids"].([]int64)
	if len(tt) != 3 || tt[0] != 0 || tt[2] != 1 {
		t.Fatalf("bad token type ids %v", tt)
	}
}

func TestAdditionalInputsPair(t *testing.T) {
	cfg := defaultConfig()
	cfg.AdditionalInputs = map[string]string{"text_pair": "hypothesis"}
	p, err := New(cfg, fakeTok{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.MapFeatures(features.Features{
		"text":       features.Str(),
		"hypothesis": features.Str(),
	}); err != nil {
		t.Fatal(err)
	}
	out, err := p.Process(features.Record{"text": "a b", "hypothesis": "c"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	tt := out["token_type_ids"].([]int64)
	if len(tt) != 3 || tt[2] != 1 {
		t.Fatalf("bad token type ids %v", tt)
	}
}

func TestAdditionalInputsRejected(t *testing.T) {
	cfg := defaultConfig()
	cfg.AdditionalInputs = map[string]string{"boxes": "boxes"}
	if _, err := New(cfg, fakeTok{}); err == nil {
		t.Fatal("expected error for unsupported additional input")
	}

	cfg = defaultConfig()
	cfg.TextPairColumn = "hypothesis"
	cfg.AdditionalInputs = map[string]string{"text_pair": "other"}
	if _, err := New(cfg, fakeTok{}); err == nil {
		t.Fatal("expected error for conflicting pair columns")
	}
}

// Package filter implements the built-in row filters. Filters are pure
// predicates over fully processed records; they never mutate and are applied
// left to right with the first rejection winning.
package filter

import (
	"fmt"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
)

// MinSeqLenConfig are the min-seq-len-filter parameters.
type MinSeqLenConfig struct {
	MinLength int64 `mapstructure:"min_length"`

	IDsColumn string `mapstructure:"ids_column"`
	// Counted against IDsColumn when present in the record, so padding and
	// other special tokens do not count towards the valid token total.
	SpecialTokensMaskColumn string `mapstructure:"special_tokens_mask_column"`
}

func defaultMinSeqLenConfig() MinSeqLenConfig {
	return MinSeqLenConfig{
		MinLength:               16,
		IDsColumn:               "input_ids",
		SpecialTokensMaskColumn: "special_tokens_mask",
	}
}

// MinSeqLen keeps records with more than MinLength valid (non-special)
// tokens.
type MinSeqLen struct {
	cfg MinSeqLenConfig
}

func init() {
	prepline.RegisterFilter("min-seq-len-filter", func(params map[string]any) (prepline.Filter, error) {
		cfg := defaultMinSeqLenConfig()
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return NewMinSeqLen(cfg), nil
	})
}

// NewMinSeqLen builds the filter; column availability is checked in Check.
func NewMinSeqLen(cfg MinSeqLenConfig) *MinSeqLen {
	return &MinSeqLen{cfg: cfg}
}

func (f *MinSeqLen) Name() string { return "min-seq-len-filter" }

func (f *MinSeqLen) Check(feats features.Features) error {
	idf, ok := feats[f.cfg.IDsColumn]
	if !ok {
		return fmt.Errorf("ids column %q not present in features", f.cfg.IDsColumn)
	}
	if s, isSeq := idf.(features.Sequence); !isSeq || !features.Equal(s.Of, features.Int()) {
		return fmt.Errorf("ids column %q must be a sequence of ints, got %s", f.cfg.IDsColumn, idf)
	}

	if mf, ok := feats[f.cfg.SpecialTokensMaskColumn]; ok {
		if s, isSeq := mf.(features.Sequence); !isSeq || !features.Equal(s.Of, features.Int()) {
			return fmt.Errorf("special tokens mask column %q must be a sequence of ints, got %s", f.cfg.SpecialTokensMaskColumn, mf)
		}
	}
	return nil
}

// Keep subtracts the special tokens mask when the record carries it, so the
// threshold applies to real content tokens only.
func (f *MinSeqLen) Keep(rec features.Record, index int) (bool, error) {
	ids, ok := features.Ints(rec[f.cfg.IDsColumn])
	if !ok {
		return false, fmt.Errorf("record %d: column %q is not an int sequence", index, f.cfg.IDsColumn)
	}
	valid := int64(len(ids))
	if mv, ok := rec[f.cfg.SpecialTokensMaskColumn]; ok {
		mask, ok := features.Ints(mv)
		if !ok {
			return false, fmt.Errorf("record %d: column %q is not an int sequence", index, f.cfg.SpecialTokensMaskColumn)
		}
		if len(mask) != len(ids) {
			return false, fmt.Errorf("record %d: mask length %d does not match ids length %d", index, len(mask), len(ids))
		}
		for _, m := range mask {
			valid -= m
		}
	}
	return valid > f.cfg.MinLength, nil
}

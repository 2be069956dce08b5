// Package biolabels implements the "bio-labels" processor, which generates
// token-level BIO tag ids from word-level labels or word-level entity spans,
// aligned through the tokenizer's word ids.
package biolabels

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
)

// Config are the bio-labels processor parameters. Exactly one of
// WordBioColumn and WordSpanColumn selects the label source;
// token_bio_column is accepted as an alias for word_bio_column.
type Config struct {
	WordIDsColumn  string `mapstructure:"word_ids_column"`
	WordBioColumn  string `mapstructure:"word_bio_column"`
	TokenBioColumn string `mapstructure:"token_bio_column"`
	WordSpanColumn string `mapstructure:"word_span_column"`

	OutTag         string `mapstructure:"out_tag"`
	BeginTagPrefix string `mapstructure:"begin_tag_prefix"`
	InTagPrefix    string `mapstructure:"in_tag_prefix"`

	OutputColumn     string `mapstructure:"output_column"`
	IgnoreLabelIndex int64  `mapstructure:"ignore_label_index"`
}

func defaultConfig() Config {
	return Config{
		WordIDsColumn:    "word_ids",
		OutTag:           "O",
		BeginTagPrefix:   "B-",
		InTagPrefix:      "I-",
		OutputColumn:     "bio",
		IgnoreLabelIndex: -100,
	}
}

// Processor assigns one BIO tag id per token. The tag vocabulary is fixed
// during MapFeatures and never changes within a run.
type Processor struct {
	cfg Config

	// word_bio source: maps the id of a begin tag to the id of the matching
	// in tag; ids of non-begin tags map to themselves.
	begin2in []int64

	// word_span source: tag vocabulary and entity names from the span type.
	label       features.ClassLabel
	entityNames []string
	outLen      int
}

func init() {
	prepline.RegisterProcessor("bio-labels", func(params map[string]any) (prepline.Processor, error) {
		cfg := defaultConfig()
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return New(cfg)
	})
}

// New validates the label source selection.
func New(cfg Config) (*Processor, error) {
	if cfg.TokenBioColumn != "" {
		if cfg.WordBioColumn != "" && cfg.WordBioColumn != cfg.TokenBioColumn {
			return nil, fmt.Errorf("token_bio_column %q conflicts with word_bio_column %q", cfg.TokenBioColumn, cfg.WordBioColumn)
		}
		cfg.WordBioColumn = cfg.TokenBioColumn
	}
	if cfg.WordBioColumn == "" && cfg.WordSpanColumn == "" {
		return nil, fmt.Errorf("either word_bio_column or word_span_column must be provided")
	}
	if cfg.WordBioColumn != "" && cfg.WordSpanColumn != "" {
		return nil, fmt.Errorf("multiple label sources specified")
	}
	if cfg.WordIDsColumn == "" {
		return nil, fmt.Errorf("word_ids_column not defined")
	}
	return &Processor{cfg: cfg}, nil
}

func (p *Processor) Name() string { return "bio-labels" }

func (p *Processor) MapFeatures(in features.Features) (features.Features, error) {
	wf, ok := in[p.cfg.WordIDsColumn]
	if !ok {
		return nil, fmt.Errorf("word ids column %q not present in features", p.cfg.WordIDsColumn)
	}
	ws, isSeq := wf.(features.Sequence)
	if !isSeq || !features.Equal(ws.Of, features.Int()) {
		return nil, fmt.Errorf("word ids column %q must be a sequence of ints, got %s", p.cfg.WordIDsColumn, wf)
	}
	p.outLen = ws.Length

	if p.cfg.WordBioColumn != "" {
		return p.mapBioFeatures(in)
	}
	return p.mapSpanFeatures(in)
}

func (p *Processor) mapBioFeatures(in features.Features) (features.Features, error) {
	lf, ok := in[p.cfg.WordBioColumn]
	if !ok {
		return nil, fmt.Errorf("bio labels column %q not present in features", p.cfg.WordBioColumn)
	}
	ls, isSeq := lf.(features.Sequence)
	if !isSeq {
		return nil, fmt.Errorf("bio labels column %q must be a sequence of class labels, got %s", p.cfg.WordBioColumn, lf)
	}
	label, isLabel := ls.Of.(features.ClassLabel)
	if !isLabel {
		return nil, fmt.Errorf("bio labels column %q must be a sequence of class labels, got %s", p.cfg.WordBioColumn, lf)
	}

	begin2in, err := beginToIn(label, p.cfg.BeginTagPrefix, p.cfg.InTagPrefix)
	if err != nil {
		return nil, err
	}
	p.begin2in = begin2in
	p.label = label
	return features.Features{
		p.cfg.OutputColumn: features.SeqN(label, p.outLen),
	}, nil
}

// beginToIn builds the begin-to-in tag id mapping. Every begin tag must have
// a matching in tag in the vocabulary.
func beginToIn(label features.ClassLabel, beginPrefix, inPrefix string) ([]int64, error) {
	out := make([]int64, len(label.Names))
	for i, tag := range label.Names {
		out[i] = int64(i)
		if !strings.HasPrefix(tag, beginPrefix) {
			continue
		}
		inTag := inPrefix + strings.TrimPrefix(tag, beginPrefix)
		id, ok := label.ID(inTag)
		if !ok {
			return nil, fmt.Errorf("begin tag %q has no matching in tag %q", tag, inTag)
		}
		out[i] = id
	}
	return out, nil
}

func (p *Processor) mapSpanFeatures(in features.Features) (features.Features, error) {
	sf, ok := in[p.cfg.WordSpanColumn]
	if !ok {
		return nil, fmt.Errorf("word span column %q not present in features", p.cfg.WordSpanColumn)
	}
	ss, isSeq := sf.(features.Sequence)
	if !isSeq {
		return nil, fmt.Errorf("word span column %q must be a sequence of spans, got %s", p.cfg.WordSpanColumn, sf)
	}
	st, isStruct := ss.Of.(features.Struct)
	if !isStruct {
		return nil, fmt.Errorf("word span column %q must be a sequence of spans, got %s", p.cfg.WordSpanColumn, sf)
	}
	for _, field := range []string{"begin", "end"} {
		if !features.Equal(st[field], features.Int()) {
			return nil, fmt.Errorf("span field %q must be an int, got %s", field, st[field])
		}
	}
	typeLabel, isLabel := st["type"].(features.ClassLabel)
	if !isLabel {
		return nil, fmt.Errorf("span field \"type\" must be a class label, got %s", st["type"])
	}

	// Tag vocabulary is [O, B-T1, I-T1, B-T2, I-T2, ...] in entity-name
	// order, so the same tag always maps to the same id within one run.
	tags := []string{p.cfg.OutTag}
	for _, name := range typeLabel.Names {
		tags = append(tags, p.cfg.BeginTagPrefix+name, p.cfg.InTagPrefix+name)
	}
	p.label = features.ClassLabel{Names: tags}
	p.entityNames = typeLabel.Names
	return features.Features{
		p.cfg.OutputColumn: features.SeqN(p.label, p.outLen),
	}, nil
}

func (p *Processor) Process(rec features.Record, index int) (features.Record, error) {
	wordIDs, ok := features.Ints(rec[p.cfg.WordIDsColumn])
	if !ok {
		return nil, fmt.Errorf("record %d: column %q is not an int sequence", index, p.cfg.WordIDsColumn)
	}
	if p.cfg.WordBioColumn != "" {
		return p.processBio(rec, wordIDs, index)
	}
	return p.processSpans(rec, wordIDs, index)
}

func (p *Processor) processBio(rec features.Record, wordIDs []int64, index int) (features.Record, error) {
	wordTags, ok := features.Ints(rec[p.cfg.WordBioColumn])
	if !ok {
		return nil, fmt.Errorf("record %d: column %q is not an int sequence", index, p.cfg.WordBioColumn)
	}
	bio := make([]int64, len(wordIDs))
	for i, wid := range wordIDs {
		if wid < 0 {
			bio[i] = p.cfg.IgnoreLabelIndex
			continue
		}
		if wid >= int64(len(wordTags)) {
			return nil, fmt.Errorf("record %d: word id %d out of range for %d word tags", index, wid, len(wordTags))
		}
		id := wordTags[wid]
		if id < 0 || id >= int64(len(p.begin2in)) {
			return nil, fmt.Errorf("record %d: label id %d out of range", index, id)
		}
		// Only the first token of a word keeps its begin tag.
		if i > 0 && wordIDs[i-1] == wid {
			id = p.begin2in[id]
		}
		bio[i] = id
	}
	return features.Record{p.cfg.OutputColumn: bio}, nil
}

func (p *Processor) processSpans(rec features.Record, wordIDs []int64, index int) (features.Record, error) {
	spans, ok := rec[p.cfg.WordSpanColumn].([]any)
	if !ok {
		return nil, fmt.Errorf("record %d: column %q is not a span sequence", index, p.cfg.WordSpanColumn)
	}

	// Out tag id is 0 by construction of the vocabulary.
	bio := make([]int64, len(wordIDs))
	for i, wid := range wordIDs {
		if wid < 0 {
			bio[i] = p.cfg.IgnoreLabelIndex
		}
	}

	for _, s := range spans {
		span, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: malformed span %v", index, s)
		}
		begin, okB := span["begin"].(int64)
		end, okE := span["end"].(int64)
		typeID, okT := span["type"].(int64)
		if !okB || !okE || !okT {
			return nil, fmt.Errorf("record %d: malformed span %v", index, span)
		}
		if typeID < 0 || typeID >= int64(len(p.entityNames)) {
			return nil, fmt.Errorf("record %d: span type %d out of range", index, typeID)
		}

		var idx []int
		overlap := false
		for i, wid := range wordIDs {
			if wid < 0 || wid < begin || wid >= end {
				continue
			}
			if bio[i] != 0 {
				overlap = true
			}
			idx = append(idx, i)
		}
		if len(idx) == 0 {
			slog.Warn("entity out of bounds, skipping", "record", index, "begin", begin, "end", end)
			continue
		}
		if overlap {
			slog.Warn("entity overlap, skipping", "record", index, "begin", begin, "end", end)
			continue
		}

		entity := p.entityNames[typeID]
		beginID, _ := p.label.ID(p.cfg.BeginTagPrefix + entity)
		inID, _ := p.label.ID(p.cfg.InTagPrefix + entity)
		bio[idx[0]] = beginID
		for _, i := range idx[1:] {
			bio[i] = inID
		}
	}
	return features.Record{p.cfg.OutputColumn: bio}, nil
}

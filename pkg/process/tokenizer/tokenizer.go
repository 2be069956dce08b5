// Package tokenizer implements the "tokenizer" processor: it wraps a
// pretrained subword tokenizer and turns a text column (or text pair, or
// pre-split words) into model inputs.
package tokenizer

import (
	"fmt"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
	"github.com/prepline/prepline/pkg/tokenize"
)

// Config are the tokenizer processor parameters. AdditionalInputs maps
// extra tokenizer input names to the record columns feeding them; text_pair
// is the supported input, and text_pair_column is shorthand for it.
type Config struct {
	PretrainedCkpt   string            `mapstructure:"pretrained_ckpt"`
	TextColumn       string            `mapstructure:"text_column"`
	TextPairColumn   string            `mapstructure:"text_pair_column"`
	AdditionalInputs map[string]string `mapstructure:"additional_inputs"`
	AddSpecialTokens bool              `mapstructure:"add_special_tokens"`
	Padding          any               `mapstructure:"padding"`    // false or "max_length"
	Truncation       any               `mapstructure:"truncation"` // bool or "longest_first"
	MaxLength        int               `mapstructure:"max_length"`
	IsSplitIntoWords bool              `mapstructure:"is_split_into_words"`

	ReturnTokenTypeIDs      bool `mapstructure:"return_token_type_ids"`
	ReturnAttentionMask     bool `mapstructure:"return_attention_mask"`
	ReturnSpecialTokensMask bool `mapstructure:"return_special_tokens_mask"`
	ReturnWordIDs           bool `mapstructure:"return_word_ids"`
	ReturnLength            bool `mapstructure:"return_length"`
}

func defaultConfig() Config {
	return Config{
		TextColumn:          "text",
		AddSpecialTokens:    true,
		ReturnTokenTypeIDs:  true,
		ReturnAttentionMask: true,
	}
}

func (c Config) padding() (tokenize.Padding, error) {
	switch v := c.Padding.(type) {
	case nil:
		return tokenize.PadNone, nil
	case bool:
		if v {
			return tokenize.PadMaxLength, nil
		}
		return tokenize.PadNone, nil
	case string:
		switch v {
		case "max_length":
			return tokenize.PadMaxLength, nil
		case "do_not_pad", "":
			return tokenize.PadNone, nil
		}
	}
	return tokenize.PadNone, fmt.Errorf("invalid padding %v", c.Padding)
}

func (c Config) truncation() (bool, error) {
	switch v := c.Truncation.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		switch v {
		case "longest_first":
			return true, nil
		case "do_not_truncate", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("invalid truncation %v", c.Truncation)
}

// Processor tokenizes one text column per record.
type Processor struct {
	cfg Config
	tk  tokenize.Tokenizer
}

func init() {
	prepline.RegisterProcessor("tokenizer", func(params map[string]any) (prepline.Processor, error) {
		cfg := defaultConfig()
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		if cfg.PretrainedCkpt == "" {
			return nil, fmt.Errorf("pretrained_ckpt not defined")
		}
		pad, err := cfg.padding()
		if err != nil {
			return nil, err
		}
		trunc, err := cfg.truncation()
		if err != nil {
			return nil, err
		}
		tk, err := tokenize.Load(cfg.PretrainedCkpt, tokenize.Options{
			AddSpecialTokens: cfg.AddSpecialTokens,
			Truncation:       trunc,
			MaxLength:        cfg.MaxLength,
			Padding:          pad,
		})
		if err != nil {
			return nil, &prepline.ResourceError{Identifier: cfg.PretrainedCkpt, Err: err}
		}
		return New(cfg, tk)
	})
}

// New builds the processor around an already-loaded tokenizer.
func New(cfg Config, tk tokenize.Tokenizer) (*Processor, error) {
	for input, column := range cfg.AdditionalInputs {
		if input != "text_pair" {
			return nil, fmt.Errorf("unsupported additional input %q", input)
		}
		if cfg.TextPairColumn != "" && cfg.TextPairColumn != column {
			return nil, fmt.Errorf("additional input text_pair %q conflicts with text_pair_column %q", column, cfg.TextPairColumn)
		}
		cfg.TextPairColumn = column
	}
	if cfg.IsSplitIntoWords && cfg.TextPairColumn != "" {
		return nil, fmt.Errorf("text_pair_column cannot be combined with is_split_into_words")
	}
	return &Processor{cfg: cfg, tk: tk}, nil
}

func (p *Processor) Name() string { return "tokenizer" }

// fixedLength reports the constant output sequence length, or -1 when the
// length varies per record. Constant only when padding to max_length with
// truncation enabled.
func (p *Processor) fixedLength() int {
	pad, _ := p.cfg.padding()
	trunc, _ := p.cfg.truncation()
	if p.cfg.MaxLength > 0 && pad == tokenize.PadMaxLength && trunc {
		return p.cfg.MaxLength
	}
	return -1
}

func (p *Processor) MapFeatures(in features.Features) (features.Features, error) {
	f, ok := in[p.cfg.TextColumn]
	if !ok {
		return nil, fmt.Errorf("text column %q not present in features", p.cfg.TextColumn)
	}
	if p.cfg.IsSplitIntoWords {
		if s, isSeq := f.(features.Sequence); !isSeq || !features.Equal(s.Of, features.Str()) {
			return nil, fmt.Errorf("text column %q must be a sequence of strings, got %s", p.cfg.TextColumn, f)
		}
	} else if !features.Equal(f, features.Str()) {
		return nil, fmt.Errorf("text column %q must be a string, got %s", p.cfg.TextColumn, f)
	}
	if p.cfg.TextPairColumn != "" {
		pf, ok := in[p.cfg.TextPairColumn]
		if !ok {
			return nil, fmt.Errorf("text pair column %q not present in features", p.cfg.TextPairColumn)
		}
		if !features.Equal(pf, features.Str()) {
			return nil, fmt.Errorf("text pair column %q must be a string, got %s", p.cfg.TextPairColumn, pf)
		}
	}

	length := p.fixedLength()
	out := features.Features{
		"input_ids": features.SeqN(features.Int(), length),
	}
	if p.cfg.ReturnTokenTypeIDs {
		out["token_type_ids"] = features.SeqN(features.Int(), length)
	}
	if p.cfg.ReturnAttentionMask {
		out["attention_mask"] = features.SeqN(features.Int(), length)
	}
	if p.cfg.ReturnSpecialTokensMask {
		out["special_tokens_mask"] = features.SeqN(features.Int(), length)
	}
	if p.cfg.ReturnWordIDs {
		out["word_ids"] = features.SeqN(features.Int(), length)
	}
	if p.cfg.ReturnLength {
		out["length"] = features.Int()
	}
	return out, nil
}

func (p *Processor) Process(rec features.Record, index int) (features.Record, error) {
	var (
		enc *tokenize.Encoding
		err error
	)
	switch {
	case p.cfg.IsSplitIntoWords:
		words, ok := features.Strings(rec[p.cfg.TextColumn])
		if !ok {
			return nil, fmt.Errorf("record %d: column %q is not a string sequence", index, p.cfg.TextColumn)
		}
		enc, err = p.tk.EncodeWords(words)
	case p.cfg.TextPairColumn != "":
		text, ok := rec[p.cfg.TextColumn].(string)
		if !ok {
			return nil, fmt.Errorf("record %d: column %q is not a string", index, p.cfg.TextColumn)
		}
		pair, ok := rec[p.cfg.TextPairColumn].(string)
		if !ok {
			return nil, fmt.Errorf("record %d: column %q is not a string", index, p.cfg.TextPairColumn)
		}
		enc, err = p.tk.EncodePair(text, pair)
	default:
		text, ok := rec[p.cfg.TextColumn].(string)
		if !ok {
			return nil, fmt.Errorf("record %d: column %q is not a string", index, p.cfg.TextColumn)
		}
		enc, err = p.tk.Encode(text)
	}
	if err != nil {
		return nil, fmt.Errorf("record %d: tokenize: %w", index, err)
	}

	out := features.Record{"input_ids": enc.IDs}
	if p.cfg.ReturnTokenTypeIDs {
		out["token_type_ids"] = enc.TypeIDs
	}
	if p.cfg.ReturnAttentionMask {
		out["attention_mask"] = enc.AttentionMask
	}
	if p.cfg.ReturnSpecialTokensMask {
		out["special_tokens_mask"] = enc.SpecialTokensMask
	}
	if p.cfg.ReturnWordIDs {
		out["word_ids"] = enc.WordIDs
	}
	if p.cfg.ReturnLength {
		out["length"] = int64(len(enc.IDs))
	}
	return out, nil
}

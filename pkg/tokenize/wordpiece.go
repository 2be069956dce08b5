package tokenize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
)

const (
	unkToken = "[UNK]"
	sepToken = "[SEP]"
	clsToken = "[CLS]"
	padToken = "[PAD]"
)

// wordPieceTokenizer wraps a sugarme WordPiece tokenizer with BERT
// normalization and post-processing.
type wordPieceTokenizer struct {
	tk   *tokenizer.Tokenizer
	opts Options
}

// Load resolves a checkpoint directory (containing vocab.txt) to a WordPiece
// tokenizer configured per opts.
func Load(ckpt string, opts Options) (Tokenizer, error) {
	vocab := filepath.Join(ckpt, "vocab.txt")
	if _, err := os.Stat(vocab); err != nil {
		return nil, fmt.Errorf("checkpoint %q has no vocab.txt: %w", ckpt, err)
	}
	model, err := wordpiece.NewWordPieceFromFile(vocab, unkToken)
	if err != nil {
		return nil, fmt.Errorf("load wordpiece vocab %q: %w", vocab, err)
	}

	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	if opts.AddSpecialTokens {
		sepID, ok := tk.TokenToId(sepToken)
		if !ok {
			return nil, fmt.Errorf("checkpoint %q: vocab has no %s token", ckpt, sepToken)
		}
		clsID, ok := tk.TokenToId(clsToken)
		if !ok {
			return nil, fmt.Errorf("checkpoint %q: vocab has no %s token", ckpt, clsToken)
		}
		tk.WithPostProcessor(processor.NewBertProcessing(
			processor.PostToken{Value: sepToken, Id: sepID},
			processor.PostToken{Value: clsToken, Id: clsID},
		))
	}
	if opts.Truncation && opts.MaxLength > 0 {
		tk.WithTruncation(&tokenizer.TruncationParams{
			MaxLength: opts.MaxLength,
			Strategy:  tokenizer.LongestFirst,
		})
	}
	if opts.Padding == PadMaxLength && opts.MaxLength > 0 {
		padID, _ := tk.TokenToId(padToken)
		strategy := tokenizer.NewPaddingStrategy(tokenizer.WithFixed(opts.MaxLength))
		tk.WithPadding(&tokenizer.PaddingParams{
			Strategy:  *strategy,
			Direction: tokenizer.Right,
			PadId:     padID,
			PadTypeId: 0,
			PadToken:  padToken,
		})
	}
	return &wordPieceTokenizer{tk: tk, opts: opts}, nil
}

func (t *wordPieceTokenizer) Encode(text string) (*Encoding, error) {
	enc, err := t.tk.EncodeSingle(text, t.opts.AddSpecialTokens)
	if err != nil {
		return nil, err
	}
	return convert(enc), nil
}

func (t *wordPieceTokenizer) EncodePair(text, pair string) (*Encoding, error) {
	enc, err := t.tk.EncodePair(text, pair, t.opts.AddSpecialTokens)
	if err != nil {
		return nil, err
	}
	return convert(enc), nil
}

func (t *wordPieceTokenizer) EncodeWords(words []string) (*Encoding, error) {
	seq := tokenizer.NewInputSequence(words)
	enc, err := t.tk.Encode(tokenizer.NewSingleEncodeInput(seq), t.opts.AddSpecialTokens)
	if err != nil {
		return nil, err
	}
	return convert(enc), nil
}

func convert(enc *tokenizer.Encoding) *Encoding {
	out := &Encoding{
		IDs:               toInt64(enc.Ids),
		TypeIDs:           toInt64(enc.TypeIds),
		AttentionMask:     toInt64(enc.AttentionMask),
		SpecialTokensMask: toInt64(enc.SpecialTokenMask),
		WordIDs:           make([]int64, len(enc.Words)),
		Tokens:            enc.Tokens,
	}
	for i, w := range enc.Words {
		if w < 0 {
			out.WordIDs[i] = -1
		} else {
			out.WordIDs[i] = int64(w)
		}
	}
	return out
}

func toInt64(xs []int) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}

// Package tokenize resolves pretrained checkpoint identifiers to subword
// tokenizers and defines the encoding contract consumed by the tokenizer
// processor. Instances are constructed per pipeline build and are read-only
// afterwards; parallel workers each load their own.
package tokenize

// Padding selects the padding behavior of a loaded tokenizer.
type Padding string

const (
	PadNone      Padding = ""
	PadMaxLength Padding = "max_length"
)

// Options configure a tokenizer at load time, once per processor instance.
type Options struct {
	AddSpecialTokens bool
	Truncation       bool
	MaxLength        int
	Padding          Padding
}

// Encoding is one tokenized record. WordIDs holds -1 for special tokens,
// otherwise the index of the source word a token was produced from.
type Encoding struct {
	IDs               []int64
	TypeIDs           []int64
	AttentionMask     []int64
	SpecialTokensMask []int64
	WordIDs           []int64
	Tokens            []string
}

// Tokenizer encodes raw text into model inputs.
type Tokenizer interface {
	// Encode tokenizes a single text.
	Encode(text string) (*Encoding, error)

	// EncodePair tokenizes a text pair (e.g. premise/hypothesis) into one
	// sequence with segment type ids.
	EncodePair(text, pair string) (*Encoding, error)

	// EncodeWords tokenizes pre-split input, preserving word ids.
	EncodeWords(words []string) (*Encoding, error)
}

// Package tiktoken measures chunk windows in OpenAI BPE tokens.
package tiktoken

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// DefaultEncoding is the encoding shared by the OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	enc  *tiktoken.Tiktoken
	name string
}

// New loads the named encoding. Empty name means DefaultEncoding.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tokenizer{enc: enc, name: encoding}, nil
}

// ForModel loads the encoding used by an embedding model,
// falling back to DefaultEncoding for models tiktoken does not know.
func ForModel(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return New(DefaultEncoding)
	}
	return &Tokenizer{enc: enc, name: model}, nil
}

// Loader returns a function that loads the tokenizer for model on first call
// and returns the same result afterwards. Encodings may be fetched over the network.
func Loader(model string) func() (driven.Tokenizer, error) {
	return sync.OnceValues(func() (driven.Tokenizer, error) {
		tok, err := ForModel(model)
		if err != nil {
			return nil, err
		}
		return tok, nil
	})
}

// Encode splits text into token ids. Special tokens are treated as text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode joins token ids back into text.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Name returns the encoding or model name the tokenizer was loaded for.
func (t *Tokenizer) Name() string {
	return t.name
}

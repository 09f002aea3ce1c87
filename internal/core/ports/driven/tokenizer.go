package driven

// Tokenizer converts between text and model tokens.
// The chunker uses it when windows are measured in tokens.
type Tokenizer interface {
	// Encode splits text into token ids.
	Encode(text string) []int

	// Decode joins token ids back into text.
	Decode(tokens []int) string
}

package driven

// Prompt template names used when assembling retrieved context for an LLM.
const (
	// PromptSystemDefault is the system prompt used when a chatbot has none.
	PromptSystemDefault = "system_default"

	// PromptContextPreamble introduces the retrieved documents.
	PromptContextPreamble = "context_preamble"

	// PromptContextInstruction follows the retrieved documents.
	PromptContextInstruction = "context_instruction"

	// PromptNoContext is appended when nothing was retrieved.
	PromptNoContext = "no_context"
)

// PromptStore loads prompt templates by name.
// Implementations may read user-editable files and fall back to built-in defaults.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}

// DefaultPrompts returns the built-in template for every prompt name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptSystemDefault:      "You are a helpful assistant that answers questions based on the provided context.",
		PromptContextPreamble:    "Context information is below.",
		PromptContextInstruction: "Given this information, please answer the user's question or respond to their request.",
		PromptNoContext:          "You don't have specific context for this query. If you don't know the answer, say so clearly.",
	}
}

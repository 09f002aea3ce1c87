package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

var (
	queryChatbot      string
	queryTopK         int
	queryJSON         bool
	querySystemPrompt string
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks most similar to a question",
	Long: `Embeds the question and returns the closest chunks of the chatbot's documents,
best match first. A failing embedding provider yields no results rather than an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var contextCmd = &cobra.Command{
	Use:   "context [text]",
	Short: "Print the system message that grounds an answer",
	Long: `Retrieves chunks for the question and assembles them with the system prompt
into the message sent to a language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runContext,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, contextCmd} {
		c.Flags().StringVarP(&queryChatbot, "chatbot", "c", "", "chatbot to query (required)")
		c.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks; 0 uses the configured default")
		_ = c.MarkFlagRequired("chatbot")
	}
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print source previews as JSON")
	contextCmd.Flags().StringVar(&querySystemPrompt, "system-prompt", "", "system prompt; empty uses the default")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(contextCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.Join(args, " ")
	results, err := retrievalService.Retrieve(cmd.Context(), queryChatbot, query, queryTopK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		previews := retrievalService.SourcePreviews(results)
		if previews == nil {
			previews = []domain.SourcePreview{}
		}
		out, err := json.MarshalIndent(previews, "", "  ")
		if err != nil {
			return fmt.Errorf("encode previews: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No matching chunks.")
		return nil
	}

	cmd.Printf("Found %d chunks:\n\n", len(results))
	for i, r := range results {
		cmd.Printf("%d. [%.3f] %s\n", i+1, r.Similarity, r.Filename)
		cmd.Printf("   Chunk: %s\n", r.ChunkID)
		cmd.Printf("   %s\n\n", indent(r.Text, "   "))
	}
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.Join(args, " ")
	results, err := retrievalService.Retrieve(cmd.Context(), queryChatbot, query, queryTopK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	cmd.Println(retrievalService.BuildContext(querySystemPrompt, results))
	return nil
}

func indent(text, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n"+prefix)
}

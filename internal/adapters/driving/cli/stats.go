package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsVerify bool

var statsCmd = &cobra.Command{
	Use:   "stats [chatbot-id]",
	Short: "Show what a chatbot knows",
	Long: `Prints the document, chunk and vector counts of a chatbot.
With --verify, also lists chunks without vectors and vectors without chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsVerify, "verify", false, "compare the chunk store with the vector index")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	ctx := cmd.Context()
	chatbotID := args[0]
	stats, err := knowledgeService.Stats(ctx, chatbotID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Chatbot: %s\n\n", chatbotID)
	cmd.Printf("  Documents: %d\n", stats.DocumentCount)
	cmd.Printf("  Chunks:    %d\n", stats.ChunkCount)
	cmd.Printf("  Vectors:   %d\n", stats.IndexedCount)

	if !statsVerify {
		return nil
	}

	report, err := knowledgeService.VerifyConsistency(ctx, chatbotID)
	if err != nil {
		return fmt.Errorf("failed to verify consistency: %w", err)
	}

	cmd.Println()
	if report.Consistent() {
		cmd.Println("Chunk store and vector index are consistent.")
		return nil
	}
	for _, id := range report.MissingVectors {
		cmd.Printf("  missing vector: %s\n", id)
	}
	for _, id := range report.OrphanVectors {
		cmd.Printf("  orphan vector:  %s\n", id)
	}
	return fmt.Errorf("%d chunks without vectors, %d vectors without chunks",
		len(report.MissingVectors), len(report.OrphanVectors))
}

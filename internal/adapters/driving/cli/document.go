package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect ingested documents",
	Long:  `List the documents of a chatbot or view the chunks of a document.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list [chatbot-id]",
	Short: "List documents for a chatbot",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print the chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentChunksCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	chatbotID := args[0]
	docs, err := knowledgeService.ListDocuments(cmd.Context(), chatbotID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents found for chatbot: %s\n", chatbotID)
		return nil
	}

	cmd.Printf("Documents for chatbot %s:\n\n", chatbotID)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:     %s\n", docs[i].DisplayName())
		if docs[i].SourceType != "" {
			cmd.Printf("    Type:     %s\n", docs[i].SourceType)
		}
		if !docs[i].UploadedAt.IsZero() {
			cmd.Printf("    Uploaded: %s\n", docs[i].UploadedAt.Format("2006-01-02 15:04:05"))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	docID := args[0]
	chunks, err := knowledgeService.GetDocumentChunks(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to get document chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Printf("Document %s has no chunks\n", docID)
		return nil
	}

	for i := range chunks {
		cmd.Printf("--- chunk %d (%s) ---\n", chunks[i].Position, chunks[i].ID)
		cmd.Println(chunks[i].Content)
	}
	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove documents or whole chatbots",
}

var deleteDocumentCmd = &cobra.Command{
	Use:   "document [id]",
	Short: "Delete a document with its chunks and vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestionService == nil {
			return errors.New("ingestion service not configured")
		}
		if err := ingestionService.DeleteDocument(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		cmd.Printf("Deleted document %s\n", args[0])
		return nil
	},
}

var deleteChatbotCmd = &cobra.Command{
	Use:   "chatbot [id]",
	Short: "Delete every document, chunk and vector of a chatbot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestionService == nil {
			return errors.New("ingestion service not configured")
		}
		if err := ingestionService.DeleteChatbot(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete chatbot: %w", err)
		}
		cmd.Printf("Deleted chatbot %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.AddCommand(deleteDocumentCmd)
	deleteCmd.AddCommand(deleteChatbotCmd)
	rootCmd.AddCommand(deleteCmd)
}

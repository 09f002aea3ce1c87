// Package cli provides the ragkit command line interface.
//
// Commands are registered on rootCmd in init functions. Services are
// injected with SetServices before Execute is called.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Injected services.
var (
	retrievalService   driving.RetrievalService
	ingestionService   driving.IngestionService
	knowledgeService   driving.KnowledgeService
	settingsService    driving.SettingsService
	normaliserRegistry driven.NormaliserRegistry
)

// Services holds the services commands run against.
type Services struct {
	Retrieval   driving.RetrievalService
	Ingestion   driving.IngestionService
	Knowledge   driving.KnowledgeService
	Settings    driving.SettingsService
	Normalisers driven.NormaliserRegistry
}

// SetServices injects the services used by commands.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	ingestionService = s.Ingestion
	knowledgeService = s.Knowledge
	settingsService = s.Settings
	normaliserRegistry = s.Normalisers
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ragkit",
	Short: "Retrieval for document-grounded chatbots",
	Long: `ragkit ingests documents into per-chatbot knowledge bases and retrieves
the chunks most similar to a question, ready to ground an LLM prompt.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. Commands observe ctx cancellation.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

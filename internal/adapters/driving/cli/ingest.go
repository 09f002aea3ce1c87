package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/normalisers"
)

var (
	ingestChatbot    string
	ingestDocumentID string
	ingestChunkSize  int
	ingestOverlap    int
	ingestUnit       string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into a chatbot",
	Long: `Extracts the text of a file, splits it into overlapping chunks, embeds each
chunk and stores it for retrieval. Re-ingesting a document id replaces its chunks.

Chunks that cannot be embedded are skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestBatchCmd = &cobra.Command{
	Use:   "ingest-batch [path...]",
	Short: "Ingest files and directories into a chatbot",
	Long: `Ingests every supported file found under the given paths, one after another.
A document that fails does not stop the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngestBatch,
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, ingestBatchCmd} {
		c.Flags().StringVarP(&ingestChatbot, "chatbot", "c", "", "chatbot that owns the documents (required)")
		c.Flags().IntVar(&ingestChunkSize, "chunk-size", domain.DefaultChunkSize, "units per chunk")
		c.Flags().IntVar(&ingestOverlap, "overlap", domain.DefaultOverlapSize, "units shared by consecutive chunks")
		c.Flags().StringVar(&ingestUnit, "unit", string(domain.DefaultChunkUnit), "chunk unit: chars or tokens")
		_ = c.MarkFlagRequired("chatbot")
	}
	ingestCmd.Flags().StringVar(&ingestDocumentID, "id", "", "document id; derived from the file path when empty")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestBatchCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if normaliserRegistry == nil {
		return errors.New("normaliser registry not configured")
	}

	cfg, err := chunkConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	path := args[0]
	doc, err := loadDocument(ctx, path, ingestChatbot)
	if err != nil {
		return err
	}
	if ingestDocumentID != "" {
		doc.ID = ingestDocumentID
	}

	result, err := ingestionService.IngestDocument(ctx, doc, doc.Content, cfg)
	if err != nil {
		if result != nil && result.ChunkCount > 0 {
			cmd.Printf("Stored %d chunks before the failure.\n", result.ChunkCount)
		}
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}

	printIngestResult(cmd, doc.DisplayName(), result)
	return nil
}

func printIngestResult(cmd *cobra.Command, name string, result *domain.IngestResult) {
	switch {
	case result.Partial():
		cmd.Printf("Partially ingested %s: %d of %d chunks stored, %d failed.\n",
			name, result.ChunkCount, result.Total(), result.FailedCount)
		for _, f := range result.Failures {
			cmd.Printf("  chunk %d: %v\n", f.Position, f.Err)
		}
	case result.ChunkCount == 0 && result.FailedCount > 0:
		cmd.Printf("No chunks of %s could be stored (%d failed).\n", name, result.FailedCount)
	case result.ChunkCount == 0:
		cmd.Printf("%s has no text to index.\n", name)
	default:
		cmd.Printf("Ingested %s: %d chunks.\n", name, result.ChunkCount)
	}
	cmd.Printf("Document ID: %s\n", result.DocumentID)
}

func runIngestBatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if normaliserRegistry == nil {
		return errors.New("normaliser registry not configured")
	}

	cfg, err := chunkConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	paths, err := collectFiles(args, normaliserRegistry.SupportedMIMETypes())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	ctx := cmd.Context()
	items := make([]domain.BatchIngestItem, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		doc, err := loadDocument(ctx, path, ingestChatbot)
		if err != nil {
			cmd.Printf("Skipping %s: %v\n", path, err)
			skipped++
			continue
		}
		items = append(items, domain.BatchIngestItem{Document: doc, Text: doc.Content})
	}

	result, err := ingestionService.IngestBatch(ctx, items, cfg)
	if err != nil {
		return fmt.Errorf("batch ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %d documents (%d chunks).\n", result.ProcessedCount, result.TotalChunks)
	if result.FailedCount > 0 || skipped > 0 {
		cmd.Printf("Failed: %d documents.\n", result.FailedCount+skipped)
		for _, e := range result.Errors {
			cmd.Printf("  %s: %v\n", e.Source, e.Err)
		}
	}
	return nil
}

// chunkConfigFromFlags returns the flag values, or the saved chunking
// settings for flags left unset.
func chunkConfigFromFlags(cmd *cobra.Command) (domain.ChunkConfig, error) {
	cfg := domain.ChunkConfig{
		ChunkSize:   ingestChunkSize,
		OverlapSize: ingestOverlap,
		Unit:        domain.ChunkUnit(ingestUnit),
	}

	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return cfg, fmt.Errorf("failed to get settings: %w", err)
		}
		if !cmd.Flags().Changed("chunk-size") {
			cfg.ChunkSize = settings.Chunking.ChunkSize
		}
		if !cmd.Flags().Changed("overlap") {
			cfg.OverlapSize = settings.Chunking.OverlapSize
		}
		if !cmd.Flags().Changed("unit") {
			cfg.Unit = settings.Chunking.Unit
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDocument reads and normalises a file into a document owned by chatbotID.
func loadDocument(ctx context.Context, path, chatbotID string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	raw := &domain.RawDocument{
		URI:      path,
		MIMEType: normalisers.DetectMIMEType(path),
		Content:  content,
	}
	res, err := normaliserRegistry.Normalise(ctx, raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", path, err)
	}

	doc := res.Document
	doc.ID = documentIDForPath(chatbotID, path)
	doc.ChatbotID = chatbotID
	return doc, nil
}

// documentIDForPath derives a stable id so re-ingesting a file replaces its chunks.
func documentIDForPath(chatbotID, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chatbotID+":"+path)).String()
}

// collectFiles expands directories into the files whose MIME type is supported.
// Explicit file arguments are kept regardless of type.
func collectFiles(args []string, supported []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(supported, normalisers.DetectMIMEType(path)) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, chunking and retrieval defaults,
and storage backends.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the model that turns chunks and questions into vectors.`,
	RunE:  runSettingsEmbedding,
}

var settingsChunkingCmd = &cobra.Command{
	Use:   "chunking",
	Short: "Set default chunk size and overlap",
	RunE:  runSettingsChunking,
}

var settingsRetrievalCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Set default top-k and similarity threshold",
	RunE:  runSettingsRetrieval,
}

var (
	settingsChunkSize     int
	settingsOverlap       int
	settingsUnit          string
	settingsTopK          int
	settingsMinSimilarity float64
)

func init() {
	settingsChunkingCmd.Flags().IntVar(&settingsChunkSize, "chunk-size", domain.DefaultChunkSize, "units per chunk")
	settingsChunkingCmd.Flags().IntVar(&settingsOverlap, "overlap", domain.DefaultOverlapSize, "units shared by consecutive chunks")
	settingsChunkingCmd.Flags().StringVar(&settingsUnit, "unit", string(domain.DefaultChunkUnit), "chunk unit: chars or tokens")
	settingsRetrievalCmd.Flags().IntVar(&settingsTopK, "top-k", domain.DefaultTopK, "chunks returned per query")
	settingsRetrievalCmd.Flags().Float64Var(&settingsMinSimilarity, "min-similarity", -1, "drop results scoring below this; -1 disables")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsChunkingCmd)
	settingsCmd.AddCommand(settingsRetrievalCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	heading(cmd, "Current Settings", "=")

	emb := s.Embedding
	rows := []field{
		{"Provider", emb.Provider.Description()},
		{"Model", emb.Model},
	}
	if emb.BaseURL != "" || emb.Provider.IsLocal() {
		rows = append(rows, field{"Base URL", emb.BaseURL})
	}
	if emb.Provider.RequiresAPIKey() {
		key := "(not set)"
		if emb.APIKey != "" {
			key = maskAPIKey(emb.APIKey)
		}
		rows = append(rows, field{"API Key", key})
	}
	rows = append(rows, field{"Timeout", emb.Timeout.String()})
	if emb.RateLimit > 0 {
		rows = append(rows, field{"Rate limit", fmt.Sprintf("%g/s", emb.RateLimit)})
	}
	status := "configured"
	if !emb.IsConfigured() {
		status = "not configured"
	}
	rows = append(rows, field{"Status", status})
	printSection(cmd, "Embedding", rows)

	printSection(cmd, "Chunking", []field{
		{"Chunk size", fmt.Sprintf("%d %s", s.Chunking.ChunkSize, s.Chunking.EffectiveUnit())},
		{"Overlap", strconv.Itoa(s.Chunking.OverlapSize)},
	})

	minSim := "off"
	if s.Retrieval.FilterEnabled() {
		minSim = fmt.Sprintf("%.2f", s.Retrieval.MinSimilarity)
	}
	printSection(cmd, "Retrieval", []field{
		{"Top K", strconv.Itoa(s.Retrieval.TopK)},
		{"Min similarity", minSim},
	})

	rows = []field{{"Backend", string(s.Storage.Backend)}}
	if s.Storage.DataDir != "" {
		rows = append(rows, field{"Data dir", s.Storage.DataDir})
	}
	rows = append(rows, field{"Vector index", string(s.VectorIndex.Backend)})
	if s.VectorIndex.Dimensions > 0 {
		rows = append(rows, field{"Dimensions", strconv.Itoa(s.VectorIndex.Dimensions)})
	}
	printSection(cmd, "Storage", rows)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ragkit settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	heading(cmd, "ragkit Settings Wizard", "=")

	heading(cmd, "Step 1: Embedding Provider", "-")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	heading(cmd, "Step 2: Chunking", "-")
	chunking := s.Chunking
	chunking.ChunkSize = askNumber(cmd, reader, "Chunk size", chunking.ChunkSize)
	chunking.OverlapSize = askNumber(cmd, reader, "Overlap", chunking.OverlapSize)
	if err := settingsService.SetChunking(chunking); err != nil {
		return fmt.Errorf("failed to set chunking: %w", err)
	}
	cmd.Println()

	heading(cmd, "Step 3: Retrieval", "-")
	topK := askNumber(cmd, reader, "Chunks per query", s.Retrieval.TopK)
	if err := settingsService.SetRetrieval(topK, s.Retrieval.MinSimilarity); err != nil {
		return fmt.Errorf("failed to set retrieval: %w", err)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsChunking(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cfg := domain.ChunkConfig{
		ChunkSize:   settingsChunkSize,
		OverlapSize: settingsOverlap,
		Unit:        domain.ChunkUnit(settingsUnit),
	}
	if err := settingsService.SetChunking(cfg); err != nil {
		return fmt.Errorf("failed to set chunking: %w", err)
	}

	cmd.Printf("Chunking set to %d %s with %d overlap\n", cfg.ChunkSize, cfg.EffectiveUnit(), cfg.OverlapSize)
	return nil
}

func runSettingsRetrieval(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetRetrieval(settingsTopK, settingsMinSimilarity); err != nil {
		return fmt.Errorf("failed to set retrieval: %w", err)
	}

	cmd.Printf("Retrieval set to top %d\n", settingsTopK)
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty uses $OPENAI_API_KEY): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// field is one "Key: value" line of a settings section.
type field struct{ key, value string }

func printSection(cmd *cobra.Command, name string, rows []field) {
	cmd.Printf("[%s]\n", name)
	for _, r := range rows {
		cmd.Printf("  %s: %s\n", r.key, r.value)
	}
	cmd.Println()
}

// heading prints title underlined with rule.
func heading(cmd *cobra.Command, title, rule string) {
	cmd.Println(title)
	cmd.Println(strings.Repeat(rule, len(title)))
}

func askNumber(cmd *cobra.Command, reader *bufio.Reader, label string, current int) int {
	cmd.Printf("%s [%d]: ", label, current)
	return parseNumber(readLine(reader), current)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// parseNumber returns input as a non-negative integer, or defaultVal.
func parseNumber(input string, defaultVal int) int {
	val, err := strconv.Atoi(input)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}

// readPassword reads a line without echo when in is the terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

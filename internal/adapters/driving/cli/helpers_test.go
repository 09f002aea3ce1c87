package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/normalisers"
)

// mockRetrievalService records its inputs and returns canned results.
type mockRetrievalService struct {
	results []domain.RetrievalResult
	err     error

	lastChatbot string
	lastQuery   string
	lastK       int
	lastPrompt  string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, chatbotID, query string, k int) ([]domain.RetrievalResult, error) {
	m.lastChatbot = chatbotID
	m.lastQuery = query
	m.lastK = k
	return m.results, m.err
}

func (m *mockRetrievalService) BuildContext(systemPrompt string, results []domain.RetrievalResult) string {
	m.lastPrompt = systemPrompt
	return fmt.Sprintf("prompt=%q documents=%d", systemPrompt, len(results))
}

func (m *mockRetrievalService) SourcePreviews(results []domain.RetrievalResult) []domain.SourcePreview {
	previews := make([]domain.SourcePreview, 0, len(results))
	for _, r := range results {
		previews = append(previews, domain.SourcePreview{
			SourceID:   r.DocumentID,
			Filename:   r.Filename,
			Text:       r.Text,
			Similarity: r.Similarity,
		})
	}
	return previews
}

// mockIngestionService records ingested documents.
type mockIngestionService struct {
	mu        sync.Mutex
	docs      []domain.Document
	cfgs      []domain.ChunkConfig
	result    *domain.IngestResult
	err       error
	batchErr  error
	deleted   []string
	deleteErr error
}

func (m *mockIngestionService) IngestDocument(_ context.Context, doc domain.Document, _ string, cfg domain.ChunkConfig) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	m.cfgs = append(m.cfgs, cfg)
	if m.result != nil {
		res := *m.result
		res.DocumentID = doc.ID
		return &res, m.err
	}
	return &domain.IngestResult{DocumentID: doc.ID, ChunkCount: 1}, m.err
}

func (m *mockIngestionService) IngestBatch(_ context.Context, items []domain.BatchIngestItem, cfg domain.ChunkConfig) (*domain.BatchIngestResult, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := &domain.BatchIngestResult{}
	for _, item := range items {
		m.docs = append(m.docs, item.Document)
		m.cfgs = append(m.cfgs, cfg)
		if item.Text == "" {
			batch.FailedCount++
			batch.Errors = append(batch.Errors, domain.BatchItemError{
				DocumentID: item.Document.ID,
				Source:     item.Document.DisplayName(),
				Err:        domain.ErrInvalidInput,
			})
			continue
		}
		batch.ProcessedCount++
		batch.TotalChunks++
	}
	return batch, nil
}

func (m *mockIngestionService) DeleteDocument(_ context.Context, documentID string) error {
	m.deleted = append(m.deleted, "document:"+documentID)
	return m.deleteErr
}

func (m *mockIngestionService) DeleteChatbot(_ context.Context, chatbotID string) error {
	m.deleted = append(m.deleted, "chatbot:"+chatbotID)
	return m.deleteErr
}

// mockKnowledgeService serves a fixed chatbot "bot-1".
type mockKnowledgeService struct {
	report *driving.ConsistencyReport
}

func (m *mockKnowledgeService) ListDocuments(_ context.Context, chatbotID string) ([]domain.Document, error) {
	if chatbotID != "bot-1" {
		return nil, nil
	}
	return []domain.Document{
		{ID: "doc-1", ChatbotID: "bot-1", Filename: "guide.pdf", SourceType: "pdf"},
		{ID: "doc-2", ChatbotID: "bot-1", SourceURL: "https://example.com/faq", SourceType: domain.SourceTypeURL},
	}, nil
}

func (m *mockKnowledgeService) GetDocumentChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	if documentID != "doc-1" {
		return nil, fmt.Errorf("get document %s: %w", documentID, domain.ErrNotFound)
	}
	return []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", Position: 0, Content: "first window"},
		{ID: "c-2", DocumentID: "doc-1", Position: 1, Content: "second window"},
	}, nil
}

func (m *mockKnowledgeService) Stats(_ context.Context, chatbotID string) (*domain.ChatbotStats, error) {
	return &domain.ChatbotStats{ChatbotID: chatbotID, DocumentCount: 2, ChunkCount: 7, IndexedCount: 7}, nil
}

func (m *mockKnowledgeService) VerifyConsistency(_ context.Context, chatbotID string) (*driving.ConsistencyReport, error) {
	if m.report != nil {
		return m.report, nil
	}
	return &driving.ConsistencyReport{ChatbotID: chatbotID}, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
	apiKeys     []string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}
	m.apiKeys = append(m.apiKeys, apiKey)
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetChunking(cfg domain.ChunkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.settings.Chunking = cfg
	return nil
}

func (m *mockSettingsService) SetRetrieval(topK int, minSimilarity float64) error {
	if topK <= 0 {
		return errors.New("top_k must be positive")
	}
	m.settings.Retrieval.TopK = topK
	m.settings.Retrieval.MinSimilarity = minSimilarity
	return nil
}

func (m *mockSettingsService) Validate() error                               { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings               { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig(context.Context) error { return m.pingErr }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	retrieval *mockRetrievalService
	ingestion *mockIngestionService
	knowledge *mockKnowledgeService
	settings  *mockSettingsService
}

var currentMocks testServices

// setupTestServices installs mocks and returns a cleanup that removes them
// and resets every command flag.
func setupTestServices() func() {
	currentMocks = testServices{
		retrieval: &mockRetrievalService{},
		ingestion: &mockIngestionService{},
		knowledge: &mockKnowledgeService{},
		settings:  newMockSettingsService(),
	}
	SetServices(Services{
		Retrieval:   currentMocks.retrieval,
		Ingestion:   currentMocks.ingestion,
		Knowledge:   currentMocks.knowledge,
		Settings:    currentMocks.settings,
		Normalisers: normalisers.NewDefaultRegistry(),
	})

	return func() {
		SetServices(Services{})
		resetFlags(rootCmd)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores defaults on cmd and its subcommands.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

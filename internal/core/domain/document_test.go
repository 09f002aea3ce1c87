package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDocument_Fields tests Document structure fields
func TestDocument_Fields(t *testing.T) {
	now := time.Now()

	doc := Document{
		ID:         "doc-123",
		ChatbotID:  "bot-1",
		Filename:   "handbook.pdf",
		SourceType: "pdf",
		Metadata:   map[string]any{"pages": 42},
		UploadedAt: now,
	}

	assert.Equal(t, "doc-123", doc.ID)
	assert.Equal(t, "bot-1", doc.ChatbotID)
	assert.Equal(t, "handbook.pdf", doc.Filename)
	assert.Equal(t, "pdf", doc.SourceType)
	assert.Equal(t, 42, doc.Metadata["pages"])
	assert.Equal(t, now, doc.UploadedAt)
	assert.Empty(t, doc.SourceURL)
}

// TestDocument_DisplayName tests the filename, URL and ID fallbacks
func TestDocument_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		expected string
	}{
		{
			name:     "filename wins",
			doc:      Document{ID: "d1", Filename: "a.txt", SourceURL: "https://example.com"},
			expected: "a.txt",
		},
		{
			name:     "crawled page uses URL",
			doc:      Document{ID: "d2", SourceURL: "https://example.com/about", SourceType: SourceTypeURL},
			expected: "https://example.com/about",
		},
		{
			name:     "falls back to ID",
			doc:      Document{ID: "d3"},
			expected: "d3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.doc.DisplayName())
		})
	}
}

// TestChunk_Fields tests Chunk structure fields
func TestChunk_Fields(t *testing.T) {
	chunk := Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		ChatbotID:  "bot-1",
		Content:    "some text",
		Position:   3,
		Embedding:  []float32{0.1, 0.2},
		Metadata:   map[string]any{MetaPosition: 3},
	}

	assert.Equal(t, "chunk-1", chunk.ID)
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, "bot-1", chunk.ChatbotID)
	assert.Equal(t, "some text", chunk.Content)
	assert.Equal(t, 3, chunk.Position)
	assert.Len(t, chunk.Embedding, 2)
	assert.Equal(t, 3, chunk.Metadata[MetaPosition])
}

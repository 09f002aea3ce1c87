package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Document: domain.Document{ID: s.name, Content: string(raw.Content)}}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "fallback", types: []string{"text/plain"}, priority: 5})
	r.Register(&stubNormaliser{name: "preferred", types: []string{"text/plain"}, priority: 50})
	r.Register(&stubNormaliser{name: "late-tie", types: []string{"text/plain"}, priority: 50})

	res, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/plain; charset=utf-8"})
	require.NoError(t, err)
	assert.Equal(t, "preferred", res.Document.ID)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	ctx := context.Background()

	types := r.SupportedMIMETypes()
	assert.Contains(t, types, "text/plain")
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "text/html")
	assert.Contains(t, types, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.Contains(t, types, "application/pdf")
	assert.IsIncreasing(t, types)

	res, err := r.Normalise(ctx, &domain.RawDocument{
		URI:      "/tmp/page.html",
		MIMEType: "text/html",
		Content:  []byte("<p>Hello</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Document.Content)
	assert.Equal(t, "html", res.Document.SourceType)

	res, err = r.Normalise(ctx, &domain.RawDocument{
		URI:      "/tmp/notes.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Notes\n\n**bold**"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes\n\nbold", res.Document.Content)
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"README.md", "text/markdown"},
		{"notes.TXT", "text/plain"},
		{"index.htm", "text/html"},
		{"report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"manual.pdf", "application/pdf"},
		{"main.go", "text/x-go"},
		{"no-extension", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectMIMEType(tt.path))
		})
	}
}

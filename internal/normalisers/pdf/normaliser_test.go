package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func TestNormaliser_Registration(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_Invalid(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for name, content := range map[string][]byte{
		"empty":       nil,
		"not a pdf":   []byte("hello world"),
		"header only": []byte("%PDF-1.4\n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), &domain.RawDocument{
				URI:      "broken.pdf",
				MIMEType: "application/pdf",
				Content:  content,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "", joinPages(nil))
	assert.Equal(t, "one", joinPages([]string{"  one \n"}))
	assert.Equal(t, "one\n\ntwo", joinPages([]string{"one", "", "  ", "two"}))
}

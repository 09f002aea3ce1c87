package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// NormaliserRegistry routes raw documents to a Normaliser by MIME type.
type NormaliserRegistry interface {
	// Normalise uses the highest-priority normaliser for raw.MIMEType and
	// fails with domain.ErrUnsupportedType when there is none.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	Register(normaliser Normaliser)

	// SupportedMIMETypes lists every routable type.
	SupportedMIMETypes() []string
}

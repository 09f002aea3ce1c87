// Package pdf extracts the text layer of PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// MetaPages holds the page count of the source file.
const MetaPages = "pages"

// Normaliser reads the embedded text of PDF documents.
// Scanned pages without a text layer yield no content.
type Normaliser struct{}

// New returns a PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string { return []string{"application/pdf"} }

func (n *Normaliser) Priority() int { return 50 }

// Normalise extracts text page by page. Pages are separated by a blank line.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, title, err := parse(ctx, raw.Content)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = rawdoc.TitleFromURI(raw.URI)
	}

	doc := rawdoc.New(raw, joinPages(pages), "pdf", title)
	doc.Metadata[MetaPages] = len(pages)
	return &driven.NormaliseResult{Document: doc}, nil
}

// parse returns the text of every page and the Info title.
func parse(ctx context.Context, content []byte) (pages []string, title string, err error) {
	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			pages, title = nil, ""
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, "", fmt.Errorf("%w: not a pdf: %w", domain.ErrInvalidInput, err)
	}
	title = strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, "", fmt.Errorf("%w: page %d: %w", domain.ErrInvalidInput, i, err)
		}
		pages = append(pages, text)
	}
	return pages, title, nil
}

// joinPages trims each page and drops the empty ones.
func joinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

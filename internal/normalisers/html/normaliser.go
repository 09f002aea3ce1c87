package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// MetaDescription holds the page's <meta name="description"> content.
const MetaDescription = "description"

// Normaliser reduces HTML pages to readable text.
type Normaliser struct{}

// New returns an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *Normaliser) Priority() int { return 50 }

// Normalise strips markup from raw. The page title comes from <title>,
// then the first <h1>, then the URL or file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page := string(raw.Content)
	doc := rawdoc.New(raw, Text(page), "html", pageTitle(page, raw.URI))
	if desc := metaDescription(page); desc != "" {
		doc.Metadata[MetaDescription] = desc
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

var (
	comment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreak = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|section|article|header|footer|nav|ul|ol)\b[^>]*>`)
	tag       = regexp.MustCompile(`<[^>]*>`)
	blanks    = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)

	titleElement = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Element    = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	descMeta     = regexp.MustCompile(`(?is)<meta\s+[^>]*name=["']description["'][^>]*content=["']([^"']*)["']`)

	// Elements whose content is never shown to a reader, outermost first.
	hiddenElements = func() []*regexp.Regexp {
		var res []*regexp.Regexp
		for _, name := range []string{"head", "script", "style", "noscript", "svg", "template"} {
			res = append(res, regexp.MustCompile(`(?is)<`+name+`\b[^>]*>.*?</`+name+`\s*>`))
		}
		return res
	}()
)

// Text returns the visible text of an HTML page, one block per line.
func Text(page string) string {
	page = comment.ReplaceAllString(page, "")
	for _, re := range hiddenElements {
		page = re.ReplaceAllString(page, "")
	}
	page = lineBreak.ReplaceAllString(page, "\n")
	page = tag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)

	lines := make([]string, 0, strings.Count(page, "\n")+1)
	for line := range strings.SplitSeq(page, "\n") {
		if line = strings.TrimSpace(blanks.ReplaceAllString(line, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pageTitle(page, uri string) string {
	for _, re := range []*regexp.Regexp{titleElement, h1Element} {
		if m := re.FindStringSubmatch(page); m != nil {
			if title := Text(m[1]); title != "" {
				return strings.ReplaceAll(title, "\n", " ")
			}
		}
	}
	if rawdoc.IsURL(uri) {
		return uri
	}
	return rawdoc.TitleFromURI(uri)
}

func metaDescription(page string) string {
	m := descMeta.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

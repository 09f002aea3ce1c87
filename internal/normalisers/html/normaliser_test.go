package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

func normalise(t *testing.T, uri, page string) domain.Document {
	t.Helper()
	res, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      uri,
		MIMEType: "text/html",
		Content:  []byte(page),
	})
	require.NoError(t, err)
	return res.Document
}

func TestNormaliser_Registration(t *testing.T) {
	n := New()
	assert.ElementsMatch(t, []string{"text/html", "application/xhtml+xml"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"inline tags", "<p>a <b>bold</b> <a href='x'>link</a></p>", "a bold link"},
		{"line breaks", "first<br>second<br/>third<hr>fourth", "first\nsecond\nthird\nfourth"},
		{"entities", "<p>Fish &amp; Chips &lt;3 caf&eacute;</p>", "Fish & Chips <3 café"},
		{"nbsp collapses", "a&nbsp;&nbsp; b", "a b"},
		{"comments", "<p>kept</p><!-- <p>dropped</p> -->", "kept"},
		{"scripts and styles", "<style>p{color:red}</style><p>x</p><script>alert(1)</script>", "x"},
		{"head dropped", "<html><head><style>s</style><title>T</title></head><body>body</body></html>", "body"},
		{"header kept", "<header>Site</header><main>Main</main>", "Site\nMain"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "one\ntwo"},
		{"table cells", "<table><tr><td>a</td><td>b</td></tr></table>", "a\nb"},
		{"whitespace", "<div>\n\n   spaced \t  out   \n\n</div>", "spaced out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.page))
		})
	}
}

func TestNormalise_Title(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		page string
		want string
	}{
		{"title element", "/docs/page.html", "<title> Fish &amp; Chips </title><h1>Other</h1>", "Fish & Chips"},
		{"first h1", "/docs/page.html", "<body><h1>Pricing <em>plans</em></h1></body>", "Pricing plans"},
		{"empty title falls through", "/docs/my-page.html", "<title>  </title><p>x</p>", "my page"},
		{"url", "https://example.com/faq", "<p>no title</p>", "https://example.com/faq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := normalise(t, tt.uri, tt.page)
			assert.Equal(t, tt.want, doc.Metadata[rawdoc.MetaTitle])
		})
	}
}

func TestNormalise_CrawledPage(t *testing.T) {
	page := `<html><head>
<title>FAQ</title>
<meta name="description" content="Answers to common questions">
</head><body><h1>FAQ</h1><p>How do refunds work?</p></body></html>`

	doc := normalise(t, "https://example.com/faq", page)

	assert.Equal(t, domain.SourceTypeURL, doc.SourceType)
	assert.Equal(t, "https://example.com/faq", doc.SourceURL)
	assert.Empty(t, doc.Filename)
	assert.Equal(t, "FAQ\nHow do refunds work?", doc.Content)
	assert.Equal(t, "Answers to common questions", doc.Metadata[MetaDescription])
	assert.Equal(t, "text/html", doc.Metadata[rawdoc.MetaMIMEType])
}

func TestNormalise_UploadedFile(t *testing.T) {
	doc := normalise(t, "/uploads/guide.html", "<p>Guide</p>")

	assert.Equal(t, "guide.html", doc.Filename)
	assert.Equal(t, "html", doc.SourceType)
	assert.Empty(t, doc.SourceURL)
	assert.NotContains(t, doc.Metadata, MetaDescription)
}

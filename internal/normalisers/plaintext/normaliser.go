package plaintext

import (
	"bytes"
	"context"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser passes text through with only encoding cleanup.
// It is the fallback for source code and structured text formats.
type Normaliser struct{}

// New returns a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Types lists the MIME types read as plain text.
var Types = []string{
	"text/plain",
	"text/csv",
	"text/tab-separated-values",
	"text/yaml",
	"text/toml",
	"text/css",
	"text/javascript",
	"text/typescript",
	"text/x-go",
	"text/x-python",
	"text/x-rust",
	"text/x-java",
	"text/x-c",
	"text/x-c++",
	"text/x-ruby",
	"text/x-shellscript",
	"text/x-sql",
	"application/json",
	"application/xml",
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return Types
}

func (n *Normaliser) Priority() int { return 5 }

var byteOrderMark = []byte("\xef\xbb\xbf")

// Normalise drops a UTF-8 byte order mark, converts CRLF line endings and
// replaces invalid UTF-8 with U+FFFD so chunk windows always cut on runes.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := string(bytes.TrimPrefix(raw.Content, byteOrderMark))
	text = strings.ToValidUTF8(text, "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return &driven.NormaliseResult{
		Document: rawdoc.New(raw, text, "txt", rawdoc.TitleFromURI(raw.URI)),
	}, nil
}

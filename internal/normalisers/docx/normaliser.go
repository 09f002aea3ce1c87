package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// MetaAuthor holds dc:creator from the document properties.
const MetaAuthor = "author"

const (
	bodyPart  = "word/document.xml"
	propsPart = "docProps/core.xml"

	// maxPartSize bounds how much of a compressed part is inflated.
	maxPartSize = 64 << 20
)

// Normaliser extracts paragraph text from Word documents.
type Normaliser struct{}

// New returns a DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string { return []string{MIMEType} }

func (n *Normaliser) Priority() int { return 50 }

// Normalise reads word/document.xml, one line per paragraph.
// Title and author come from docProps/core.xml when present.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrInvalidInput, err)
	}

	body, err := openPart(archive, bodyPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, bodyPart, err)
	}
	text, err := paragraphs(body)
	body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, bodyPart, err)
	}

	props := readProperties(archive)
	title := props.Title
	if title == "" {
		title = rawdoc.TitleFromURI(raw.URI)
	}

	doc := rawdoc.New(raw, text, "docx", title)
	if _, ok := doc.Metadata[MetaAuthor]; !ok && props.Creator != "" {
		doc.Metadata[MetaAuthor] = props.Creator
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

type limitedPart struct {
	io.Reader
	io.Closer
}

func openPart(archive *zip.Reader, name string) (io.ReadCloser, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, err
	}
	return limitedPart{Reader: io.LimitReader(f, maxPartSize), Closer: f}, nil
}

// paragraphs streams WordprocessingML and keeps the text of w:t runs.
// Tabs and breaks inside runs are preserved.
func paragraphs(r io.Reader) (string, error) {
	var (
		sb     strings.Builder
		inRun  bool
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = inRun
			case "tab":
				if inRun {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

type coreProperties struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

// readProperties returns zero values when the part is missing or unreadable.
func readProperties(archive *zip.Reader) coreProperties {
	var props coreProperties
	part, err := openPart(archive, propsPart)
	if err != nil {
		return props
	}
	defer part.Close()

	if err := xml.NewDecoder(part).Decode(&props); err != nil {
		return coreProperties{}
	}
	props.Title = strings.TrimSpace(props.Title)
	props.Creator = strings.TrimSpace(props.Creator)
	return props
}

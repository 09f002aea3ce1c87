package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/normalisers/rawdoc"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser reduces Markdown to plain prose.
// YAML (---) and TOML (+++) front matter is lifted into metadata.
type Normaliser struct{}

// New returns a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *Normaliser) Priority() int { return 50 }

// Normalise converts raw Markdown. The title is taken from front matter,
// then the first level-one heading, then the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	src := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	meta, body := splitFrontMatter(src)

	title, _ := meta[rawdoc.MetaTitle].(string)
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = rawdoc.TitleFromURI(raw.URI)
	}

	doc := rawdoc.New(raw, Plain(body), "md", title)
	for k, v := range meta {
		if _, taken := doc.Metadata[k]; !taken {
			doc.Metadata[k] = v
		}
	}
	doc.Metadata[rawdoc.MetaFormat] = "markdown"
	return &driven.NormaliseResult{Document: doc}, nil
}

// splitFrontMatter separates a leading front matter block from the body.
// A block that does not parse stays part of the body.
func splitFrontMatter(src string) (map[string]any, string) {
	lines := strings.SplitAfter(src, "\n")
	fence := strings.TrimRight(lines[0], "\n")
	if fence != "---" && fence != "+++" {
		return nil, src
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\n") != fence {
			continue
		}
		block := []byte(strings.Join(lines[1:i], ""))
		meta := map[string]any{}
		var err error
		if fence == "---" {
			err = yaml.Unmarshal(block, &meta)
		} else {
			err = toml.Unmarshal(block, &meta)
		}
		if err != nil {
			return nil, src
		}
		return meta, strings.Join(lines[i+1:], "")
	}
	return nil, src
}

var (
	atxHeading = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)

	fencedCode = regexp.MustCompile("(?ms)^[ \t]*(```|~~~).*?^[ \t]*(```|~~~)[ \t]*$")
	inlineCode = regexp.MustCompile("`([^`\n]+)`")
	image      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	link       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLink    = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	refDef     = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:.*$`)
	htmlTag    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	linePrefix = regexp.MustCompile(`(?m)^[ \t]*(#{1,6}[ \t]+|>[ \t]?|[-*+][ \t]+|\d+[.)][ \t]+)`)
	rule       = regexp.MustCompile(`(?m)^[ \t]*(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	strong     = regexp.MustCompile(`(\*\*|__)(\S(?:.*?\S)?)(\*\*|__)`)
	emphasis   = regexp.MustCompile(`(^|\W)[*_](\S(?:[^*_\n]*\S)?)[*_]`)
	strike     = regexp.MustCompile(`~~(.+?)~~`)
	blankRun   = regexp.MustCompile(`\n{3,}`)
)

func firstHeading(body string) string {
	body = fencedCode.ReplaceAllString(body, "")
	if m := atxHeading.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Plain strips Markdown syntax, keeping link text and image alt text.
// Fenced code blocks are dropped. Inline code keeps its content.
func Plain(body string) string {
	body = fencedCode.ReplaceAllString(body, "")
	body = refDef.ReplaceAllString(body, "")
	body = image.ReplaceAllString(body, "$1")
	body = link.ReplaceAllString(body, "$1")
	body = refLink.ReplaceAllString(body, "$1")
	body = inlineCode.ReplaceAllString(body, "$1")
	body = htmlTag.ReplaceAllString(body, "")
	body = rule.ReplaceAllString(body, "")
	body = linePrefix.ReplaceAllString(body, "")
	body = strong.ReplaceAllString(body, "$2")
	body = emphasis.ReplaceAllString(body, "$1$2")
	body = strike.ReplaceAllString(body, "$1")
	body = blankRun.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

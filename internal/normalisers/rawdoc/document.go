// Package rawdoc builds the documents returned by the normalisers.
package rawdoc

import (
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Metadata keys set by normalisers.
const (
	MetaMIMEType = "mime_type"
	MetaTitle    = "title"
	MetaFormat   = "format"
)

// New builds a document holding content extracted from raw.
// HTTP(S) URIs become crawled pages; anything else is treated as a file path.
// A caller-supplied title in raw.Metadata wins over title.
func New(raw *domain.RawDocument, content, format, title string) domain.Document {
	meta := make(map[string]any, len(raw.Metadata)+3)
	maps.Copy(meta, raw.Metadata)
	meta[MetaMIMEType] = raw.MIMEType
	meta[MetaFormat] = format
	if _, ok := meta[MetaTitle]; !ok && title != "" {
		meta[MetaTitle] = title
	}

	doc := domain.Document{
		ID:         uuid.New().String(),
		SourceType: format,
		Content:    content,
		Metadata:   meta,
		UploadedAt: time.Now().UTC(),
	}
	switch {
	case IsURL(raw.URI):
		doc.SourceURL = raw.URI
		doc.SourceType = domain.SourceTypeURL
	case raw.URI != "":
		doc.Filename = filepath.Base(raw.URI)
	}
	return doc
}

// IsURL reports whether uri is an http or https location.
func IsURL(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// TitleFromURI derives a human-readable title from a file name.
func TitleFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

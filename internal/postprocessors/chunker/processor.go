// Package chunker splits document content into overlapping fixed-size windows.
package chunker

import (
	"context"
	"fmt"
	"maps"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Name is the registry name of the chunker.
const Name = domain.ProcessorChunker

// Processor splits document content into windows of cfg.ChunkSize units,
// each starting cfg.Step() units after the previous one.
// It implements the PostProcessor interface.
type Processor struct {
	cfg       domain.ChunkConfig
	tokenizer driven.Tokenizer
	newID     func() string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the window size in units.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.cfg.ChunkSize = size
	}
}

// WithOverlap sets the number of units shared by consecutive windows.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.cfg.OverlapSize = overlap
	}
}

// WithUnit sets the window unit.
func WithUnit(unit domain.ChunkUnit) Option {
	return func(p *Processor) {
		p.cfg.Unit = unit
	}
}

// WithConfig replaces the whole window configuration.
func WithConfig(cfg domain.ChunkConfig) Option {
	return func(p *Processor) {
		p.cfg = cfg
	}
}

// WithTokenizer sets the tokenizer used for token windows.
func WithTokenizer(t driven.Tokenizer) Option {
	return func(p *Processor) {
		p.tokenizer = t
	}
}

// WithIDGenerator overrides chunk id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a chunker. Without options it uses domain.DefaultChunkConfig.
// Fails with domain.ErrInvalidChunkConfig for windows that cannot advance,
// or for token windows without a tokenizer.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		cfg:   domain.DefaultChunkConfig(),
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if p.cfg.EffectiveUnit() == domain.ChunkUnitTokens && p.tokenizer == nil {
		return nil, fmt.Errorf("%w: token windows need a tokenizer", domain.ErrInvalidChunkConfig)
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Config returns the window configuration.
func (p *Processor) Config() domain.ChunkConfig {
	return p.cfg
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		return nil, nil
	}

	var src units
	if p.cfg.EffectiveUnit() == domain.ChunkUnitTokens {
		src = tokenUnits{ids: p.tokenizer.Encode(doc.Content), tok: p.tokenizer}
	} else {
		src = runeUnits([]rune(doc.Content))
	}

	n := src.len()
	step := p.cfg.Step()
	chunks := make([]domain.Chunk, 0, WindowCount(n, p.cfg))

	for start, position := 0, 0; start < n; start, position = start+step, position+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+p.cfg.ChunkSize, n)
		meta := make(map[string]any, len(doc.Metadata)+3)
		maps.Copy(meta, doc.Metadata)
		meta[domain.MetaPosition] = position
		meta[domain.MetaStart] = start
		meta[domain.MetaEnd] = end

		chunks = append(chunks, domain.Chunk{
			ID:         p.newID(),
			DocumentID: doc.ID,
			ChatbotID:  doc.ChatbotID,
			Content:    src.slice(start, end),
			Position:   position,
			Metadata:   meta,
		})

		if end == n {
			break
		}
	}

	return chunks, nil
}

// WindowCount returns the number of windows produced for n units.
func WindowCount(n int, cfg domain.ChunkConfig) int {
	if n <= 0 {
		return 0
	}
	if n <= cfg.ChunkSize {
		return 1
	}
	step := cfg.Step()
	return (n - cfg.OverlapSize + step - 1) / step
}

// units abstracts over the measure a window is cut in.
type units interface {
	len() int
	slice(start, end int) string
}

type runeUnits []rune

func (r runeUnits) len() int                    { return len(r) }
func (r runeUnits) slice(start, end int) string { return string(r[start:end]) }

type tokenUnits struct {
	ids []int
	tok driven.Tokenizer
}

func (t tokenUnits) len() int { return len(t.ids) }

// slice widens [start, end) by up to utf8.UTFMax-1 tokens on each side so
// that a code point split across tokens stays whole.
func (t tokenUnits) slice(start, end int) string {
	text := t.tok.Decode(t.ids[start:end])
	for i := 1; i < utf8.UTFMax && start > 0 && brokenHead(text); i++ {
		start--
		text = t.tok.Decode(t.ids[start:end])
	}
	for i := 1; i < utf8.UTFMax && end < len(t.ids) && brokenTail(text); i++ {
		end++
		text = t.tok.Decode(t.ids[start:end])
	}
	return text
}

func brokenHead(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return r == utf8.RuneError && size == 1
}

func brokenTail(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return r == utf8.RuneError && size == 1
}

// Package chunker provides a recursive character text splitter.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order, coarsest first. The empty separator
// splits between characters and always succeeds.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into chunks no longer than the chunk size, preferring
// paragraph, then line, then sentence, then word boundaries.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy. The empty separator is
// appended when missing so that every piece can be brought under size.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) == 0 {
			return
		}
		seps := append([]string(nil), separators...)
		if seps[len(seps)-1] != "" {
			seps = append(seps, "")
		}
		p.separators = seps
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits text into chunks owned by documentID. Each chunk receives its
// own copy of metadata.
func (p *Processor) Chunk(documentID, text string, metadata map[string]any) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := p.Split(text)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		meta := make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Position:   i,
			Content:    piece,
			Metadata:   meta,
		})
	}
	return chunks
}

// Split returns the chunk texts for text without building chunks.
func (p *Processor) Split(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeep(text, separator) {
		if length(piece) <= p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, p.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, strings.TrimSpace(piece))
			continue
		}
		out = append(out, p.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, p.merge(good)...)
	}
	return out
}

// merge packs small pieces into chunks, carrying up to overlap characters of
// trailing pieces into the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	emit := func() {
		if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
			out = append(out, s)
		}
	}

	for _, piece := range pieces {
		n := length(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			emit()
			for len(current) > 0 && (total > p.overlap || total+n > p.chunkSize) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if len(current) > 0 {
		emit()
	}
	return out
}

// splitKeep splits text on sep, keeping sep attached to the end of each
// piece so that joining the pieces restores text.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

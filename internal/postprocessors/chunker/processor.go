// Package chunker splits extracted page text into overlapping,
// sentence-aligned passages that never cross a page boundary.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default target number of words per chunk.
const DefaultChunkSize = 300

// DefaultChunkOverlap is the default number of overlapping words.
const DefaultChunkOverlap = 50

// minTitleLineLength is the rune length a line must exceed to serve as a title.
const minTitleLineLength = 5

var paragraphSplit = regexp.MustCompile(`\r\n\r\n|\n\n|\r\r`)

// Processor splits pages into word-bounded chunks.
type Processor struct {
	chunkSize int
	overlap   int
	markers   []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithGuidelineMarkers sets the line prefixes that mark a guideline title.
func WithGuidelineMarkers(markers ...string) Option {
	return func(p *Processor) {
		p.markers = markers
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits pages into fragments and derives the document title and counts.
// Returns domain.ErrNoExtractableText when no page has any text.
func (p *Processor) Chunk(pages []domain.Page) (*domain.ChunkingResult, error) {
	result := &domain.ChunkingResult{}
	var firstPage string

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		if firstPage == "" {
			firstPage = page.Text
		}

		result.TotalCharacters += utf8.RuneCountInString(page.Text)
		result.TotalWords += CountWords(page.Text)

		for _, content := range p.chunkPage(page.Text) {
			result.Fragments = append(result.Fragments, domain.PageFragment{
				PageNumber: page.Number,
				Content:    content,
			})
		}
	}

	if len(result.Fragments) == 0 {
		return nil, domain.ErrNoExtractableText
	}

	result.Title = ExtractTitle(firstPage, p.markers)
	return result, nil
}

// chunkPage accumulates the sentences of one page into chunks. Each new
// chunk is seeded with the trailing sentences of the previous one.
func (p *Processor) chunkPage(text string) []string {
	var (
		chunks       []string
		current      []string
		currentWords int
		fresh        int // sentences in current that are not overlap seed
		overlap      []string
		overlapWords int
	)

	for _, sentence := range pageSentences(text) {
		words := CountWords(sentence)

		// A chunk holding only the seed is never closed, so no chunk
		// merely repeats the previous one's tail.
		if currentWords+words > p.chunkSize && fresh > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = append([]string(nil), overlap...)
			currentWords = overlapWords
			fresh = 0
		}

		current = append(current, sentence)
		currentWords += words
		fresh++

		overlap = append(overlap, sentence)
		overlapWords += words
		for overlapWords > p.overlap && len(overlap) > 0 {
			overlapWords -= CountWords(overlap[0])
			overlap = overlap[1:]
		}
	}

	if fresh > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// pageSentences splits a page into paragraphs and then sentences.
func pageSentences(text string) []string {
	var sentences []string
	for _, paragraph := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		sentences = append(sentences, SplitSentences(paragraph)...)
	}
	return sentences
}

// SplitSentences splits text after '.', '!' or '?' when followed by
// whitespace or the end of text. A trailing fragment without a
// terminator is kept as its own sentence.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ExtractTitle picks a title from the first page. A line starting with one
// of the markers wins; otherwise the first two substantial lines that are
// not page-break markers or bare URLs are joined with ". ".
func ExtractTitle(firstPage string, markers []string) string {
	lines := strings.FieldsFunc(firstPage, func(r rune) bool { return r == '\r' || r == '\n' })

	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, marker := range markers {
			if marker != "" && hasPrefixFold(line, marker) {
				return line
			}
		}
	}

	var picked []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--- PAGE") || strings.HasPrefix(line, "http") {
			continue
		}
		if utf8.RuneCountInString(line) <= minTitleLineLength {
			continue
		}
		picked = append(picked, line)
		if len(picked) == 2 {
			break
		}
	}
	return strings.Join(picked, ". ")
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

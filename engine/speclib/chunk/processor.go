package chunk

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/compozy/specmatch/engine/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// MaxOverlapRatio is the exclusive upper bound for Settings.OverlapRatio.
const MaxOverlapRatio = 0.5

const (
	rankSentence = iota + 1
	rankParagraph
	rankSection
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Processor splits document text into chunks. It holds no mutable state and
// is safe for concurrent use.
type Processor struct {
	settings Settings
	patterns []*regexp.Regexp
}

// NewProcessor validates settings and compiles the protected patterns.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Strategy == "" {
		settings.Strategy = StrategyProtected
	}
	if settings.Strategy != StrategyProtected && settings.Strategy != StrategyRecursive {
		return nil, fmt.Errorf("chunk: strategy %q is not supported", settings.Strategy)
	}
	if settings.TargetSize <= 0 {
		return nil, errors.New("chunk: target size must be greater than zero")
	}
	if settings.OverlapRatio < 0 || settings.OverlapRatio >= MaxOverlapRatio {
		return nil, fmt.Errorf("chunk: overlap ratio %.2f must be in [0, %.1f)", settings.OverlapRatio, MaxOverlapRatio)
	}
	patterns, err := compilePatterns(settings)
	if err != nil {
		return nil, fmt.Errorf("chunk: compile protected pattern: %w", err)
	}
	return &Processor{settings: settings, patterns: patterns}, nil
}

func (p *Processor) Settings() Settings {
	return p.settings
}

// Chunk splits text into ordered chunks. Blank input yields no chunks.
func (p *Processor) Chunk(text string) ([]Chunk, error) {
	text = newlinePattern.ReplaceAllString(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var segments []string
	switch p.settings.Strategy {
	case StrategyRecursive:
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(p.settings.TargetSize),
			textsplitter.WithChunkOverlap(p.overlapRunes()),
		)
		var err error
		segments, err = splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("chunk: split text: %w", err)
		}
	default:
		segments = p.splitProtected(text)
	}
	chunks := make([]Chunk, 0, len(segments))
	for _, segment := range segments {
		body := strings.TrimSpace(segment)
		if body == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       body,
			Hash:       core.ShortHash(body),
			References: ExtractReferences(body),
			Oversized:  utf8.RuneCountInString(body) > p.settings.TargetSize,
		})
	}
	return chunks, nil
}

// ChunkDocument chunks text and stamps each chunk with its document identity.
// IDs are derived from docID, position and content so they are stable across runs.
func (p *Processor) ChunkDocument(docID, filename, text string) ([]Chunk, error) {
	chunks, err := p.Chunk(text)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].Filename = filename
		chunks[i].ID = core.ShortHash(docID + "::" + strconv.Itoa(chunks[i].Index) + "::" + chunks[i].Hash)
	}
	return chunks, nil
}

func (p *Processor) overlapRunes() int {
	return int(float64(p.settings.TargetSize) * p.settings.OverlapRatio)
}

type boundary struct {
	pos  int
	rank int
}

// splitProtected walks the text window by window. Each window ends at the best
// boundary outside protected spans. A window only grows past the target when a
// protected span starting at the window start is itself longer than the target.
func (p *Processor) splitProtected(text string) []string {
	spans := protectedSpans(text, p.patterns)
	bounds := collectBoundaries(text)
	target := p.settings.TargetSize
	overlap := p.overlapRunes()

	var out []string
	start := skipSpace(text, 0)
	floor := start
	for start < len(text) {
		limit := advanceRunes(text, start, target)
		if limit >= len(text) {
			out = append(out, text[start:])
			break
		}
		end := chooseSplit(text, floor, start, limit, bounds, spans)
		out = append(out, text[start:end])
		if skipSpace(text, end) >= len(text) {
			break
		}
		next := end
		if overlap > 0 {
			next = overlapStart(text, start, end, overlap, bounds, spans)
		}
		floor = end
		start = skipSpace(text, next)
	}
	return out
}

func chooseSplit(text string, floor, start, limit int, bounds []boundary, spans []span) int {
	mid := start + (limit-start)/2
	best, bestRank, fallback := -1, 0, -1
	lo := sort.Search(len(bounds), func(i int) bool { return bounds[i].pos > floor })
	for _, b := range bounds[lo:] {
		if b.pos > limit {
			break
		}
		if b.pos <= start || insideSpan(b.pos, spans) >= 0 {
			continue
		}
		if b.pos < mid {
			fallback = b.pos
			continue
		}
		if b.rank > bestRank || (b.rank == bestRank && b.pos > best) {
			best, bestRank = b.pos, b.rank
		}
	}
	if best < 0 {
		best = fallback
	}
	if best < 0 {
		best = lastWordBreak(text, max(floor, start), limit, spans)
	}
	if best < 0 {
		best = limit
	}
	return escapeSpan(best, max(floor, start), spans)
}

// overlapStart steps back overlap runes from end and snaps forward to the next
// sentence start. When no sentence starts in that stretch the next chunk starts at end.
func overlapStart(text string, start, end, overlap int, bounds []boundary, spans []span) int {
	candidate := retreatRunes(text, end, overlap)
	lo := sort.Search(len(bounds), func(i int) bool { return bounds[i].pos >= candidate })
	for _, b := range bounds[lo:] {
		if b.pos >= end {
			break
		}
		if b.pos > start && insideSpan(b.pos, spans) < 0 {
			return b.pos
		}
	}
	return end
}

func collectBoundaries(text string) []boundary {
	ranks := make(map[int]int)
	add := func(pos, rank int) {
		if pos <= 0 || pos >= len(text) {
			return
		}
		if ranks[pos] < rank {
			ranks[pos] = rank
		}
	}
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		add(m[1], rankSentence)
	}
	for _, m := range paragraphRe.FindAllStringIndex(text, -1) {
		add(m[1], rankParagraph)
	}
	for _, m := range sectionHeaderRe.FindAllStringIndex(text, -1) {
		add(m[0], rankSection)
	}
	out := make([]boundary, 0, len(ranks))
	for pos, rank := range ranks {
		out = append(out, boundary{pos: pos, rank: rank})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

func lastWordBreak(text string, from, limit int, spans []span) int {
	for i := limit; i > from; i-- {
		switch text[i-1] {
		case ' ', '\t', '\n':
			if insideSpan(i, spans) < 0 {
				return i
			}
		}
	}
	return -1
}

// insideSpan returns the index of the span strictly containing pos, or -1.
func insideSpan(pos int, spans []span) int {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > pos })
	if i < len(spans) && spans[i].start < pos {
		return i
	}
	return -1
}

// escapeSpan moves a cut inside a protected span back to the span start. The
// cut only moves forward to the span end when the span begins at or before from.
func escapeSpan(pos, from int, spans []span) int {
	i := insideSpan(pos, spans)
	if i < 0 {
		return pos
	}
	if spans[i].start > from {
		return spans[i].start
	}
	return spans[i].end
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\n', '\v', '\f':
			i++
		default:
			return i
		}
	}
	return i
}

func advanceRunes(text string, from, n int) int {
	i := from
	for c := 0; c < n && i < len(text); c++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

func retreatRunes(text string, from, n int) int {
	i := from
	for c := 0; c < n && i > 0; c++ {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
	}
	return i
}

package chunk

import (
	"regexp"
	"sort"
	"strings"
)

const standardBodies = `NEC|NFPA|IEEE|ASTM|ANSI|UL|IEC|ISO|OSHA|CSA|NEMA|ASME|API|TIA|ICC|IBC`

const (
	measurementPattern = `\b\d+(?:[.,]\d+)?(?:\s*/\s*\d+)?\s*(?:%|°\s?[CF]\b|(?:V|kV|mV|A|mA|kA|W|kW|MW|VA|kVA|Hz|AWG|kcmil|MCM|ft|in|mm|cm|m|lbs?|psi|ohms?)\b)`
	standardPattern    = `(?i)\b(` + standardBodies + `)\s*([A-Z]?\d+(?:[.\-]\d+)*[A-Z]?)\b`
	sectionRefPattern  = `(?i)(?:\bSection\s+|§\s*)(\d+(?:\.\d+)*)`
	sectionHeaderExpr  = `(?m)^[ \t]*(?:Section[ \t]+)?(\d+(?:\.\d+)+)`
)

var (
	measurementRe   = regexp.MustCompile(measurementPattern)
	standardRe      = regexp.MustCompile(standardPattern)
	sectionRefRe    = regexp.MustCompile(sectionRefPattern)
	sectionHeaderRe = regexp.MustCompile(sectionHeaderExpr)
	sentenceEndRe   = regexp.MustCompile(`[.!?;]\s+`)
	paragraphRe     = regexp.MustCompile(`\n[ \t]*\n\s*`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// DefaultProtectedPatterns lists the spans never split by the protected strategy:
// measurements with units, standards codes and section references.
func DefaultProtectedPatterns() []string {
	return []string{measurementPattern, standardPattern, sectionRefPattern}
}

// ExtractReferences returns section numbers and standards codes found in text,
// normalized to upper case ("SECTION 4.2.3", "NEC 310.16") in first-seen order.
func ExtractReferences(text string) []string {
	type hit struct {
		pos int
		ref string
	}
	var hits []hit
	for _, m := range standardRe.FindAllStringSubmatchIndex(text, -1) {
		ref := strings.ToUpper(text[m[2]:m[3]]) + " " + strings.ToUpper(text[m[4]:m[5]])
		hits = append(hits, hit{m[0], ref})
	}
	for _, m := range sectionRefRe.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[0], "SECTION " + text[m[2]:m[3]]})
	}
	for _, m := range sectionHeaderRe.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[2], "SECTION " + text[m[2]:m[3]]})
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.ref]; ok {
			continue
		}
		seen[h.ref] = struct{}{}
		out = append(out, h.ref)
	}
	return out
}

// ExtractMeasurements returns measurement tokens with whitespace collapsed.
func ExtractMeasurements(text string) []string {
	matches := measurementRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		norm := NormalizeSpace(m)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// NormalizeSpace collapses whitespace runs to one space and trims the ends.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// span is a half-open byte range [start, end).
type span struct {
	start int
	end   int
}

func compilePatterns(settings Settings) ([]*regexp.Regexp, error) {
	sources := settings.ProtectedPatterns
	if !settings.ReplaceDefaultPatterns {
		sources = append(DefaultProtectedPatterns(), settings.ProtectedPatterns...)
	}
	out := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// protectedSpans merges every pattern match into sorted, non-overlapping spans.
func protectedSpans(text string, patterns []*regexp.Regexp) []span {
	var spans []span
	for _, re := range patterns {
		for _, m := range re.FindAllStringIndex(text, -1) {
			if m[1] > m[0] {
				spans = append(spans, span{m[0], m[1]})
			}
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

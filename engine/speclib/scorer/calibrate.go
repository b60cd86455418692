package scorer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/library"
)

// Calibration is the outcome of applying a policy to ranked matches.
type Calibration struct {
	Status           Status
	Confidence       float64
	TopScore         float64
	MatchedDocuments []string
	Reasons          []string
}

// Calibrate turns ranked matches into a confidence and status. matches must be
// ordered best first. It is a pure function of its inputs.
func Calibrate(policy Policy, query string, matches []library.Match) Calibration {
	if len(matches) == 0 {
		return Calibration{
			Status:           StatusNeedsReview,
			MatchedDocuments: []string{},
			Reasons:          []string{"library has no matching chunks"},
		}
	}
	top := matches[0]
	confidence := top.Score
	reasons := []string{fmt.Sprintf("top similarity %.3f from %s chunk %d", top.Score, top.Filename, top.Index)}

	if ref, ok := referenceMatch(query, &top); ok {
		confidence += policy.ReferenceBoost
		reasons = append(reasons, fmt.Sprintf("reference %s matches top chunk (+%.2f)", ref, policy.ReferenceBoost))
	}
	above := 0
	matched := make([]string, 0)
	seen := make(map[string]struct{})
	for i := range matches {
		if matches[i].Score < policy.MinMatchThreshold {
			continue
		}
		above++
		if _, ok := seen[matches[i].Filename]; !ok {
			seen[matches[i].Filename] = struct{}{}
			matched = append(matched, matches[i].Filename)
		}
	}
	if above >= policy.CorroborationCount {
		confidence += policy.CorroborationBoost
		reasons = append(reasons, fmt.Sprintf(
			"%d matches at or above %.2f (+%.2f)", above, policy.MinMatchThreshold, policy.CorroborationBoost,
		))
	}
	if token, ok := measurementMatch(query, top.Text); ok {
		confidence += policy.MeasurementBoost
		reasons = append(reasons, fmt.Sprintf("measurement %s appears in top chunk (+%.2f)", token, policy.MeasurementBoost))
	}
	confidence = clamp(confidence)
	status := policy.classify(confidence, above > 0)
	switch {
	case above == 0:
		reasons = append(reasons, fmt.Sprintf("no match reached minimum similarity %.2f", policy.MinMatchThreshold))
	case status == StatusRepealableHigh:
		reasons = append(reasons, fmt.Sprintf("confidence %.3f >= high threshold %.2f", confidence, policy.HighThreshold))
	case status == StatusRepealableMedium:
		reasons = append(reasons, fmt.Sprintf("confidence %.3f >= medium threshold %.2f", confidence, policy.MediumThreshold))
	default:
		reasons = append(reasons, fmt.Sprintf("confidence %.3f below medium threshold %.2f", confidence, policy.MediumThreshold))
	}
	return Calibration{
		Status:           status,
		Confidence:       confidence,
		TopScore:         top.Score,
		MatchedDocuments: matched,
		Reasons:          reasons,
	}
}

// referenceMatch reports the first section or standards reference in query
// that the top chunk carries, or that names its source file.
func referenceMatch(query string, top *library.Match) (string, bool) {
	refs := chunk.ExtractReferences(query)
	if len(refs) > 0 {
		have := make(map[string]struct{}, len(top.References))
		for _, ref := range top.References {
			have[ref] = struct{}{}
		}
		for _, ref := range refs {
			if _, ok := have[ref]; ok {
				return ref, true
			}
		}
	}
	stem := normalizeName(strings.TrimSuffix(top.Filename, filepath.Ext(top.Filename)))
	if stem == "" {
		return "", false
	}
	for _, ref := range refs {
		if strings.Contains(stem, ref) {
			return ref, true
		}
	}
	if len(stem) >= 4 && strings.ContainsAny(stem, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		containsWord(normalizeName(query), stem) {
		return top.Filename, true
	}
	return "", false
}

func measurementMatch(query, text string) (string, bool) {
	tokens := chunk.ExtractMeasurements(query)
	if len(tokens) == 0 {
		return "", false
	}
	haystack := chunk.NormalizeSpace(text)
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			return token, true
		}
	}
	return "", false
}

var nameReplacer = strings.NewReplacer("_", " ", "-", " ")

func normalizeName(s string) string {
	return chunk.NormalizeSpace(strings.ToUpper(nameReplacer.Replace(s)))
}

// containsWord reports whether needle occurs in haystack delimited by
// non-alphanumeric characters.
func containsWord(haystack, needle string) bool {
	for from := 0; from <= len(haystack)-len(needle); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		if (start == 0 || !isWordByte(haystack[start-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/speclib/library"
)

const voltageQuery = "Voltage drop of 4.5% measured at panel LP-2, exceeds Section 4.2.3 limit"

func voltageMatches(topScore float64) []library.Match {
	return []library.Match{
		{
			ChunkID:    "c1",
			DocumentID: "d1",
			Filename:   "electrical-spec.pdf",
			Score:      topScore,
			Text:       "Section 4.2.3 Voltage Drop. Voltage drop shall not exceed 3% on feeders.",
			References: []string{"SECTION 4.2.3"},
		},
		{
			ChunkID:    "c2",
			DocumentID: "d2",
			Filename:   "addendum-2.pdf",
			Score:      0.45,
			Text:       "Feeder voltage drop tolerance was revised to 5% for remote panels.",
		},
		{
			ChunkID:    "c3",
			DocumentID: "d1",
			Filename:   "electrical-spec.pdf",
			Score:      0.31,
			Text:       "Section 4.2.4 Conductor Sizing.",
			References: []string{"SECTION 4.2.4"},
		},
	}
}

func TestCalibrate(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("Should classify a referenced voltage drop match as high confidence", func(t *testing.T) {
		cal := Calibrate(policy, voltageQuery, voltageMatches(0.62))
		assert.Equal(t, StatusRepealableHigh, cal.Status)
		assert.InDelta(t, 0.62+0.12+0.05, cal.Confidence, 1e-9)
		assert.InDelta(t, 0.62, cal.TopScore, 1e-9)
		assert.Equal(t, []string{"electrical-spec.pdf", "addendum-2.pdf"}, cal.MatchedDocuments)
		assert.Contains(t, cal.Reasons, "reference SECTION 4.2.3 matches top chunk (+0.12)")
		assert.Contains(t, cal.Reasons, "2 matches at or above 0.40 (+0.05)")
	})

	t.Run("Should fall to medium confidence without the reference", func(t *testing.T) {
		query := "Voltage drop of 4.5% measured at panel LP-2"
		cal := Calibrate(policy, query, voltageMatches(0.62))
		assert.Equal(t, StatusRepealableMedium, cal.Status)
		assert.InDelta(t, 0.67, cal.Confidence, 1e-9)
	})

	t.Run("Should need review when no match reaches the minimum", func(t *testing.T) {
		matches := voltageMatches(0.38)
		matches[1].Score = 0.2
		cal := Calibrate(policy, voltageQuery, matches)
		assert.Equal(t, StatusNeedsReview, cal.Status)
		assert.InDelta(t, 0.50, cal.Confidence, 1e-9)
		assert.Empty(t, cal.MatchedDocuments)
		assert.Contains(t, cal.Reasons, "no match reached minimum similarity 0.40")
	})

	t.Run("Should need review on an empty library", func(t *testing.T) {
		cal := Calibrate(policy, voltageQuery, nil)
		assert.Equal(t, StatusNeedsReview, cal.Status)
		assert.Zero(t, cal.Confidence)
		assert.NotNil(t, cal.MatchedDocuments)
		assert.NotEmpty(t, cal.Reasons)
	})

	t.Run("Should add the measurement boost when a measurement appears verbatim", func(t *testing.T) {
		query := "Measured voltage drop exceeded 3% at the farthest outlet"
		matches := voltageMatches(0.50)[:1]
		cal := Calibrate(policy, query, matches)
		assert.InDelta(t, 0.53, cal.Confidence, 1e-9)
		assert.Contains(t, cal.Reasons, "measurement 3% appears in top chunk (+0.03)")
	})

	t.Run("Should match references against the source filename", func(t *testing.T) {
		matches := []library.Match{{Filename: "NEC_310.16.pdf", Score: 0.5, Text: "Ampacity table."}}
		cal := Calibrate(policy, "Conductor ampacity below NEC 310.16 table value", matches)
		assert.InDelta(t, 0.62, cal.Confidence, 1e-9)
	})

	t.Run("Should match a filename named in the infraction", func(t *testing.T) {
		matches := []library.Match{{Filename: "electrical-spec.pdf", Score: 0.5, Text: "Conduit fill."}}
		cal := Calibrate(policy, "Conduit fill violates the electrical spec.", matches)
		assert.InDelta(t, 0.62, cal.Confidence, 1e-9)
		cal = Calibrate(policy, "Conduit fill violates the electrical specification", matches)
		assert.InDelta(t, 0.50, cal.Confidence, 1e-9)
	})

	t.Run("Should clamp confidence to one", func(t *testing.T) {
		cal := Calibrate(policy, voltageQuery, voltageMatches(0.97))
		assert.InDelta(t, 1.0, cal.Confidence, 1e-12)
		assert.Equal(t, StatusRepealableHigh, cal.Status)
	})

	t.Run("Should never lower confidence when a reference matches", func(t *testing.T) {
		for _, score := range []float64{0.1, 0.39, 0.4, 0.5, 0.55, 0.69, 0.9, 1.0} {
			with := Calibrate(policy, voltageQuery, voltageMatches(score))
			without := Calibrate(policy, "Voltage drop of 4.5% measured at panel LP-2", voltageMatches(score))
			require.GreaterOrEqual(t, with.Confidence, without.Confidence, "score %.2f", score)
		}
	})

	t.Run("Should honor a custom corroboration count", func(t *testing.T) {
		custom := DefaultPolicy()
		custom.CorroborationCount = 3
		cal := Calibrate(custom, "Voltage drop of 4.5% measured at panel LP-2", voltageMatches(0.62))
		assert.InDelta(t, 0.62, cal.Confidence, 1e-9)
		assert.Equal(t, StatusRepealableMedium, cal.Status)
	})
}

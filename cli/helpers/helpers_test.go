package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/scorer"
	"github.com/compozy/specmatch/engine/speclib/uc"
)

func TestParseMode(t *testing.T) {
	t.Run("Should accept known formats case insensitively", func(t *testing.T) {
		for raw, want := range map[string]Mode{"json": ModeJSON, " TEXT ": ModeText, "yaml": ModeYAML} {
			mode, ok := ParseMode(raw)
			assert.True(t, ok, raw)
			assert.Equal(t, want, mode)
		}
		_, ok := ParseMode("auto")
		assert.False(t, ok)
	})
}

func TestOutputWriter(t *testing.T) {
	summary := &library.Summary{Documents: 1, Chunks: 3, Dimension: 64, Generation: 2,
		PerDocument: []library.DocumentStatus{{ID: "d1", Filename: "electrical.pdf", Chunks: 3}}}

	t.Run("Should write indented JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, ModeJSON, false).WriteData(summary, RenderSummary(summary)))
		var decoded library.Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, 3, decoded.Chunks)
	})

	t.Run("Should write YAML using JSON field names", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, ModeYAML, false).WriteData(summary, nil))
		assert.Contains(t, buf.String(), "per_document:")
		assert.Contains(t, buf.String(), "filename: electrical.pdf")
	})

	t.Run("Should render plain text without color", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, ModeText, false).WriteData(summary, RenderSummary(summary)))
		assert.Contains(t, buf.String(), "electrical.pdf")
		assert.NotContains(t, buf.String(), "\x1b[")
	})
}

func TestRenderers(t *testing.T) {
	t.Run("Should list uploaded, skipped and failed documents", func(t *testing.T) {
		out := &uc.UploadOutput{
			UploadID:           "u1",
			Mode:               speclib.ModeAppend,
			ChunksLearned:      1,
			DocumentsProcessed: []string{"a.pdf"},
			DocumentsSkipped:   []string{"b.pdf"},
			Failures:           []speclib.DocumentFailure{{Filename: "c.pdf", Reason: "no text"}},
		}
		text := RenderUpload(out)(NewStyles(false))
		assert.Contains(t, text, "1 chunk\n")
		assert.Contains(t, text, "b.pdf (already loaded)")
		assert.Contains(t, text, "c.pdf: no text")
	})

	t.Run("Should show status labels and match snippets", func(t *testing.T) {
		out := &uc.AnalyzeOutput{Results: []uc.InfractionResult{{
			Infraction: "Voltage drop exceeds 3%",
			Status:     scorer.StatusRepealableHigh,
			Confidence: 0.81,
			TopScore:   0.77,
			Reasons:    []string{"explicit reference"},
			Matches:    []library.Match{{Filename: "e.pdf", Index: 2, Score: 0.77, Text: "voltage drop 3%"}},
		}}}
		text := RenderAnalyze(out)(NewStyles(false))
		assert.Contains(t, text, "REPEALABLE HIGH")
		assert.Contains(t, text, "e.pdf #2")
		assert.Contains(t, RenderAnalyze(&uc.AnalyzeOutput{})(NewStyles(false)), "no infractions")
	})

	t.Run("Should hint at upload for an empty library", func(t *testing.T) {
		now := time.Now()
		text := RenderSummary(&library.Summary{LastLoadedAt: &now})(NewStyles(false))
		assert.Contains(t, text, "specmatch upload")
	})
}

func TestTruncate(t *testing.T) {
	t.Run("Should collapse whitespace and cut long text", func(t *testing.T) {
		assert.Equal(t, "a b", Truncate("a \n  b", 10))
		assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Should expose the error kind in JSON", func(t *testing.T) {
		err := speclib.ModelUnavailable("embed", errors.New("connection refused"))
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(FormatError(err, ModeJSON, NewStyles(false))), &body))
		assert.Equal(t, "model_unavailable", body["code"])
	})

	t.Run("Should prefer CLI error codes and details", func(t *testing.T) {
		err := NewCliError("NO_MATCH", "path or pattern matched no files", "specs/*.pdf")
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(FormatError(err, ModeJSON, NewStyles(false))), &body))
		assert.Equal(t, "NO_MATCH", body["code"])
		assert.Equal(t, "specs/*.pdf", body["details"])
		text := FormatError(err, ModeText, NewStyles(false))
		assert.Contains(t, text, "error: path or pattern matched no files")
		assert.Contains(t, text, "details: specs/*.pdf")
	})
}

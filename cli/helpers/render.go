package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/scorer"
	"github.com/compozy/specmatch/engine/speclib/uc"
)

const snippetLength = 160

// Truncate shortens s to at most maxLength runes, marking the cut.
func Truncate(s string, maxLength int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if maxLength <= 3 || len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength-3]) + "..."
}

// Pluralize picks the singular or plural form for count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// RenderUpload describes an upload result.
func RenderUpload(out *uc.UploadOutput) TextRenderer {
	return func(st Styles) string {
		var b strings.Builder
		b.WriteString(st.Title.Render("Upload "+out.UploadID) + "\n")
		fmt.Fprintf(&b, "%s %s\n", st.Label.Render("mode:"), out.Mode)
		fmt.Fprintf(&b, "%s %d %s\n", st.Label.Render("learned:"), out.ChunksLearned,
			Pluralize(out.ChunksLearned, "chunk", "chunks"))
		for _, name := range out.DocumentsProcessed {
			b.WriteString(st.Success.Render("  + ") + name + "\n")
		}
		for _, name := range out.DocumentsSkipped {
			b.WriteString(st.Muted.Render("  = "+name+" (already loaded)") + "\n")
		}
		for _, failure := range out.Failures {
			b.WriteString(st.Error.Render("  ! ") + failure.Filename + st.Muted.Render(": "+failure.Reason) + "\n")
		}
		fmt.Fprintf(&b, "%s %d", st.Label.Render("generation:"), out.Generation)
		return b.String()
	}
}

func statusStyle(st Styles, status scorer.Status) string {
	label := strings.ToUpper(strings.ReplaceAll(string(status), "_", " "))
	switch status {
	case scorer.StatusRepealableHigh:
		return st.Success.Render(label)
	case scorer.StatusRepealableMedium:
		return st.Warning.Render(label)
	default:
		return st.Muted.Render(label)
	}
}

// RenderAnalyze describes each classified infraction with its best matches.
func RenderAnalyze(out *uc.AnalyzeOutput) TextRenderer {
	return func(st Styles) string {
		blocks := make([]string, 0, len(out.Results))
		for i := range out.Results {
			res := &out.Results[i]
			var b strings.Builder
			b.WriteString(st.Title.Render(Truncate(res.Infraction, 100)) + "\n")
			fmt.Fprintf(&b, "%s  confidence %.2f  top score %.3f\n",
				statusStyle(st, res.Status), res.Confidence, res.TopScore)
			for _, reason := range res.Reasons {
				b.WriteString(st.Muted.Render("  - "+reason) + "\n")
			}
			for _, m := range res.Matches {
				fmt.Fprintf(&b, "  %s %s #%d  %s\n",
					st.Label.Render(fmt.Sprintf("%.3f", m.Score)), m.Filename, m.Index,
					st.Muted.Render(Truncate(m.Text, snippetLength)))
			}
			blocks = append(blocks, st.Box.Render(strings.TrimRight(b.String(), "\n")))
		}
		if len(blocks) == 0 {
			return st.Muted.Render("no infractions analyzed")
		}
		return strings.Join(blocks, "\n")
	}
}

// RenderSummary describes the library content.
func RenderSummary(summary *library.Summary) TextRenderer {
	return func(st Styles) string {
		var b strings.Builder
		b.WriteString(st.Title.Render("Spec library") + "\n")
		fmt.Fprintf(&b, "%s %d   %s %d   %s %d   %s %d\n",
			st.Label.Render("documents"), summary.Documents,
			st.Label.Render("chunks"), summary.Chunks,
			st.Label.Render("dimension"), summary.Dimension,
			st.Label.Render("generation"), summary.Generation)
		if summary.LastLoadedAt != nil {
			fmt.Fprintf(&b, "%s %s\n", st.Label.Render("last load"), summary.LastLoadedAt.Format(time.RFC3339))
		}
		if len(summary.PerDocument) == 0 {
			b.WriteString(st.Muted.Render("empty; upload documents with `specmatch upload`"))
			return b.String()
		}
		for _, doc := range summary.PerDocument {
			fmt.Fprintf(&b, "  %-40s %5d %s\n", doc.Filename, doc.Chunks, st.Muted.Render(Pluralize(doc.Chunks, "chunk", "chunks")))
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

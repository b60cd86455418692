package chunk

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/compozy/specmatch/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T, settings Settings) *Processor {
	t.Helper()
	p, err := NewProcessor(settings)
	require.NoError(t, err)
	return p
}

func TestNewProcessor(t *testing.T) {
	t.Run("Should default to the protected strategy", func(t *testing.T) {
		p := newProcessor(t, Settings{TargetSize: 100})
		assert.Equal(t, StrategyProtected, p.Settings().Strategy)
	})

	t.Run("Should reject invalid settings", func(t *testing.T) {
		cases := []Settings{
			{TargetSize: 0},
			{TargetSize: 100, OverlapRatio: 0.5},
			{TargetSize: 100, OverlapRatio: -0.1},
			{TargetSize: 100, ProtectedPatterns: []string{"("}},
			{TargetSize: 100, Strategy: "semantic"},
		}
		for _, tc := range cases {
			_, err := NewProcessor(tc)
			assert.Error(t, err, "settings %+v", tc)
		}
	})
}

func TestProcessor_Chunk(t *testing.T) {
	t.Run("Should return nothing for blank input", func(t *testing.T) {
		p := newProcessor(t, Settings{TargetSize: 100})
		chunks, err := p.Chunk(" \n\t\r\n ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Should return a single chunk when text fits the target", func(t *testing.T) {
		p := newProcessor(t, Settings{TargetSize: 100, OverlapRatio: 0.2})
		chunks, err := p.Chunk("  Conductors shall be copper.  ")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Conductors shall be copper.", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Index)
		assert.False(t, chunks[0].Oversized)
	})

	t.Run("Should keep every chunk within the target size", func(t *testing.T) {
		sentences := []string{
			"The feeder conductors shall be sized for the calculated load. ",
			"Grounding electrodes shall be bonded together. ",
			"Raceways shall be supported at intervals not exceeding the listed spacing. ",
			"Panelboards shall have a minimum working clearance in front. ",
		}
		var b strings.Builder
		for i := 0; i < 24; i++ {
			b.WriteString(sentences[i%len(sentences)])
		}
		text := b.String()
		p := newProcessor(t, Settings{TargetSize: 200, OverlapRatio: 0.15})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for i, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 200)
			assert.False(t, c.Oversized)
			assert.Contains(t, text, c.Text)
			assert.Equal(t, i, c.Index)
		}
		assert.True(t, strings.HasPrefix(text, chunks[0].Text))
		assert.True(t, strings.HasSuffix(strings.TrimSpace(text), chunks[len(chunks)-1].Text))
	})

	t.Run("Should never split a standards code", func(t *testing.T) {
		text := "alpha bravo charlie delta echo foxtrot IEEE 1584-2018 golf hotel india juliet kilo lima mike november"
		p := newProcessor(t, Settings{TargetSize: 40})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "alpha bravo charlie delta echo foxtrot", chunks[0].Text)
		assert.Equal(t, "IEEE 1584-2018 golf hotel india juliet", chunks[1].Text)
		assert.Equal(t, []string{"IEEE 1584-2018"}, chunks[1].References)
		for _, c := range chunks {
			assert.False(t, strings.HasSuffix(c.Text, "IEEE"))
			assert.False(t, strings.HasPrefix(c.Text, "1584"))
		}
	})

	t.Run("Should flag an unsplittable protected span as oversized", func(t *testing.T) {
		span := "[[lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor]]"
		text := "Intro text. " + span + " tail words follow here."
		p := newProcessor(t, Settings{
			TargetSize:        30,
			ProtectedPatterns: []string{`\[\[[^\]]*\]\]`},
		})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "Intro text.", chunks[0].Text)
		assert.Equal(t, span, chunks[1].Text)
		assert.True(t, chunks[1].Oversized)
		assert.Equal(t, "tail words follow here.", chunks[2].Text)
		assert.False(t, chunks[2].Oversized)
	})

	t.Run("Should split before a protected span instead of growing past the target", func(t *testing.T) {
		span := "[[alpha. beta. gamma]]"
		text := "Intro sentence here is long. " + span + " tail words follow here."
		p := newProcessor(t, Settings{
			TargetSize:        40,
			ProtectedPatterns: []string{`\[\[[^\]]*\]\]`},
		})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "Intro sentence here is long.", chunks[0].Text)
		assert.Equal(t, span+" tail words", chunks[1].Text)
		assert.Equal(t, "follow here.", chunks[2].Text)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 40)
			assert.False(t, c.Oversized)
		}
	})

	t.Run("Should prefer a section header over a later sentence end", func(t *testing.T) {
		text := "Alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu.\n" +
			"4.2 Scope\nShort one. Short two. Short three. Then a long clause continues onward without any stop at all until the end"
		p := newProcessor(t, Settings{TargetSize: 120})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu.", chunks[0].Text)
		assert.True(t, strings.HasPrefix(chunks[1].Text, "4.2 Scope"))
		assert.Contains(t, chunks[1].References, "SECTION 4.2")
	})

	t.Run("Should start the next chunk on an overlapping sentence", func(t *testing.T) {
		var b strings.Builder
		for i := 1; i <= 20; i++ {
			fmt.Fprintf(&b, "Rule %02d is strict. ", i)
		}
		p := newProcessor(t, Settings{TargetSize: 100, OverlapRatio: 0.3})
		chunks, err := p.Chunk(b.String())
		require.NoError(t, err)
		require.Len(t, chunks, 5)
		assert.Equal(t, "Rule 01 is strict. Rule 02 is strict. Rule 03 is strict. Rule 04 is strict. Rule 05 is strict.", chunks[0].Text)
		assert.True(t, strings.HasPrefix(chunks[1].Text, "Rule 05 is strict."))
		assert.Equal(t, "Rule 17 is strict. Rule 18 is strict. Rule 19 is strict. Rule 20 is strict.", chunks[4].Text)
	})

	t.Run("Should keep a short voltage drop section whole", func(t *testing.T) {
		text := "4.2.3 Voltage Drop\nBranch circuit conductors shall be sized so that the voltage drop does not exceed 3% at the farthest outlet. " +
			"Feeder and branch circuit combined voltage drop shall not exceed 5%.\n\n4.2.4 Conductor Material\n" +
			"Conductors shall be copper with THHN insulation rated 90°C."
		p := newProcessor(t, Settings{TargetSize: 1200, OverlapRatio: 0.15})
		chunks, err := p.Chunk(text)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, []string{"SECTION 4.2.3", "SECTION 4.2.4"}, chunks[0].References)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		text := strings.Repeat("Conduit fill shall follow NEC Chapter 9 Table 1. Use 12 AWG minimum. ", 30)
		p := newProcessor(t, Settings{TargetSize: 150, OverlapRatio: 0.2})
		first, err := p.Chunk(text)
		require.NoError(t, err)
		second, err := p.Chunk(text)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Should normalize carriage returns", func(t *testing.T) {
		p := newProcessor(t, Settings{TargetSize: 100})
		chunks, err := p.Chunk("Line one.\r\nLine two.")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Line one.\nLine two.", chunks[0].Text)
	})
}

func TestProcessor_ChunkDocument(t *testing.T) {
	t.Run("Should stamp stable unique ids", func(t *testing.T) {
		var b strings.Builder
		for i := 1; i <= 20; i++ {
			fmt.Fprintf(&b, "Rule %02d is strict. ", i)
		}
		p := newProcessor(t, Settings{TargetSize: 100})
		chunks, err := p.ChunkDocument("doc-1", "spec.pdf", b.String())
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		ids := make(map[string]struct{})
		for _, c := range chunks {
			assert.Equal(t, "doc-1", c.DocumentID)
			assert.Equal(t, "spec.pdf", c.Filename)
			assert.Equal(t, core.ShortHash("doc-1::"+strconv.Itoa(c.Index)+"::"+c.Hash), c.ID)
			ids[c.ID] = struct{}{}
		}
		assert.Len(t, ids, len(chunks))

		again, err := p.ChunkDocument("doc-1", "spec.pdf", b.String())
		require.NoError(t, err)
		assert.Equal(t, chunks[0].ID, again[0].ID)
	})
}

func TestProcessor_Recursive(t *testing.T) {
	t.Run("Should delegate to the recursive character splitter", func(t *testing.T) {
		p := newProcessor(t, Settings{Strategy: StrategyRecursive, TargetSize: 100, OverlapRatio: 0.1})
		chunks, err := p.Chunk(strings.Repeat("word ", 100))
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 100)
			assert.NotEmpty(t, c.Hash)
		}
	})
}

package uc

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/engine/speclib/scorer"
)

// MaxInfractions bounds a single analyze request.
const MaxInfractions = 200

type AnalyzeInput struct {
	Infractions []string
	TopK        int
}

type InfractionResult struct {
	Infraction       string          `json:"infraction"`
	Status           scorer.Status   `json:"status"`
	Confidence       float64         `json:"confidence"`
	TopScore         float64         `json:"top_score"`
	MatchedDocuments []string        `json:"matched_documents"`
	Reasons          []string        `json:"reasons"`
	Matches          []library.Match `json:"matches"`
}

type AnalyzeOutput struct {
	Results []InfractionResult `json:"results"`
}

type Analyze struct {
	scorer Scorer
}

func NewAnalyze(s Scorer) *Analyze {
	return &Analyze{scorer: s}
}

// Execute scores every infraction in order. Blank infractions reject the
// whole request.
func (uc *Analyze) Execute(ctx context.Context, in *AnalyzeInput) (*AnalyzeOutput, error) {
	if in == nil || len(in.Infractions) == 0 {
		return nil, speclib.InvalidInput("analyze", "at least one infraction is required")
	}
	if len(in.Infractions) > MaxInfractions {
		return nil, speclib.InvalidInput("analyze", fmt.Sprintf("at most %d infractions per request", MaxInfractions))
	}
	if in.TopK < 0 {
		return nil, speclib.InvalidInput("analyze", "top_k must not be negative")
	}
	for i, text := range in.Infractions {
		if strings.TrimSpace(text) == "" {
			return nil, speclib.InvalidInput("analyze", fmt.Sprintf("infraction %d is blank", i))
		}
	}
	results, err := uc.scorer.ScoreBatch(ctx, in.Infractions, in.TopK)
	if err != nil {
		return nil, err
	}
	out := &AnalyzeOutput{Results: make([]InfractionResult, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, InfractionResult{
			Infraction:       res.Query,
			Status:           res.Status,
			Confidence:       res.Confidence,
			TopScore:         res.TopScore,
			MatchedDocuments: res.MatchedDocuments,
			Reasons:          res.Reasons,
			Matches:          res.Matches,
		})
	}
	return out, nil
}

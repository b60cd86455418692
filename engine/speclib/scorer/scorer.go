package scorer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compozy/specmatch/engine/core"
	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/embedder"
	"github.com/compozy/specmatch/engine/speclib/library"
	"github.com/compozy/specmatch/pkg/logger"
)

const (
	DefaultTopK = 5
	maxTopK     = 50
)

// Library is the read side of the spec library used for scoring.
type Library interface {
	Search(ctx context.Context, vector []float32, k int) ([]library.Match, error)
}

// Result is the scored outcome for one infraction.
type Result struct {
	Query            string          `json:"query"`
	Status           Status          `json:"status"`
	Confidence       float64         `json:"confidence"`
	TopScore         float64         `json:"top_score"`
	Matches          []library.Match `json:"matches"`
	MatchedDocuments []string        `json:"matched_documents"`
	Reasons          []string        `json:"reasons"`
}

// Options tune a Scorer.
type Options struct {
	TopK    int
	Timeout time.Duration
}

// Scorer classifies infractions against the spec library. The policy can be
// swapped while queries are in flight.
type Scorer struct {
	embedder embedder.Embedder
	library  Library
	policy   atomic.Pointer[Policy]
	topK     int
	timeout  time.Duration
	tracer   trace.Tracer
}

func New(emb embedder.Embedder, lib Library, policy Policy, opts Options) (*Scorer, error) {
	if emb == nil {
		return nil, errors.New("scorer: embedder is required")
	}
	if lib == nil {
		return nil, errors.New("scorer: library is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	s := &Scorer{
		embedder: emb,
		library:  lib,
		topK:     opts.TopK,
		timeout:  opts.Timeout,
		tracer:   otel.Tracer("specmatch.scorer"),
	}
	if s.topK <= 0 {
		s.topK = DefaultTopK
	}
	s.policy.Store(&policy)
	return s, nil
}

// Policy returns the active policy.
func (s *Scorer) Policy() Policy {
	return *s.policy.Load()
}

// SetPolicy validates and installs a new policy. Queries already running keep
// the policy they started with.
func (s *Scorer) SetPolicy(policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	s.policy.Store(&policy)
	return nil
}

// Score embeds query, searches the library and calibrates the top matches.
// An empty library yields needs_review rather than an error.
func (s *Scorer) Score(ctx context.Context, query string, topK int) (result *Result, err error) {
	if strings.TrimSpace(query) == "" {
		return nil, speclib.InvalidInput("scorer: score", "infraction text is required")
	}
	topK = s.resolveTopK(topK)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	policy := s.Policy()
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "specmatch.scorer.score", trace.WithAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("query_length", len(query)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("status", string(result.Status)),
				attribute.Float64("confidence", result.Confidence),
			)
			speclib.RecordDecision(ctx, string(result.Status))
		}
		speclib.RecordScoreLatency(ctx, time.Since(start))
		span.End()
	}()

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	_, calSpan := s.tracer.Start(ctx, "specmatch.scorer.calibrate")
	cal := Calibrate(policy, query, matches)
	calSpan.End()

	logger.FromContext(ctx).Debug(
		"Infraction scored",
		"query_hash", core.ShortHash(query),
		"query_length", len(query),
		"status", cal.Status,
		"confidence", cal.Confidence,
		"matches", len(matches),
	)
	return &Result{
		Query:            query,
		Status:           cal.Status,
		Confidence:       cal.Confidence,
		TopScore:         cal.TopScore,
		Matches:          matches,
		MatchedDocuments: cal.MatchedDocuments,
		Reasons:          cal.Reasons,
	}, nil
}

// ScoreBatch scores queries sequentially and returns results in input order.
// The first failure aborts the batch.
func (s *Scorer) ScoreBatch(ctx context.Context, queries []string, topK int) ([]*Result, error) {
	results := make([]*Result, 0, len(queries))
	for i := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.Score(ctx, queries[i], topK)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Scorer) resolveTopK(topK int) int {
	switch {
	case topK <= 0:
		return s.topK
	case topK > maxTopK:
		return maxTopK
	default:
		return topK
	}
}

func (s *Scorer) embedQuery(ctx context.Context, query string) ([]float32, error) {
	spanCtx, span := s.tracer.Start(ctx, "specmatch.scorer.embed_query")
	defer span.End()
	vector, err := s.embedder.EmbedQuery(spanCtx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, speclib.ErrModelUnavailable) && !errors.Is(err, speclib.ErrDimensionMismatch) {
			err = speclib.ModelUnavailable("scorer: embed query", err)
		}
		return nil, err
	}
	return vector, nil
}

func (s *Scorer) search(ctx context.Context, vector []float32, topK int) ([]library.Match, error) {
	spanCtx, span := s.tracer.Start(ctx, "specmatch.scorer.vector_search", trace.WithAttributes(
		attribute.Int("top_k", topK),
	))
	defer span.End()
	matches, err := s.library.Search(spanCtx, vector, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

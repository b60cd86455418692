package scorer

import (
	"errors"
	"fmt"

	appconfig "github.com/compozy/specmatch/pkg/config"
)

// MaxReferenceBoost caps the reference boost so a citation alone cannot lift
// a weak match past more than one band.
const MaxReferenceBoost = 0.15

// Status is the classification of an infraction.
type Status string

const (
	StatusRepealableHigh   Status = "repealable_high"
	StatusRepealableMedium Status = "repealable_medium"
	StatusNeedsReview      Status = "needs_review"
)

// Policy holds the calibration thresholds and boosts.
type Policy struct {
	HighThreshold      float64 `json:"high_threshold"`
	MediumThreshold    float64 `json:"medium_threshold"`
	MinMatchThreshold  float64 `json:"min_match_threshold"`
	ReferenceBoost     float64 `json:"reference_boost"`
	CorroborationBoost float64 `json:"corroboration_boost"`
	CorroborationCount int     `json:"corroboration_count"`
	MeasurementBoost   float64 `json:"measurement_boost"`
}

func DefaultPolicy() Policy {
	return Policy{
		HighThreshold:      0.70,
		MediumThreshold:    0.55,
		MinMatchThreshold:  0.40,
		ReferenceBoost:     0.12,
		CorroborationBoost: 0.05,
		CorroborationCount: 2,
		MeasurementBoost:   0.03,
	}
}

// PolicyFromConfig maps the scorer section of the application config.
func PolicyFromConfig(cfg *appconfig.ScorerConfig) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	return Policy{
		HighThreshold:      cfg.HighThreshold,
		MediumThreshold:    cfg.MediumThreshold,
		MinMatchThreshold:  cfg.MinMatchThreshold,
		ReferenceBoost:     cfg.ReferenceBoost,
		CorroborationBoost: cfg.CorroborationBoost,
		CorroborationCount: cfg.CorroborationCount,
		MeasurementBoost:   cfg.MeasurementBoost,
	}
}

// Validate enforces 0 <= min <= medium <= high <= 1 and sane boosts.
func (p Policy) Validate() error {
	var errs []error
	if p.MinMatchThreshold < 0 || p.HighThreshold > 1 {
		errs = append(errs, errors.New("thresholds must lie within [0, 1]"))
	}
	if p.MinMatchThreshold > p.MediumThreshold || p.MediumThreshold > p.HighThreshold {
		errs = append(errs, fmt.Errorf(
			"thresholds must satisfy min <= medium <= high, got %.2f/%.2f/%.2f",
			p.MinMatchThreshold, p.MediumThreshold, p.HighThreshold,
		))
	}
	if p.ReferenceBoost < 0 || p.CorroborationBoost < 0 || p.MeasurementBoost < 0 {
		errs = append(errs, errors.New("boosts must not be negative"))
	}
	if p.ReferenceBoost > MaxReferenceBoost {
		errs = append(errs, fmt.Errorf("reference boost %.2f exceeds %.2f", p.ReferenceBoost, MaxReferenceBoost))
	}
	if p.CorroborationCount < 1 {
		errs = append(errs, errors.New("corroboration count must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("scorer: invalid policy: %w", errors.Join(errs...))
	}
	return nil
}

func (p Policy) classify(confidence float64, anyAboveMin bool) Status {
	switch {
	case !anyAboveMin:
		return StatusNeedsReview
	case confidence >= p.HighThreshold:
		return StatusRepealableHigh
	case confidence >= p.MediumThreshold:
		return StatusRepealableMedium
	default:
		return StatusNeedsReview
	}
}

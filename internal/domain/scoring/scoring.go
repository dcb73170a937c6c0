// Package scoring computes a severity score for confirmed threats. Severity
// folds the threat category and the detector's confidence into a single
// 0-100 value used to rank concurrent incidents for triage.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/crowdex/vigil/internal/domain/model"
)

// Default severity weights per threat category. Confidence is 0-1, so the
// weight is the ceiling a fully confident detection of that category reaches.
const (
	defaultFightWeight     = 100
	defaultAccidentWeight  = 90
	defaultAbandonedWeight = 75
	defaultTypeWeight      = 60
	maxSeverity            = 100
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithTypeWeights replaces the per-category weights from a configuration
// map. Non-positive weights are ignored.
func WithTypeWeights(weights map[model.ThreatType]float64, defaultWeight float64) Option {
	return func(s *WeightedScorer) {
		s.weights = make(map[model.ThreatType]float64)
		for t, w := range weights {
			if w > 0 {
				s.weights[t] = w
			}
		}
		if defaultWeight > 0 {
			s.defaultWeight = defaultWeight
		}
	}
}

// WithTypeWeight overrides the weight for a single threat category.
func WithTypeWeight(t model.ThreatType, weight float64) Option {
	return func(s *WeightedScorer) {
		if weight > 0 {
			s.weights[t] = weight
		}
	}
}

// Input carries the alert fields severity is derived from.
type Input struct {
	AnalysisID string
	Threat     model.ThreatType
	Confidence float64
}

// Result is the computed severity for one alert.
type Result struct {
	AnalysisID string
	Severity   float64
}

// Scorer computes a severity from an input. Implementations may call out to
// an external risk model; all of them honor ctx for cancellation.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// WeightedScorer implements Scorer with per-category weights.
type WeightedScorer struct {
	weights       map[model.ThreatType]float64
	defaultWeight float64
}

// NewWeightedScorer creates a scorer with the default category weights.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		weights: map[model.ThreatType]float64{
			model.ThreatFight:           defaultFightWeight,
			model.ThreatAccident:        defaultAccidentWeight,
			model.ThreatAbandonedObject: defaultAbandonedWeight,
		},
		defaultWeight: defaultTypeWeight,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score computes the severity for the given input.
func (s *WeightedScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("scoring cancelled: %w", err)
	}

	weight, ok := s.weights[in.Threat]
	if !ok {
		weight = s.defaultWeight
	}

	severity := in.Confidence * weight
	severity = math.Max(0, math.Min(maxSeverity, severity))

	return Result{
		AnalysisID: in.AnalysisID,
		Severity:   severity,
	}, nil
}

package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	minSubscore = 0.0
	maxSubscore = 100.0

	weightTotal = 100
)

// ScoringWeights are the per-criterion weights applied by the Scorer.
// Weights are non-negative integers that sum to exactly 100.
type ScoringWeights struct {
	Price      int `json:"price" yaml:"price"`
	Experience int `json:"experience" yaml:"experience"`
	Timeline   int `json:"timeline" yaml:"timeline"`
	Technical  int `json:"technical" yaml:"technical"`
	Risk       int `json:"risk" yaml:"risk"`
}

// DefaultWeights returns the standard evaluation weighting.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{Price: 30, Experience: 25, Timeline: 20, Technical: 15, Risk: 10}
}

// Validate checks that every weight is non-negative and that they sum to 100.
func (w ScoringWeights) Validate() error {
	sum := 0
	for _, c := range w.criteria() {
		if c.weight < 0 {
			return fmt.Errorf("%w: %s weight %d is negative", ErrInvalidInput, c.name, c.weight)
		}
		sum += c.weight
	}
	if sum != weightTotal {
		return fmt.Errorf("%w: scoring weights sum to %d, want %d", ErrInvalidInput, sum, weightTotal)
	}
	return nil
}

type criterion struct {
	name   string
	weight int
}

func (w ScoringWeights) criteria() []criterion {
	return []criterion{
		{"price", w.Price},
		{"experience", w.Experience},
		{"timeline", w.Timeline},
		{"technical", w.Technical},
		{"risk", w.Risk},
	}
}

// Scorer reduces five subscores to one overall score using fixed weights.
type Scorer struct {
	weights ScoringWeights
}

// NewScorer validates weights once and returns a Scorer bound to them.
func NewScorer(weights ScoringWeights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

// Weights returns the weights the scorer was built with.
func (s *Scorer) Weights() ScoringWeights {
	return s.weights
}

// Score returns round(sum(subscore_i * weight_i) / 100), rounding half away
// from zero. Every subscore must be a finite number in [0, 100].
func (s *Scorer) Score(scores Subscores) (int, error) {
	if err := scores.Validate(); err != nil {
		return 0, err
	}

	values := scores.values()
	weighted := decimal.Zero
	for i, c := range s.weights.criteria() {
		weighted = weighted.Add(decimal.NewFromFloat(values[i]).Mul(decimal.NewFromInt(int64(c.weight))))
	}

	// Decimal.Round rounds half away from zero
	overall := weighted.Div(decimal.NewFromInt(weightTotal)).Round(0)
	return int(overall.IntPart()), nil
}

// Evaluate builds an Evaluation whose overall score is derived from scores.
func (s *Scorer) Evaluate(bidID, evaluatorID string, scores Subscores, notes string, at time.Time) (Evaluation, error) {
	overall, err := s.Score(scores)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate bid %s: %w", bidID, err)
	}

	return Evaluation{
		BidID:          bidID,
		Scores:         scores,
		OverallScore:   overall,
		EvaluatorNotes: notes,
		EvaluatedAt:    at,
		EvaluatorID:    evaluatorID,
	}, nil
}

func (s Subscores) values() [5]float64 {
	return [5]float64{s.Price, s.Experience, s.Timeline, s.Technical, s.Risk}
}

// Validate rejects non-finite or out-of-range subscores.
func (s Subscores) Validate() error {
	names := [5]string{"price", "experience", "timeline", "technical", "risk"}
	for i, v := range s.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s score is not a number", ErrInvalidInput, names[i])
		}
		if v < minSubscore || v > maxSubscore {
			return fmt.Errorf("%w: %s score %v outside [0, 100]", ErrInvalidInput, names[i], v)
		}
	}
	return nil
}

// ParseSubscores converts free-form form input into Subscores. Keys are the
// criterion names with or without the "_score" suffix. Every criterion must
// be present and numeric; ranges are validated as well.
func ParseSubscores(input map[string]string) (Subscores, error) {
	normalized := make(map[string]string, len(input))
	for k, v := range input {
		key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(k)), "_score")
		normalized[key] = strings.TrimSpace(v)
	}

	var out Subscores
	targets := []struct {
		name string
		dst  *float64
	}{
		{"price", &out.Price},
		{"experience", &out.Experience},
		{"timeline", &out.Timeline},
		{"technical", &out.Technical},
		{"risk", &out.Risk},
	}

	for _, target := range targets {
		raw, ok := normalized[target.name]
		if !ok || raw == "" {
			return Subscores{}, fmt.Errorf("%w: %s score is missing", ErrInvalidInput, target.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Subscores{}, fmt.Errorf("%w: %s score %q is not a number", ErrInvalidInput, target.name, raw)
		}
		*target.dst = v
	}

	if err := out.Validate(); err != nil {
		return Subscores{}, err
	}
	return out, nil
}

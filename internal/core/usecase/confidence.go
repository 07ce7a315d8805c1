package usecase

import (
	"fmt"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// ConfidenceConfig parameterizes the scoring blend. The coefficients are
// configuration, not hidden constants; bootstrap loads them from the
// scoring file.
type ConfidenceConfig struct {
	RetrievalWeight      float64 `yaml:"retrieval_weight"`
	RerankWeight         float64 `yaml:"rerank_weight"`
	FreshnessWeight      float64 `yaml:"freshness_weight"`
	RerankAbsentDiscount float64 `yaml:"rerank_absent_discount"`
	FreshnessFloor       float64 `yaml:"freshness_floor"`
	FreshnessHorizonDays int     `yaml:"freshness_horizon_days"`
}

func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		RetrievalWeight:      0.5,
		RerankWeight:         0.3,
		FreshnessWeight:      0.2,
		RerankAbsentDiscount: 0.85,
		FreshnessFloor:       0.2,
		FreshnessHorizonDays: 730,
	}
}

func (c ConfidenceConfig) normalize() ConfidenceConfig {
	def := DefaultConfidenceConfig()
	out := c
	if out.RetrievalWeight <= 0 {
		out.RetrievalWeight = def.RetrievalWeight
	}
	if out.RerankWeight <= 0 {
		out.RerankWeight = def.RerankWeight
	}
	if out.FreshnessWeight <= 0 {
		out.FreshnessWeight = def.FreshnessWeight
	}
	if out.RerankAbsentDiscount <= 0 || out.RerankAbsentDiscount > 1 {
		out.RerankAbsentDiscount = def.RerankAbsentDiscount
	}
	if out.FreshnessFloor < 0 || out.FreshnessFloor > 1 {
		out.FreshnessFloor = def.FreshnessFloor
	}
	if out.FreshnessHorizonDays <= 0 {
		out.FreshnessHorizonDays = def.FreshnessHorizonDays
	}

	// Weights are renormalized to sum to 1 so the score stays in [0,1]
	// without clamping.
	sum := out.RetrievalWeight + out.RerankWeight + out.FreshnessWeight
	out.RetrievalWeight /= sum
	out.RerankWeight /= sum
	out.FreshnessWeight /= sum
	return out
}

// ConfidenceScorer combines retrieval rank, the optional rerank signal,
// and filing recency into one normalized score. Deterministic pure
// function of its inputs; the clock is injected for testability.
type ConfidenceScorer struct {
	cfg ConfidenceConfig
	now func() time.Time
}

func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	return NewConfidenceScorerAt(cfg, time.Now)
}

func NewConfidenceScorerAt(cfg ConfidenceConfig, now func() time.Time) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg.normalize(), now: now}
}

// Score returns a confidence in [0,1]. Inputs outside their declared
// ranges ([0,1] scores, non-future filing dates) fail instead of silently
// clamping. Rerank absent falls back to retrieval with a fixed discount.
func (s *ConfidenceScorer) Score(retrieval float64, rerank *float64, filingDate time.Time) (float64, error) {
	if retrieval < 0 || retrieval > 1 {
		return 0, domain.WrapError(domain.ErrInvalidArgument, "confidence", fmt.Errorf("retrieval score %.4f outside [0,1]", retrieval))
	}
	if rerank != nil && (*rerank < 0 || *rerank > 1) {
		return 0, domain.WrapError(domain.ErrInvalidArgument, "confidence", fmt.Errorf("rerank score %.4f outside [0,1]", *rerank))
	}
	now := s.now().UTC()
	if filingDate.After(now) {
		return 0, domain.WrapError(domain.ErrInvalidArgument, "confidence", fmt.Errorf("filing date %s is in the future", filingDate.Format(time.DateOnly)))
	}

	var signal float64
	if rerank != nil {
		signal = s.cfg.RetrievalWeight*retrieval + s.cfg.RerankWeight*(*rerank)
	} else {
		signal = (s.cfg.RetrievalWeight + s.cfg.RerankWeight) * retrieval * s.cfg.RerankAbsentDiscount
	}

	return signal + s.cfg.FreshnessWeight*s.freshness(filingDate, now), nil
}

// freshness decays linearly with document age and saturates at the floor
// beyond the horizon; an ancient filing contributes a fixed minimum, not
// an unbounded penalty.
func (s *ConfidenceScorer) freshness(filingDate, now time.Time) float64 {
	horizon := time.Duration(s.cfg.FreshnessHorizonDays) * 24 * time.Hour
	age := now.Sub(filingDate)
	if age <= 0 {
		return 1
	}
	if age >= horizon {
		return s.cfg.FreshnessFloor
	}
	fresh := 1 - age.Seconds()/horizon.Seconds()
	if fresh < s.cfg.FreshnessFloor {
		return s.cfg.FreshnessFloor
	}
	return fresh
}

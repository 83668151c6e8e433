package fraud

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Recommendation is the fraud gate's verdict
type Recommendation string

const (
	RecommendationAllow  Recommendation = "ALLOW"
	RecommendationReview Recommendation = "REVIEW"
	RecommendationBlock  Recommendation = "BLOCK"
)

// Score thresholds for the recommendation bands
var (
	blockThreshold  = decimal.NewFromInt(80)
	reviewThreshold = decimal.NewFromInt(50)
	maxScore        = decimal.NewFromInt(100)
)

// Assessment is the aggregated outcome of a fraud check
type Assessment struct {
	Score          decimal.Decimal
	Recommendation Recommendation
	RulesFailed    int
	RulesEvaluated int
	Results        []RuleResult
}

// Scorer runs the rule set and aggregates a recommendation
type Scorer struct {
	rules  []Rule
	logger *zap.Logger
}

// NewScorer creates a scorer over the given rules
func NewScorer(rules []Rule, logger *zap.Logger) *Scorer {
	return &Scorer{rules: rules, logger: logger}
}

// Assess evaluates every rule and aggregates the score. The aggregate is
// the sum over failed rules of score x severity multiplier, capped at 100.
// A payment with no failed rules is always ALLOW regardless of score.
// Rule errors and panics are contained per rule: the failing rule is
// skipped and the remaining rules still run.
func (s *Scorer) Assess(ctx context.Context, payment PaymentContext) Assessment {
	assessment := Assessment{
		Score:   decimal.Zero,
		Results: make([]RuleResult, 0, len(s.rules)),
	}

	for _, rule := range s.rules {
		result, err := s.evaluate(ctx, rule, payment)
		if err != nil {
			s.logger.Warn("fraud rule failed to evaluate, skipping",
				zap.String("rule", rule.Name()),
				zap.Error(err))
			continue
		}
		assessment.RulesEvaluated++
		assessment.Results = append(assessment.Results, result)

		if result.Passed {
			continue
		}
		assessment.RulesFailed++
		weighted := decimal.NewFromInt(int64(result.Score)).Mul(result.Severity.Multiplier())
		assessment.Score = assessment.Score.Add(weighted)
	}

	if assessment.Score.GreaterThan(maxScore) {
		assessment.Score = maxScore
	}

	switch {
	case assessment.RulesFailed == 0:
		assessment.Recommendation = RecommendationAllow
	case assessment.Score.GreaterThanOrEqual(blockThreshold):
		assessment.Recommendation = RecommendationBlock
	case assessment.Score.GreaterThanOrEqual(reviewThreshold):
		assessment.Recommendation = RecommendationReview
	default:
		assessment.Recommendation = RecommendationAllow
	}

	return assessment
}

// evaluate runs one rule with panic containment
func (s *Scorer) evaluate(ctx context.Context, rule Rule, payment PaymentContext) (result RuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", rule.Name(), r)
		}
	}()
	return rule.Evaluate(ctx, payment)
}

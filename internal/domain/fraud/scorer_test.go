package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// staticRule returns a fixed result, for driving the scorer directly
type staticRule struct {
	name     string
	passed   bool
	severity Severity
	score    int
	err      error
	panics   bool
}

func (r *staticRule) Name() string { return r.name }

func (r *staticRule) Evaluate(_ context.Context, _ PaymentContext) (RuleResult, error) {
	if r.panics {
		panic("boom")
	}
	if r.err != nil {
		return RuleResult{}, r.err
	}
	return RuleResult{
		RuleName: r.name,
		Passed:   r.passed,
		Severity: r.severity,
		Score:    r.score,
	}, nil
}

func cleanPayment() PaymentContext {
	return PaymentContext{
		PayerEmail:     "resident@example.com",
		Amount:         decimal.NewFromFloat(850.00),
		Currency:       "USD",
		ExpectedRegion: "US",
		PaymentRegion:  "US",
		// Tuesday 14:00, well inside business hours
		AttemptedAt:    time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
		RecentAttempts: 1,
		RecentWindow:   time.Hour,
	}
}

// =============================================================================
// Aggregation and Recommendation Tests
// =============================================================================

func TestScorer_AllRulesPass_Allow(t *testing.T) {
	scorer := NewScorer(DefaultRules(), zap.NewNop())

	assessment := scorer.Assess(context.Background(), cleanPayment())

	assert.Equal(t, RecommendationAllow, assessment.Recommendation)
	assert.Equal(t, 0, assessment.RulesFailed)
	assert.True(t, assessment.Score.IsZero())
	assert.Equal(t, len(DefaultRules()), assessment.RulesEvaluated)
}

func TestScorer_SeverityMultipliers(t *testing.T) {
	tests := []struct {
		severity Severity
		score    int
		want     string
	}{
		{SeverityLow, 40, "20"},       // 40 x 0.5
		{SeverityMedium, 40, "40"},    // 40 x 1.0
		{SeverityHigh, 40, "80"},      // 40 x 2.0
		{SeverityCritical, 40, "100"}, // 40 x 5.0, capped
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			scorer := NewScorer([]Rule{
				&staticRule{name: "r", passed: false, severity: tt.severity, score: tt.score},
			}, zap.NewNop())

			assessment := scorer.Assess(context.Background(), cleanPayment())
			assert.Equal(t, tt.want, assessment.Score.String())
		})
	}
}

func TestScorer_RecommendationBands(t *testing.T) {
	build := func(severity Severity, score int) *Scorer {
		return NewScorer([]Rule{
			&staticRule{name: "r", passed: false, severity: severity, score: score},
		}, zap.NewNop())
	}

	// 30 x 1.0 = 30 -> below review threshold, still ALLOW
	low := build(SeverityMedium, 30).Assess(context.Background(), cleanPayment())
	assert.Equal(t, RecommendationAllow, low.Recommendation)

	// 50 x 1.0 = 50 -> REVIEW
	mid := build(SeverityMedium, 50).Assess(context.Background(), cleanPayment())
	assert.Equal(t, RecommendationReview, mid.Recommendation)

	// 40 x 2.0 = 80 -> BLOCK
	high := build(SeverityHigh, 40).Assess(context.Background(), cleanPayment())
	assert.Equal(t, RecommendationBlock, high.Recommendation)
}

func TestScorer_ScoreCappedAt100(t *testing.T) {
	scorer := NewScorer([]Rule{
		&staticRule{name: "a", passed: false, severity: SeverityCritical, score: 90},
		&staticRule{name: "b", passed: false, severity: SeverityCritical, score: 90},
	}, zap.NewNop())

	assessment := scorer.Assess(context.Background(), cleanPayment())
	assert.Equal(t, "100", assessment.Score.String())
	assert.Equal(t, RecommendationBlock, assessment.Recommendation)
}

// =============================================================================
// Rule Containment Tests
// =============================================================================

func TestScorer_RuleErrorContained(t *testing.T) {
	scorer := NewScorer([]Rule{
		&staticRule{name: "broken", err: errors.New("upstream timeout")},
		&staticRule{name: "ok", passed: false, severity: SeverityMedium, score: 60},
	}, zap.NewNop())

	assessment := scorer.Assess(context.Background(), cleanPayment())

	// The broken rule is skipped, the healthy rule still counts
	assert.Equal(t, 1, assessment.RulesEvaluated)
	assert.Equal(t, 1, assessment.RulesFailed)
	assert.Equal(t, "60", assessment.Score.String())
}

func TestScorer_RulePanicContained(t *testing.T) {
	scorer := NewScorer([]Rule{
		&staticRule{name: "panicky", panics: true},
		&staticRule{name: "ok", passed: true, severity: SeverityLow},
	}, zap.NewNop())

	assessment := scorer.Assess(context.Background(), cleanPayment())
	assert.Equal(t, 1, assessment.RulesEvaluated)
	assert.Equal(t, RecommendationAllow, assessment.Recommendation)
}

// =============================================================================
// Individual Rule Tests
// =============================================================================

func TestAmountThresholdRule(t *testing.T) {
	rule := &AmountThresholdRule{Threshold: decimal.NewFromInt(10000)}
	payment := cleanPayment()

	result, err := rule.Evaluate(context.Background(), payment)
	assert.NoError(t, err)
	assert.True(t, result.Passed)

	payment.Amount = decimal.NewFromInt(15000)
	result, err = rule.Evaluate(context.Background(), payment)
	assert.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, SeverityHigh, result.Severity)
}

func TestVelocityRule(t *testing.T) {
	rule := &VelocityRule{MaxAttempts: 5}
	payment := cleanPayment()
	payment.RecentAttempts = 9

	result, err := rule.Evaluate(context.Background(), payment)
	assert.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestUnusualTimeRule(t *testing.T) {
	rule := &UnusualTimeRule{}
	payment := cleanPayment()

	// Tuesday afternoon passes
	result, _ := rule.Evaluate(context.Background(), payment)
	assert.True(t, result.Passed)

	// 03:00 fails
	payment.AttemptedAt = time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC)
	result, _ = rule.Evaluate(context.Background(), payment)
	assert.False(t, result.Passed)

	// Saturday afternoon fails
	payment.AttemptedAt = time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC)
	result, _ = rule.Evaluate(context.Background(), payment)
	assert.False(t, result.Passed)
}

func TestDisposableEmailRule(t *testing.T) {
	rule := &DisposableEmailRule{}
	payment := cleanPayment()

	result, _ := rule.Evaluate(context.Background(), payment)
	assert.True(t, result.Passed)

	payment.PayerEmail = "someone@Mailinator.com"
	result, _ = rule.Evaluate(context.Background(), payment)
	assert.False(t, result.Passed)
	assert.Equal(t, SeverityCritical, result.Severity)
}

func TestRegionMismatchRule(t *testing.T) {
	rule := &RegionMismatchRule{}
	payment := cleanPayment()
	payment.PaymentRegion = "RU"

	result, _ := rule.Evaluate(context.Background(), payment)
	assert.False(t, result.Passed)

	// Missing region data is not a mismatch
	payment.PaymentRegion = ""
	result, _ = rule.Evaluate(context.Background(), payment)
	assert.True(t, result.Passed)
}

func TestStubRulesAlwaysPass(t *testing.T) {
	stubs := []Rule{
		NewAVSCheckRule(),
		NewDeviceFingerprintRule(),
		NewIPGeolocationRule(),
		NewBlacklistRule(),
	}

	for _, rule := range stubs {
		result, err := rule.Evaluate(context.Background(), cleanPayment())
		assert.NoError(t, err, rule.Name())
		assert.True(t, result.Passed, rule.Name())
	}
}

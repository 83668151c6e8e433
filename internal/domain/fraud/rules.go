package fraud

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountThresholdRule flags unusually large payments
type AmountThresholdRule struct {
	Threshold decimal.Decimal
}

// Name returns the rule name
func (r *AmountThresholdRule) Name() string { return "amount_threshold" }

// Evaluate flags payments above the configured threshold
func (r *AmountThresholdRule) Evaluate(_ context.Context, payment PaymentContext) (RuleResult, error) {
	result := RuleResult{RuleName: r.Name(), Passed: true, Severity: SeverityHigh}
	if payment.Amount.GreaterThan(r.Threshold) {
		result.Passed = false
		result.Score = 40
		result.Detail = fmt.Sprintf("amount %s exceeds threshold %s", payment.Amount, r.Threshold)
	}
	return result, nil
}

// VelocityRule flags rapid successive payment attempts by the same actor
type VelocityRule struct {
	MaxAttempts int
}

// Name returns the rule name
func (r *VelocityRule) Name() string { return "velocity" }

// Evaluate flags actors exceeding the attempt ceiling within the window
func (r *VelocityRule) Evaluate(_ context.Context, payment PaymentContext) (RuleResult, error) {
	result := RuleResult{RuleName: r.Name(), Passed: true, Severity: SeverityHigh}
	if payment.RecentAttempts > r.MaxAttempts {
		result.Passed = false
		result.Score = 50
		result.Detail = fmt.Sprintf("%d attempts within %s", payment.RecentAttempts, payment.RecentWindow)
	}
	return result, nil
}

// UnusualTimeRule flags payments made in the small hours or on weekends
type UnusualTimeRule struct{}

// Name returns the rule name
func (r *UnusualTimeRule) Name() string { return "unusual_time" }

// Evaluate flags attempts between 01:00 and 05:00 or on weekends
func (r *UnusualTimeRule) Evaluate(_ context.Context, payment PaymentContext) (RuleResult, error) {
	result := RuleResult{RuleName: r.Name(), Passed: true, Severity: SeverityLow}
	hour := payment.AttemptedAt.Hour()
	weekday := payment.AttemptedAt.Weekday()
	nightTime := hour >= 1 && hour < 5
	weekend := weekday == 0 || weekday == 6
	if nightTime || weekend {
		result.Passed = false
		result.Score = 20
		result.Detail = fmt.Sprintf("attempted at %s", payment.AttemptedAt.Format("Mon 15:04"))
	}
	return result, nil
}

// disposableDomains is the blocklist of throwaway email providers
var disposableDomains = map[string]bool{
	"mailinator.com":     true,
	"guerrillamail.com":  true,
	"10minutemail.com":   true,
	"tempmail.com":       true,
	"throwawaymail.com":  true,
	"yopmail.com":        true,
	"sharklasers.com":    true,
	"getnada.com":        true,
	"trashmail.com":      true,
	"fakeinbox.com":      true,
	"maildrop.cc":        true,
	"dispostable.com":    true,
	"mintemail.com":      true,
	"mytemp.email":       true,
	"temp-mail.org":      true,
	"emailondeck.com":    true,
	"spamgourmet.com":    true,
	"mailnesia.com":      true,
	"tempinbox.com":      true,
	"burnermail.io":      true,
}

// DisposableEmailRule flags payments from throwaway email addresses
type DisposableEmailRule struct{}

// Name returns the rule name
func (r *DisposableEmailRule) Name() string { return "disposable_email" }

// Evaluate flags payer emails hosted on known disposable domains
func (r *DisposableEmailRule) Evaluate(_ context.Context, payment PaymentContext) (RuleResult, error) {
	result := RuleResult{RuleName: r.Name(), Passed: true, Severity: SeverityCritical}
	at := strings.LastIndex(payment.PayerEmail, "@")
	if at < 0 {
		return result, nil
	}
	domain := strings.ToLower(payment.PayerEmail[at+1:])
	if disposableDomains[domain] {
		result.Passed = false
		result.Score = 30
		result.Detail = fmt.Sprintf("payer email on disposable domain %s", domain)
	}
	return result, nil
}

// RegionMismatchRule flags payments whose origin region differs from the
// region the organization normally transacts in
type RegionMismatchRule struct{}

// Name returns the rule name
func (r *RegionMismatchRule) Name() string { return "region_mismatch" }

// Evaluate flags mismatched payment regions
func (r *RegionMismatchRule) Evaluate(_ context.Context, payment PaymentContext) (RuleResult, error) {
	result := RuleResult{RuleName: r.Name(), Passed: true, Severity: SeverityMedium}
	if payment.ExpectedRegion != "" && payment.PaymentRegion != "" &&
		!strings.EqualFold(payment.ExpectedRegion, payment.PaymentRegion) {
		result.Passed = false
		result.Score = 35
		result.Detail = fmt.Sprintf("payment from %s, expected %s", payment.PaymentRegion, payment.ExpectedRegion)
	}
	return result, nil
}

// stubRule always passes. These signals need external integrations that are
// not wired up yet; the rules stay registered so enabling them later is a
// one-line change, and so the rule list documents the intended coverage.
type stubRule struct {
	name     string
	severity Severity
}

// Name returns the rule name
func (r *stubRule) Name() string { return r.name }

// Evaluate always passes; the backing integration is not connected
func (r *stubRule) Evaluate(_ context.Context, _ PaymentContext) (RuleResult, error) {
	return RuleResult{RuleName: r.name, Passed: true, Severity: r.severity}, nil
}

// NewAVSCheckRule is pending payment-gateway AVS integration
func NewAVSCheckRule() Rule { return &stubRule{name: "avs_check", severity: SeverityHigh} }

// NewDeviceFingerprintRule is pending client SDK integration
func NewDeviceFingerprintRule() Rule {
	return &stubRule{name: "device_fingerprint", severity: SeverityMedium}
}

// NewIPGeolocationRule is pending geolocation provider integration
func NewIPGeolocationRule() Rule { return &stubRule{name: "ip_geolocation", severity: SeverityMedium} }

// NewBlacklistRule is pending the shared blacklist service
func NewBlacklistRule() Rule { return &stubRule{name: "blacklist", severity: SeverityCritical} }

// DefaultRules returns the standard rule set in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		&AmountThresholdRule{Threshold: decimal.NewFromInt(10000)},
		&VelocityRule{MaxAttempts: 5},
		&UnusualTimeRule{},
		&DisposableEmailRule{},
		&RegionMismatchRule{},
		NewAVSCheckRule(),
		NewDeviceFingerprintRule(),
		NewIPGeolocationRule(),
		NewBlacklistRule(),
	}
}

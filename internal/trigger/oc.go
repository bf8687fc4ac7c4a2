package trigger

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// OC is an overcollateralization trigger: collateral par over liability
// balance. On failure the same computed deficit is owed independently to
// an interest-cure pool and a principal-cure pool, because the two pools
// draw from different cash buckets. That mirrors documented legacy
// behavior and is preserved as-is.
type OC struct {
	state

	interestCureOwed  decimal.Decimal
	principalCureOwed decimal.Decimal
	interestCurePaid  decimal.Decimal
	principalCurePaid decimal.Decimal

	priorInterestCurePaid  decimal.Decimal
	priorPrincipalCurePaid decimal.Decimal
}

// NewOC creates an OC trigger in Ready state at period 1.
func NewOC(name string, threshold decimal.Decimal, horizon int) (*OC, error) {
	if name == "" {
		return nil, eris.New("trigger: OC name is required")
	}
	if !threshold.IsPositive() {
		return nil, eris.Errorf("trigger %s: threshold must be positive, got %s", name, threshold)
	}
	if horizon <= 0 {
		return nil, eris.Errorf("trigger %s: horizon must be positive, got %d", name, horizon)
	}
	return &OC{state: state{name: name, threshold: threshold, horizon: horizon, period: 1}}, nil
}

// Name returns the trigger's configured name.
func (t *OC) Name() string { return t.name }

// Passing reports whether the most recent Calc passed.
func (t *OC) Passing() bool {
	t.ensureCalced("Passing")
	return t.passing
}

// Calc runs the coverage test for the current period. A denominator of
// zero auto-passes with no cure owed (legacy rule); a negative denominator
// is a data-integrity fault.
func (t *OC) Calc(numerator, denominator decimal.Decimal) error {
	t.ensureReady()
	if t.calced {
		panic(fmt.Sprintf("trigger %s: Calc called twice in period %d", t.name, t.period))
	}
	if denominator.IsNegative() {
		return &DenominatorError{Trigger: t.name, Period: t.period, Denominator: denominator}
	}

	t.numerator = numerator
	t.denominator = denominator
	t.interestCurePaid = decimal.Zero
	t.principalCurePaid = decimal.Zero

	if denominator.IsZero() {
		t.ratio = decimal.Zero
		t.passing = true
		t.interestCureOwed = decimal.Zero
		t.principalCureOwed = decimal.Zero
		t.calced = true
		return nil
	}

	t.ratio = numerator.Div(denominator)
	t.passing = t.ratio.GreaterThan(t.threshold)

	deficit := decimal.Zero
	if !t.passing {
		deficit = decimal.Max(decimal.Zero, t.threshold.Sub(t.ratio).Mul(denominator))
	}
	t.interestCureOwed = deficit
	t.principalCureOwed = deficit
	t.calced = true
	return nil
}

// InterestCureDue returns the open interest-cure amount for this period.
func (t *OC) InterestCureDue() decimal.Decimal {
	t.ensureCalced("InterestCureDue")
	return t.interestCureOwed.Sub(t.interestCurePaid)
}

// PrincipalCureDue returns the open principal-cure amount for this period.
func (t *OC) PrincipalCureDue() decimal.Decimal {
	t.ensureCalced("PrincipalCureDue")
	return t.principalCureOwed.Sub(t.principalCurePaid)
}

// PayInterestCure applies amount against the interest-cure pool and
// returns (applied, remainder).
func (t *OC) PayInterestCure(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	t.ensureCalced("PayInterestCure")
	applied, remainder := payInto(amount, t.interestCureOwed, t.interestCurePaid)
	t.interestCurePaid = t.interestCurePaid.Add(applied)
	return applied, remainder
}

// PayPrincipalCure applies amount against the principal-cure pool and
// returns (applied, remainder).
func (t *OC) PayPrincipalCure(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	t.ensureCalced("PayPrincipalCure")
	applied, remainder := payInto(amount, t.principalCureOwed, t.principalCurePaid)
	t.principalCurePaid = t.principalCurePaid.Add(applied)
	return applied, remainder
}

// Rollforward folds this period's cure payments into the cumulative prior
// totals and advances the period pointer.
func (t *OC) Rollforward() {
	t.ensureCalced("Rollforward")
	t.priorInterestCurePaid = t.priorInterestCurePaid.Add(t.interestCurePaid)
	t.priorPrincipalCurePaid = t.priorPrincipalCurePaid.Add(t.principalCurePaid)
	t.interestCureOwed = decimal.Zero
	t.principalCureOwed = decimal.Zero
	t.interestCurePaid = decimal.Zero
	t.principalCurePaid = decimal.Zero
	t.advance()
}

// Period returns the current 1-based period pointer.
func (t *OC) Period() int { return t.period }

// Snapshot returns the reporting view of the trigger after Calc. Cure
// figures sum the interest and principal pools.
func (t *OC) Snapshot() model.TriggerSnapshot {
	return model.TriggerSnapshot{
		Name:          t.name,
		Kind:          "oc",
		Threshold:     t.threshold,
		Numerator:     t.numerator,
		Denominator:   t.denominator,
		Ratio:         t.ratio,
		Passing:       t.passing,
		CureOwed:      t.interestCureOwed.Add(t.principalCureOwed),
		CurePaid:      t.interestCurePaid.Add(t.principalCurePaid),
		PriorCurePaid: t.priorInterestCurePaid.Add(t.priorPrincipalCurePaid),
	}
}

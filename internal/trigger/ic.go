package trigger

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// IC is an interest coverage trigger: interest collections over interest
// due. It has a single cure pool; on failure the cure owed scales the
// referenced liability balance by the coverage shortfall.
type IC struct {
	state

	liabilityBalance decimal.Decimal
	cureOwed         decimal.Decimal
	curePaid         decimal.Decimal
	priorCurePaid    decimal.Decimal
}

// NewIC creates an IC trigger in Ready state at period 1.
func NewIC(name string, threshold decimal.Decimal, horizon int) (*IC, error) {
	if name == "" {
		return nil, eris.New("trigger: IC name is required")
	}
	if !threshold.IsPositive() {
		return nil, eris.Errorf("trigger %s: threshold must be positive, got %s", name, threshold)
	}
	if horizon <= 0 {
		return nil, eris.Errorf("trigger %s: horizon must be positive, got %d", name, horizon)
	}
	return &IC{state: state{name: name, threshold: threshold, horizon: horizon, period: 1}}, nil
}

// Name returns the trigger's configured name.
func (t *IC) Name() string { return t.name }

// Passing reports whether the most recent Calc passed.
func (t *IC) Passing() bool {
	t.ensureCalced("Passing")
	return t.passing
}

// Calc runs the coverage test for the current period. liabilityBalance is
// the outstanding balance of the tranche class the trigger protects; the
// cure owed on failure is max(0, (1 - ratio/threshold) * liabilityBalance).
// A denominator of zero auto-passes; a negative one is a data-integrity
// fault.
func (t *IC) Calc(numerator, denominator, liabilityBalance decimal.Decimal) error {
	t.ensureReady()
	if t.calced {
		panic(fmt.Sprintf("trigger %s: Calc called twice in period %d", t.name, t.period))
	}
	if denominator.IsNegative() {
		return &DenominatorError{Trigger: t.name, Period: t.period, Denominator: denominator}
	}

	t.numerator = numerator
	t.denominator = denominator
	t.liabilityBalance = liabilityBalance
	t.curePaid = decimal.Zero

	if denominator.IsZero() {
		t.ratio = decimal.Zero
		t.passing = true
		t.cureOwed = decimal.Zero
		t.calced = true
		return nil
	}

	t.ratio = numerator.Div(denominator)
	t.passing = t.ratio.GreaterThan(t.threshold)

	t.cureOwed = decimal.Zero
	if !t.passing {
		shortfall := decimal.NewFromInt(1).Sub(t.ratio.Div(t.threshold))
		t.cureOwed = decimal.Max(decimal.Zero, shortfall.Mul(liabilityBalance))
	}
	t.calced = true
	return nil
}

// CureDue returns the open cure amount for this period.
func (t *IC) CureDue() decimal.Decimal {
	t.ensureCalced("CureDue")
	return t.cureOwed.Sub(t.curePaid)
}

// PayCure applies amount against the cure pool and returns
// (applied, remainder).
func (t *IC) PayCure(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	t.ensureCalced("PayCure")
	applied, remainder := payInto(amount, t.cureOwed, t.curePaid)
	t.curePaid = t.curePaid.Add(applied)
	return applied, remainder
}

// Rollforward folds this period's cure payments into the cumulative prior
// total and advances the period pointer.
func (t *IC) Rollforward() {
	t.ensureCalced("Rollforward")
	t.priorCurePaid = t.priorCurePaid.Add(t.curePaid)
	t.cureOwed = decimal.Zero
	t.curePaid = decimal.Zero
	t.advance()
}

// Period returns the current 1-based period pointer.
func (t *IC) Period() int { return t.period }

// Snapshot returns the reporting view of the trigger after Calc.
func (t *IC) Snapshot() model.TriggerSnapshot {
	return model.TriggerSnapshot{
		Name:          t.name,
		Kind:          "ic",
		Threshold:     t.threshold,
		Numerator:     t.numerator,
		Denominator:   t.denominator,
		Ratio:         t.ratio,
		Passing:       t.passing,
		CureOwed:      t.cureOwed,
		CurePaid:      t.curePaid,
		PriorCurePaid: t.priorCurePaid,
	}
}

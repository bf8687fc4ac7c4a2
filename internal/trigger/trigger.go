// Package trigger implements the coverage tests that gate subordinate
// payments: overcollateralization (OC) and interest coverage (IC). Each
// trigger computes a ratio per period, tracks the cure amount owed when
// the test fails, and carries cumulative cure payments across periods.
package trigger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DenominatorError reports a negative denominator supplied to a trigger's
// Calc. A zero denominator auto-passes by legacy rule; a negative one is
// malformed upstream data and flags the deal for manual review.
type DenominatorError struct {
	Trigger     string
	Period      int
	Denominator decimal.Decimal
}

func (e *DenominatorError) Error() string {
	return fmt.Sprintf("trigger %s: negative denominator %s in period %d", e.Trigger, e.Denominator, e.Period)
}

// state is the shared period/lifecycle bookkeeping for both trigger kinds.
type state struct {
	name      string
	threshold decimal.Decimal
	horizon   int
	period    int
	calced    bool

	numerator   decimal.Decimal
	denominator decimal.Decimal
	ratio       decimal.Decimal
	passing     bool
}

func (s *state) ensureReady() {
	if s.horizon == 0 {
		panic("trigger: used before setup")
	}
	if s.period > s.horizon {
		panic(fmt.Sprintf("trigger %s: period %d past provisioned horizon %d", s.name, s.period, s.horizon))
	}
}

func (s *state) ensureCalced(op string) {
	s.ensureReady()
	if !s.calced {
		panic(fmt.Sprintf("trigger %s: %s called before Calc in period %d", s.name, op, s.period))
	}
}

func (s *state) advance() {
	if s.period >= s.horizon {
		panic(fmt.Sprintf("trigger %s: rollforward past provisioned horizon %d", s.name, s.horizon))
	}
	s.calced = false
	s.period++
}

// payInto applies amount against the open portion of a cure pool and
// returns (applied, remainder). Pure with respect to its inputs; the
// caller commits applied into the pool's paid total.
func payInto(amount, owed, paid decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	open := owed.Sub(paid)
	if open.IsNegative() {
		open = decimal.Zero
	}
	applied := decimal.Min(amount, open)
	return applied, amount.Sub(applied)
}

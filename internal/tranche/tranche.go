// Package tranche models a class of liability notes: coupon accrual on
// the outstanding balance, interest and principal payment, and deferral
// of unpaid interest when the class is blocked by a failing trigger.
package tranche

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/schedule"
)

// Config declares one tranche at deal setup. Seniority 1 is the most
// senior class; the waterfall step ordering is built from it.
type Config struct {
	Name           string
	Seniority      int
	CouponRate     decimal.Decimal
	InitialBalance decimal.Decimal
	Convention     schedule.Convention
	Horizon        int
}

// Tranche tracks one liability class across the life of a deal. Owned by
// exactly one deal's component tree; not safe for concurrent use.
type Tranche struct {
	cfg Config

	period int
	calced bool

	balance          decimal.Decimal // beginning balance of the current period
	deferredInterest decimal.Decimal // unpaid coupon carried from prior periods
	interestDue      decimal.Decimal // current coupon + carried deferral
	interestPaid     decimal.Decimal
	principalPaid    decimal.Decimal
}

// New creates a tranche in Ready state at period 1.
func New(cfg Config) (*Tranche, error) {
	if cfg.Name == "" {
		return nil, eris.New("tranche: name is required")
	}
	if cfg.Horizon <= 0 {
		return nil, eris.Errorf("tranche %s: horizon must be positive, got %d", cfg.Name, cfg.Horizon)
	}
	if cfg.CouponRate.IsNegative() {
		return nil, eris.Errorf("tranche %s: coupon must be non-negative", cfg.Name)
	}
	if cfg.InitialBalance.IsNegative() {
		return nil, eris.Errorf("tranche %s: balance must be non-negative", cfg.Name)
	}
	return &Tranche{cfg: cfg, period: 1, balance: cfg.InitialBalance}, nil
}

// Name returns the tranche's configured name.
func (tr *Tranche) Name() string { return tr.cfg.Name }

// Seniority returns the tranche's payment rank (1 = most senior).
func (tr *Tranche) Seniority() int { return tr.cfg.Seniority }

// Balance returns the outstanding balance net of principal paid this
// period.
func (tr *Tranche) Balance() decimal.Decimal {
	return tr.balance.Sub(tr.principalPaid)
}

// Calc accrues the period's coupon on the beginning balance. Carried
// deferred interest is added to the amount due.
func (tr *Tranche) Calc(periodBegin, periodEnd time.Time) {
	tr.ensureReady()
	if tr.calced {
		panic(fmt.Sprintf("tranche %s: Calc called twice in period %d", tr.cfg.Name, tr.period))
	}
	dcf := tr.cfg.Convention.Fraction(periodBegin, periodEnd)
	tr.interestDue = tr.balance.Mul(tr.cfg.CouponRate).Mul(dcf).Add(tr.deferredInterest)
	tr.interestPaid = decimal.Zero
	tr.principalPaid = decimal.Zero
	tr.calced = true
}

// InterestDue returns the unpaid portion of this period's interest.
func (tr *Tranche) InterestDue() decimal.Decimal {
	tr.ensureCalced("InterestDue")
	return tr.interestDue.Sub(tr.interestPaid)
}

// PrincipalDue returns the outstanding balance still to be repaid.
func (tr *Tranche) PrincipalDue() decimal.Decimal {
	tr.ensureCalced("PrincipalDue")
	return tr.Balance()
}

// PayInterest applies amount against unpaid interest and returns
// (applied, remainder).
func (tr *Tranche) PayInterest(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	tr.ensureCalced("PayInterest")
	applied := decimal.Min(amount, tr.InterestDue())
	tr.interestPaid = tr.interestPaid.Add(applied)
	return applied, amount.Sub(applied)
}

// PayPrincipal applies amount against the outstanding balance, clamped so
// the balance never goes negative, and returns (applied, remainder).
func (tr *Tranche) PayPrincipal(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	tr.ensureCalced("PayPrincipal")
	applied := decimal.Min(amount, tr.Balance())
	tr.principalPaid = tr.principalPaid.Add(applied)
	return applied, amount.Sub(applied)
}

// Rollforward commits the period: unpaid interest defers, principal paid
// reduces the balance, and the period pointer advances.
func (tr *Tranche) Rollforward() {
	tr.ensureCalced("Rollforward")
	if tr.period >= tr.cfg.Horizon {
		panic(fmt.Sprintf("tranche %s: rollforward past provisioned horizon %d", tr.cfg.Name, tr.cfg.Horizon))
	}
	tr.deferredInterest = tr.interestDue.Sub(tr.interestPaid)
	tr.balance = tr.balance.Sub(tr.principalPaid)
	tr.interestDue = decimal.Zero
	tr.interestPaid = decimal.Zero
	tr.principalPaid = decimal.Zero
	tr.calced = false
	tr.period++
}

// Period returns the current 1-based period pointer.
func (tr *Tranche) Period() int { return tr.period }

// Snapshot returns the reporting view of the current period.
func (tr *Tranche) Snapshot() model.TrancheSnapshot {
	return model.TrancheSnapshot{
		Name:             tr.cfg.Name,
		BeginningBalance: tr.balance,
		InterestDue:      tr.interestDue,
		InterestPaid:     tr.interestPaid,
		DeferredInterest: tr.deferredInterest,
		PrincipalPaid:    tr.principalPaid,
		EndingBalance:    tr.balance.Sub(tr.principalPaid),
	}
}

func (tr *Tranche) ensureReady() {
	if tr.cfg.Horizon == 0 {
		panic("tranche: used before setup")
	}
	if tr.period > tr.cfg.Horizon {
		panic(fmt.Sprintf("tranche %s: period %d past provisioned horizon %d", tr.cfg.Name, tr.period, tr.cfg.Horizon))
	}
}

func (tr *Tranche) ensureCalced(op string) {
	tr.ensureReady()
	if !tr.calced {
		panic(fmt.Sprintf("tranche %s: %s called before Calc in period %d", tr.cfg.Name, op, tr.period))
	}
}

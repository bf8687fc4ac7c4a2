// Package fee implements per-period fee accrual and payment tracking.
// A fee accrues on a configured basis each period, is paid (possibly
// partially) by the waterfall, and carries any unpaid balance forward.
package fee

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/schedule"
)

// BasisType selects what balance a rate-based fee accrues on.
type BasisType string

const (
	// BasisBeginning accrues on the period's beginning collateral balance.
	BasisBeginning BasisType = "beginning"
	// BasisAverage accrues on the average of beginning and ending balance.
	BasisAverage BasisType = "average"
	// BasisFixed ignores the balance; only the fixed amount accrues.
	BasisFixed BasisType = "fixed"
)

// ParseBasisType validates a basis string from deal configuration.
func ParseBasisType(s string) (BasisType, error) {
	switch BasisType(s) {
	case BasisBeginning, BasisAverage, BasisFixed:
		return BasisType(s), nil
	default:
		return "", eris.Errorf("fee: unknown basis type %q", s)
	}
}

// Config declares one fee at deal setup.
type Config struct {
	Name             string
	Basis            BasisType
	AnnualRate       decimal.Decimal
	FixedAmount      decimal.Decimal
	InterestOnUnpaid bool
	Spread           decimal.Decimal // over the index rate, for interest on unpaid balances
	Convention       schedule.Convention
	InitialBasis     decimal.Decimal // collateral balance at deal setup
	Horizon          int             // provisioned period count
}

// Accrual tracks one fee's ledger across the life of a deal. It is owned
// by exactly one deal's component tree and is not safe for concurrent use.
type Accrual struct {
	cfg Config

	period int
	calced bool

	beginningBasis decimal.Decimal // collateral basis carried from prior period
	endingBasis    decimal.Decimal

	beginningBalance decimal.Decimal // unpaid fee balance at period start
	accrued          decimal.Decimal
	paid             decimal.Decimal
	endingBalance    decimal.Decimal
}

// New creates a fee accrual in Ready state at period 1.
func New(cfg Config) (*Accrual, error) {
	if cfg.Name == "" {
		return nil, eris.New("fee: name is required")
	}
	if cfg.Horizon <= 0 {
		return nil, eris.Errorf("fee %s: horizon must be positive, got %d", cfg.Name, cfg.Horizon)
	}
	if cfg.AnnualRate.IsNegative() || cfg.FixedAmount.IsNegative() {
		return nil, eris.Errorf("fee %s: rate and fixed amount must be non-negative", cfg.Name)
	}
	return &Accrual{cfg: cfg, period: 1, beginningBasis: cfg.InitialBasis}, nil
}

// Name returns the fee's configured name.
func (a *Accrual) Name() string { return a.cfg.Name }

// Calc accrues the fee for the current period. endingBasis is the period's
// ending collateral balance; indexRate is the current floating index for
// interest on unpaid balances. Calling Calc on an unconfigured accrual or
// past the provisioned horizon is a fatal precondition violation.
func (a *Accrual) Calc(periodBegin, periodEnd time.Time, endingBasis, indexRate decimal.Decimal) {
	a.ensureReady()
	if a.calced {
		panic(fmt.Sprintf("fee %s: Calc called twice in period %d", a.cfg.Name, a.period))
	}

	dcf := a.cfg.Convention.Fraction(periodBegin, periodEnd)

	var basis decimal.Decimal
	switch a.cfg.Basis {
	case BasisBeginning:
		basis = a.beginningBasis
	case BasisAverage:
		basis = a.beginningBasis.Add(endingBasis).Div(decimal.NewFromInt(2))
	case BasisFixed:
		basis = decimal.Zero
	}

	a.accrued = basis.Mul(a.cfg.AnnualRate).Add(a.cfg.FixedAmount).Mul(dcf)

	if a.cfg.InterestOnUnpaid && a.beginningBalance.IsPositive() {
		a.accrued = a.accrued.Add(a.beginningBalance.Mul(indexRate.Add(a.cfg.Spread)).Mul(dcf))
	}

	a.paid = decimal.Zero
	a.endingBasis = endingBasis
	a.calced = true
}

// Due returns the amount currently payable: carried balance plus this
// period's accrual, net of what has already been paid this period.
func (a *Accrual) Due() decimal.Decimal {
	a.ensureCalced("Due")
	return a.beginningBalance.Add(a.accrued).Sub(a.paid)
}

// Pay applies up to the due amount and returns the portion consumed and
// the unconsumed remainder.
func (a *Accrual) Pay(amount decimal.Decimal) (applied, remainder decimal.Decimal) {
	a.ensureCalced("Pay")
	due := a.Due()
	applied = decimal.Min(amount, due)
	a.paid = a.paid.Add(applied)
	return applied, amount.Sub(applied)
}

// Rollforward commits the period's ending balance as the next period's
// beginning balance and advances the period pointer.
func (a *Accrual) Rollforward() {
	a.ensureCalced("Rollforward")
	if a.period >= a.cfg.Horizon {
		panic(fmt.Sprintf("fee %s: rollforward past provisioned horizon %d", a.cfg.Name, a.cfg.Horizon))
	}
	a.endingBalance = a.beginningBalance.Add(a.accrued).Sub(a.paid)
	a.beginningBalance = a.endingBalance
	a.beginningBasis = a.endingBasis
	a.accrued = decimal.Zero
	a.paid = decimal.Zero
	a.calced = false
	a.period++
}

// Period returns the current 1-based period pointer.
func (a *Accrual) Period() int { return a.period }

// Snapshot returns the reporting view of the current period's ledger.
func (a *Accrual) Snapshot() model.FeeSnapshot {
	return model.FeeSnapshot{
		Name:             a.cfg.Name,
		BeginningBalance: a.beginningBalance,
		Accrued:          a.accrued,
		Paid:             a.paid,
		EndingBalance:    a.beginningBalance.Add(a.accrued).Sub(a.paid),
	}
}

func (a *Accrual) ensureReady() {
	if a.cfg.Horizon == 0 {
		panic("fee: used before setup")
	}
	if a.period > a.cfg.Horizon {
		panic(fmt.Sprintf("fee %s: period %d past provisioned horizon %d", a.cfg.Name, a.period, a.cfg.Horizon))
	}
}

func (a *Accrual) ensureCalced(op string) {
	a.ensureReady()
	if !a.calced {
		panic(fmt.Sprintf("fee %s: %s called before Calc in period %d", a.cfg.Name, op, a.period))
	}
}

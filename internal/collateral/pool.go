// Package collateral carries the per-period inputs supplied by the
// collateral pool collaborator: aggregated collections and balances keyed
// by period ordinal. The engine consumes these; per-asset amortization
// happens upstream.
package collateral

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// PeriodInput is one period's aggregated collateral figures.
type PeriodInput struct {
	Period               int             `json:"period"`
	InterestCollections  decimal.Decimal `json:"interest_collections"`
	PrincipalCollections decimal.Decimal `json:"principal_collections"`
	DefaultedBalance     decimal.Decimal `json:"defaulted_balance"`
	RecoveryAmount       decimal.Decimal `json:"recovery_amount"`
	CollateralParBalance decimal.Decimal `json:"collateral_par_balance"`
}

// Pool holds the full horizon of period inputs for one deal.
type Pool struct {
	inputs map[int]PeriodInput
}

// NewPool validates and indexes period inputs by ordinal.
func NewPool(inputs []PeriodInput) (*Pool, error) {
	m := make(map[int]PeriodInput, len(inputs))
	for _, in := range inputs {
		if in.Period < 1 {
			return nil, eris.Errorf("collateral: invalid period ordinal %d", in.Period)
		}
		if _, dup := m[in.Period]; dup {
			return nil, eris.Errorf("collateral: duplicate period %d", in.Period)
		}
		m[in.Period] = in
	}
	return &Pool{inputs: m}, nil
}

// Period returns the inputs for a period ordinal. A missing period is a
// configuration error surfaced to the caller, not a panic: the pool comes
// from external data.
func (p *Pool) Period(ordinal int) (PeriodInput, error) {
	in, ok := p.inputs[ordinal]
	if !ok {
		return PeriodInput{}, eris.Errorf("collateral: no inputs for period %d", ordinal)
	}
	return in, nil
}

// Count returns the number of periods with inputs.
func (p *Pool) Count() int { return len(p.inputs) }

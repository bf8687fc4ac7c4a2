// Package waterfall executes a deal's priority-ordered payment steps
// against the period's interest and principal proceeds. Cash conservation
// is enforced per bucket: every unit of cash that enters a period is
// either recorded as a payment or reported as leftover.
package waterfall

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/fee"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/tranche"
	"github.com/sells-group/dealflow-cli/internal/trigger"
)

// StepKind identifies what a waterfall step pays.
type StepKind string

const (
	StepFee              StepKind = "fee"
	StepOCInterestCure   StepKind = "oc_interest_cure"
	StepOCPrincipalCure  StepKind = "oc_principal_cure"
	StepICCure           StepKind = "ic_cure"
	StepTrancheInterest  StepKind = "tranche_interest"
	StepTranchePrincipal StepKind = "tranche_principal"
	StepResidual         StepKind = "residual"
)

// Gate is a coverage trigger consulted before a tranche step runs. Both
// trigger kinds satisfy it.
type Gate interface {
	Name() string
	Passing() bool
}

// Step is one entry in the priority-ordered payment sequence. Exactly one
// component reference matching Kind must be set; residual steps reference
// nothing and drain their bucket.
type Step struct {
	Kind    StepKind
	Name    string // step identifier for the audit trail
	Bucket  model.Bucket
	Fee     *fee.Accrual
	OC      *trigger.OC
	IC      *trigger.IC
	Tranche *tranche.Tranche
	Gates   []Gate // failing gate defers the step (tranche steps only)
}

// NegativeCashError reports a step that would drive a cash bucket
// negative. This is an invariant violation from malformed upstream input
// and aborts processing of the period.
type NegativeCashError struct {
	Step   string
	Bucket model.Bucket
	Amount decimal.Decimal
}

func (e *NegativeCashError) Error() string {
	return fmt.Sprintf("waterfall: step %s would drive %s bucket negative (%s)", e.Step, e.Bucket, e.Amount)
}

// Result is the outcome of one period's waterfall execution.
type Result struct {
	Records           []model.PaymentRecord
	InterestLeftover  decimal.Decimal
	PrincipalLeftover decimal.Decimal
}

type engineState int

const (
	stateIdle engineState = iota
	stateExecuting
	stateCompleted
)

// Engine runs an ordered step list against two cash buckets. One engine
// is owned by one deal and executed once per period; re-entry while a
// period is in flight is a programmer error.
type Engine struct {
	deal  string
	steps []Step
	state engineState
}

// New validates the step list and creates an engine.
func New(deal string, steps []Step) (*Engine, error) {
	if len(steps) == 0 {
		return nil, eris.Errorf("waterfall %s: step list is empty", deal)
	}
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return nil, eris.Errorf("waterfall %s: step %d has no name", deal, i)
		}
		if seen[s.Name] {
			return nil, eris.Errorf("waterfall %s: duplicate step name %q", deal, s.Name)
		}
		seen[s.Name] = true
		if s.Bucket != model.BucketInterest && s.Bucket != model.BucketPrincipal {
			return nil, eris.Errorf("waterfall %s: step %s has invalid bucket %q", deal, s.Name, s.Bucket)
		}
		if err := validateRef(s); err != nil {
			return nil, eris.Wrapf(err, "waterfall %s", deal)
		}
	}
	return &Engine{deal: deal, steps: steps}, nil
}

func validateRef(s Step) error {
	switch s.Kind {
	case StepFee:
		if s.Fee == nil {
			return eris.Errorf("step %s: fee reference is required", s.Name)
		}
	case StepOCInterestCure, StepOCPrincipalCure:
		if s.OC == nil {
			return eris.Errorf("step %s: OC trigger reference is required", s.Name)
		}
	case StepICCure:
		if s.IC == nil {
			return eris.Errorf("step %s: IC trigger reference is required", s.Name)
		}
	case StepTrancheInterest, StepTranchePrincipal:
		if s.Tranche == nil {
			return eris.Errorf("step %s: tranche reference is required", s.Name)
		}
	case StepResidual:
		// drains the bucket, no reference
	default:
		return eris.Errorf("step %s: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// Execute drains the period's collections through the step list in
// priority order. Steps whose governing trigger is failing are deferred
// before any amount-due computation, so a blocked tranche never reduces
// the buckets. Returns the payment records and per-bucket leftovers.
func (e *Engine) Execute(interestCash, principalCash decimal.Decimal) (*Result, error) {
	if e.state != stateIdle {
		panic(fmt.Sprintf("waterfall %s: Execute re-entered before Reset", e.deal))
	}
	e.state = stateExecuting
	defer func() { e.state = stateCompleted }()

	if interestCash.IsNegative() {
		return nil, &NegativeCashError{Step: "collections", Bucket: model.BucketInterest, Amount: interestCash}
	}
	if principalCash.IsNegative() {
		return nil, &NegativeCashError{Step: "collections", Bucket: model.BucketPrincipal, Amount: principalCash}
	}

	buckets := map[model.Bucket]decimal.Decimal{
		model.BucketInterest:  interestCash,
		model.BucketPrincipal: principalCash,
	}
	initial := map[model.Bucket]decimal.Decimal{
		model.BucketInterest:  interestCash,
		model.BucketPrincipal: principalCash,
	}
	paidTotal := map[model.Bucket]decimal.Decimal{
		model.BucketInterest:  decimal.Zero,
		model.BucketPrincipal: decimal.Zero,
	}

	res := &Result{Records: make([]model.PaymentRecord, 0, len(e.steps))}

	for _, s := range e.steps {
		// Eligibility comes before amount-due: a blocked step is recorded
		// as deferred with zero amount and the cash stays in the bucket.
		if blocked, gate := blockedBy(s); blocked {
			zap.L().Debug("waterfall: step deferred by failing trigger",
				zap.String("deal", e.deal),
				zap.String("step", s.Name),
				zap.String("gate", gate),
			)
			res.Records = append(res.Records, model.PaymentRecord{
				Step:      s.Name,
				Kind:      string(s.Kind),
				Bucket:    s.Bucket,
				Amount:    decimal.Zero,
				Remaining: buckets[s.Bucket],
				Deferred:  true,
			})
			continue
		}

		due, err := stepDue(s, buckets[s.Bucket])
		if err != nil {
			return nil, err
		}
		if due.IsNegative() {
			return nil, &NegativeCashError{Step: s.Name, Bucket: s.Bucket, Amount: due}
		}

		available := buckets[s.Bucket]
		amount := decimal.Min(due, available)
		paid := payStep(s, amount)

		buckets[s.Bucket] = available.Sub(paid)
		paidTotal[s.Bucket] = paidTotal[s.Bucket].Add(paid)
		if buckets[s.Bucket].IsNegative() {
			return nil, &NegativeCashError{Step: s.Name, Bucket: s.Bucket, Amount: buckets[s.Bucket]}
		}

		res.Records = append(res.Records, model.PaymentRecord{
			Step:      s.Name,
			Kind:      string(s.Kind),
			Bucket:    s.Bucket,
			Amount:    paid,
			Remaining: buckets[s.Bucket],
		})
	}

	res.InterestLeftover = buckets[model.BucketInterest]
	res.PrincipalLeftover = buckets[model.BucketPrincipal]

	// Conservation: paid + leftover must equal the collections that came in.
	for _, b := range []model.Bucket{model.BucketInterest, model.BucketPrincipal} {
		if !paidTotal[b].Add(buckets[b]).Equal(initial[b]) {
			return nil, eris.Errorf("waterfall %s: %s bucket conservation violated: paid %s + leftover %s != %s",
				e.deal, b, paidTotal[b], buckets[b], initial[b])
		}
	}

	return res, nil
}

// Reset readies the engine for the next period's execution.
func (e *Engine) Reset() {
	if e.state == stateExecuting {
		panic(fmt.Sprintf("waterfall %s: Reset while executing", e.deal))
	}
	e.state = stateIdle
}

func blockedBy(s Step) (bool, string) {
	for _, g := range s.Gates {
		if !g.Passing() {
			return true, g.Name()
		}
	}
	return false, ""
}

func stepDue(s Step, bucketRemaining decimal.Decimal) (decimal.Decimal, error) {
	switch s.Kind {
	case StepFee:
		return s.Fee.Due(), nil
	case StepOCInterestCure:
		return s.OC.InterestCureDue(), nil
	case StepOCPrincipalCure:
		return s.OC.PrincipalCureDue(), nil
	case StepICCure:
		return s.IC.CureDue(), nil
	case StepTrancheInterest:
		return s.Tranche.InterestDue(), nil
	case StepTranchePrincipal:
		return s.Tranche.PrincipalDue(), nil
	case StepResidual:
		return bucketRemaining, nil
	default:
		return decimal.Zero, eris.Errorf("waterfall: step %s has unknown kind %q", s.Name, s.Kind)
	}
}

// payStep routes the cash into the owning component and returns what it
// consumed. amount never exceeds the step's due, so the remainder each
// component hands back is zero by construction; the residual step has no
// component and consumes the amount outright.
func payStep(s Step, amount decimal.Decimal) decimal.Decimal {
	switch s.Kind {
	case StepFee:
		paid, _ := s.Fee.Pay(amount)
		return paid
	case StepOCInterestCure:
		paid, _ := s.OC.PayInterestCure(amount)
		return paid
	case StepOCPrincipalCure:
		paid, _ := s.OC.PayPrincipalCure(amount)
		return paid
	case StepICCure:
		paid, _ := s.IC.PayCure(amount)
		return paid
	case StepTrancheInterest:
		paid, _ := s.Tranche.PayInterest(amount)
		return paid
	case StepTranchePrincipal:
		paid, _ := s.Tranche.PayPrincipal(amount)
		return paid
	case StepResidual:
		return amount
	default:
		return decimal.Zero
	}
}

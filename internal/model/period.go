package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket identifies which cash proceeds pool a payment draws from.
type Bucket string

const (
	BucketInterest  Bucket = "interest"
	BucketPrincipal Bucket = "principal"
)

// PaymentRecord captures one waterfall step's outcome for the audit trail.
// Remaining is the bucket balance after the step ran. A deferred step was
// skipped because its governing trigger was failing; it never touches cash.
type PaymentRecord struct {
	Step      string          `json:"step"`
	Kind      string          `json:"kind"`
	Bucket    Bucket          `json:"bucket"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
	Deferred  bool            `json:"deferred,omitempty"`
}

// TriggerSnapshot is the per-period reporting view of an OC or IC trigger.
type TriggerSnapshot struct {
	Name          string          `json:"name"`
	Kind          string          `json:"kind"` // "oc" or "ic"
	Threshold     decimal.Decimal `json:"threshold"`
	Numerator     decimal.Decimal `json:"numerator"`
	Denominator   decimal.Decimal `json:"denominator"`
	Ratio         decimal.Decimal `json:"ratio"`
	Passing       bool            `json:"passing"`
	CureOwed      decimal.Decimal `json:"cure_owed"`
	CurePaid      decimal.Decimal `json:"cure_paid"`
	PriorCurePaid decimal.Decimal `json:"prior_cure_paid"`
}

// FeeSnapshot is the per-period reporting view of a fee ledger.
type FeeSnapshot struct {
	Name             string          `json:"name"`
	BeginningBalance decimal.Decimal `json:"beginning_balance"`
	Accrued          decimal.Decimal `json:"accrued"`
	Paid             decimal.Decimal `json:"paid"`
	EndingBalance    decimal.Decimal `json:"ending_balance"`
}

// TrancheSnapshot is the per-period reporting view of a liability tranche.
type TrancheSnapshot struct {
	Name             string          `json:"name"`
	BeginningBalance decimal.Decimal `json:"beginning_balance"`
	InterestDue      decimal.Decimal `json:"interest_due"`
	InterestPaid     decimal.Decimal `json:"interest_paid"`
	DeferredInterest decimal.Decimal `json:"deferred_interest"`
	PrincipalPaid    decimal.Decimal `json:"principal_paid"`
	EndingBalance    decimal.Decimal `json:"ending_balance"`
}

// RuleResult is one compliance rule evaluated against a period's metrics.
// Compliance results are reporting-only; they never gate payments.
type RuleResult struct {
	RuleID     string          `json:"rule_id"`
	Name       string          `json:"name"`
	Metric     string          `json:"metric"`
	Value      decimal.Decimal `json:"value"`
	Threshold  decimal.Decimal `json:"threshold"`
	Comparator string          `json:"comparator"`
	Passing    bool            `json:"passing"`
}

// PeriodResult is the full output of one period: every payment made, the
// ending state of each component, and the leftover cash per bucket.
type PeriodResult struct {
	Period               int               `json:"period"`
	Begin                time.Time         `json:"begin"`
	End                  time.Time         `json:"end"`
	InterestCollections  decimal.Decimal   `json:"interest_collections"`
	PrincipalCollections decimal.Decimal   `json:"principal_collections"`
	Payments             []PaymentRecord   `json:"payments"`
	InterestLeftover     decimal.Decimal   `json:"interest_leftover"`
	PrincipalLeftover    decimal.Decimal   `json:"principal_leftover"`
	Triggers             []TriggerSnapshot `json:"triggers"`
	Fees                 []FeeSnapshot     `json:"fees"`
	Tranches             []TrancheSnapshot `json:"tranches"`
	Compliance           []RuleResult      `json:"compliance,omitempty"`
}

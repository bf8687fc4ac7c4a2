// Package engine drives one deal period by period: calc on every
// component, waterfall execution, then rollforward in a fixed order so
// prior-period carry values are consistent for the next period.
package engine

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/collateral"
	"github.com/sells-group/dealflow-cli/internal/fee"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/schedule"
	"github.com/sells-group/dealflow-cli/internal/tranche"
	"github.com/sells-group/dealflow-cli/internal/trigger"
	"github.com/sells-group/dealflow-cli/internal/waterfall"
)

// OCBinding ties an OC trigger to the tranche classes it covers. The
// denominator of the test is the aggregate balance of those classes.
type OCBinding struct {
	Trigger  *trigger.OC
	Tranches []*tranche.Tranche
}

// ICBinding ties an IC trigger to the tranche classes it covers. The
// denominator is the aggregate interest due of those classes and the cure
// references their aggregate balance.
type ICBinding struct {
	Trigger  *trigger.IC
	Tranches []*tranche.Tranche
}

// Config assembles one deal's component tree. The tree is exclusively
// owned by the controller; sharing components across deals is a bug.
type Config struct {
	Deal      string
	Schedule  *schedule.Schedule
	Fees      []*fee.Accrual
	OCs       []OCBinding
	ICs       []ICBinding
	Tranches  []*tranche.Tranche
	Waterfall *waterfall.Engine
	IndexRate decimal.Decimal // floating index for interest-on-unpaid fees
}

type phase int

const (
	phaseIdle phase = iota
	phaseCalced
	phaseExecuted
)

// Controller orchestrates calc → execute → rollforward for one deal.
// Strictly sequential: one period fully completes before the next begins.
type Controller struct {
	cfg    Config
	period int
	phase  phase
}

// New validates the component tree and creates a controller at period 1.
func New(cfg Config) (*Controller, error) {
	if cfg.Deal == "" {
		return nil, eris.New("engine: deal name is required")
	}
	if cfg.Schedule == nil || cfg.Schedule.Count() == 0 {
		return nil, eris.Errorf("engine %s: schedule is required", cfg.Deal)
	}
	if cfg.Waterfall == nil {
		return nil, eris.Errorf("engine %s: waterfall is required", cfg.Deal)
	}
	for _, b := range cfg.OCs {
		if b.Trigger == nil || len(b.Tranches) == 0 {
			return nil, eris.Errorf("engine %s: OC binding needs a trigger and covered tranches", cfg.Deal)
		}
	}
	for _, b := range cfg.ICs {
		if b.Trigger == nil || len(b.Tranches) == 0 {
			return nil, eris.Errorf("engine %s: IC binding needs a trigger and covered tranches", cfg.Deal)
		}
	}
	return &Controller{cfg: cfg, period: 1}, nil
}

// Period returns the current 1-based period pointer.
func (c *Controller) Period() int { return c.period }

// Calc runs the period's accrual and coverage calculations: tranches
// first (IC denominators need interest due), then fees, then triggers.
// Data-integrity faults identify the offending period and component.
func (c *Controller) Calc(in collateral.PeriodInput) error {
	if c.phase != phaseIdle {
		panic(fmt.Sprintf("engine %s: Calc out of order in period %d", c.cfg.Deal, c.period))
	}
	if c.period > c.cfg.Schedule.Count() {
		panic(fmt.Sprintf("engine %s: period %d past provisioned horizon %d", c.cfg.Deal, c.period, c.cfg.Schedule.Count()))
	}

	p := c.cfg.Schedule.Period(c.period)

	for _, tr := range c.cfg.Tranches {
		tr.Calc(p.Begin, p.End)
	}
	for _, f := range c.cfg.Fees {
		f.Calc(p.Begin, p.End, in.CollateralParBalance, c.cfg.IndexRate)
	}

	for _, b := range c.cfg.OCs {
		denominator := decimal.Zero
		for _, tr := range b.Tranches {
			denominator = denominator.Add(tr.Balance())
		}
		if err := b.Trigger.Calc(in.CollateralParBalance, denominator); err != nil {
			return eris.Wrapf(err, "deal %s: period %d", c.cfg.Deal, c.period)
		}
	}
	for _, b := range c.cfg.ICs {
		denominator := decimal.Zero
		liability := decimal.Zero
		for _, tr := range b.Tranches {
			denominator = denominator.Add(tr.InterestDue())
			liability = liability.Add(tr.Balance())
		}
		if err := b.Trigger.Calc(in.InterestCollections, denominator, liability); err != nil {
			return eris.Wrapf(err, "deal %s: period %d", c.cfg.Deal, c.period)
		}
	}

	c.phase = phaseCalced
	return nil
}

// Execute drains the period's collections through the waterfall.
func (c *Controller) Execute(in collateral.PeriodInput) (*waterfall.Result, error) {
	if c.phase != phaseCalced {
		panic(fmt.Sprintf("engine %s: Execute before Calc in period %d", c.cfg.Deal, c.period))
	}
	res, err := c.cfg.Waterfall.Execute(in.InterestCollections, in.PrincipalCollections)
	if err != nil {
		return nil, eris.Wrapf(err, "deal %s: period %d", c.cfg.Deal, c.period)
	}
	c.phase = phaseExecuted
	return res, nil
}

// Rollforward commits ending state as next period's beginning state in a
// fixed order: fees, then triggers, then tranche balance updates. Calling
// it before Calc/Execute, or past the provisioned horizon, is fatal.
func (c *Controller) Rollforward() {
	if c.phase != phaseExecuted {
		panic(fmt.Sprintf("engine %s: Rollforward before Execute in period %d", c.cfg.Deal, c.period))
	}
	if c.period >= c.cfg.Schedule.Count() {
		panic(fmt.Sprintf("engine %s: rollforward past provisioned horizon %d", c.cfg.Deal, c.cfg.Schedule.Count()))
	}
	for _, f := range c.cfg.Fees {
		f.Rollforward()
	}
	for _, b := range c.cfg.OCs {
		b.Trigger.Rollforward()
	}
	for _, b := range c.cfg.ICs {
		b.Trigger.Rollforward()
	}
	for _, tr := range c.cfg.Tranches {
		tr.Rollforward()
	}
	c.cfg.Waterfall.Reset()
	c.period++
	c.phase = phaseIdle
}

// RunPeriod executes one full period lifecycle and returns its result.
// Snapshots are taken after execution, before rollforward, so they show
// the period's ending state. The final period is not rolled forward.
func (c *Controller) RunPeriod(in collateral.PeriodInput) (*model.PeriodResult, error) {
	if err := c.Calc(in); err != nil {
		return nil, err
	}
	wfRes, err := c.Execute(in)
	if err != nil {
		return nil, err
	}

	p := c.cfg.Schedule.Period(c.period)
	res := &model.PeriodResult{
		Period:               c.period,
		Begin:                p.Begin,
		End:                  p.End,
		InterestCollections:  in.InterestCollections,
		PrincipalCollections: in.PrincipalCollections,
		Payments:             wfRes.Records,
		InterestLeftover:     wfRes.InterestLeftover,
		PrincipalLeftover:    wfRes.PrincipalLeftover,
	}
	for _, b := range c.cfg.OCs {
		res.Triggers = append(res.Triggers, b.Trigger.Snapshot())
	}
	for _, b := range c.cfg.ICs {
		res.Triggers = append(res.Triggers, b.Trigger.Snapshot())
	}
	for _, f := range c.cfg.Fees {
		res.Fees = append(res.Fees, f.Snapshot())
	}
	for _, tr := range c.cfg.Tranches {
		res.Tranches = append(res.Tranches, tr.Snapshot())
	}

	if c.period < c.cfg.Schedule.Count() {
		c.Rollforward()
	}
	return res, nil
}

// Run processes every provisioned period in order. Cancellation is
// coarse-grained: the context is checked between periods, never inside
// one. A fault stops this deal and reports the offending period so a
// batch host can flag it without aborting sibling deals.
func (c *Controller) Run(ctx context.Context, pool *collateral.Pool) ([]model.PeriodResult, error) {
	count := c.cfg.Schedule.Count()
	results := make([]model.PeriodResult, 0, count)

	for p := 1; p <= count; p++ {
		if err := ctx.Err(); err != nil {
			return results, eris.Wrapf(err, "deal %s: abandoned at period %d", c.cfg.Deal, p)
		}
		in, err := pool.Period(p)
		if err != nil {
			return results, eris.Wrapf(err, "deal %s", c.cfg.Deal)
		}
		res, err := c.RunPeriod(in)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}

	zap.L().Info("deal run complete",
		zap.String("deal", c.cfg.Deal),
		zap.Int("periods", count),
	)
	return results, nil
}

package deal

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/dealflow-cli/internal/engine"
	"github.com/sells-group/dealflow-cli/internal/fee"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/schedule"
	"github.com/sells-group/dealflow-cli/internal/tranche"
	"github.com/sells-group/dealflow-cli/internal/trigger"
	"github.com/sells-group/dealflow-cli/internal/waterfall"
)

// Build assembles a fresh, exclusively-owned component tree from the
// configuration and returns the period controller for the deal.
func Build(cfg *Config) (*engine.Controller, error) {
	convention, err := schedule.ParseConvention(cfg.DayCount)
	if err != nil {
		return nil, eris.Wrapf(err, "deal %s", cfg.Name)
	}
	begin, err := time.Parse("2006-01-02", cfg.FirstPeriodBegin)
	if err != nil {
		return nil, eris.Wrapf(err, "deal %s: first_period_begin", cfg.Name)
	}
	sched, err := schedule.New(begin, cfg.FrequencyMonths, cfg.Periods, convention)
	if err != nil {
		return nil, eris.Wrapf(err, "deal %s", cfg.Name)
	}
	indexRate, err := parseAmount("index_rate", cfg.IndexRate)
	if err != nil {
		return nil, err
	}
	collateralPar, err := parseAmount("collateral_par", cfg.CollateralPar)
	if err != nil {
		return nil, err
	}

	tranches, byName, err := buildTranches(cfg, convention)
	if err != nil {
		return nil, err
	}
	fees, feeByName, err := buildFees(cfg, convention, collateralPar)
	if err != nil {
		return nil, err
	}
	ocs, ocByName, err := buildOCs(cfg, byName)
	if err != nil {
		return nil, err
	}
	ics, icByName, err := buildICs(cfg, byName)
	if err != nil {
		return nil, err
	}

	steps, err := buildSteps(cfg, feeByName, ocByName, icByName, byName)
	if err != nil {
		return nil, err
	}
	wf, err := waterfall.New(cfg.Name, steps)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		Deal:      cfg.Name,
		Schedule:  sched,
		Fees:      fees,
		OCs:       ocs,
		ICs:       ics,
		Tranches:  tranches,
		Waterfall: wf,
		IndexRate: indexRate,
	})
}

func buildTranches(cfg *Config, convention schedule.Convention) ([]*tranche.Tranche, map[string]*tranche.Tranche, error) {
	tranches := make([]*tranche.Tranche, 0, len(cfg.Tranches))
	byName := make(map[string]*tranche.Tranche, len(cfg.Tranches))
	for i, tc := range cfg.Tranches {
		coupon, err := parseAmount("tranche coupon", tc.Coupon)
		if err != nil {
			return nil, nil, err
		}
		balance, err := parseAmount("tranche balance", tc.Balance)
		if err != nil {
			return nil, nil, err
		}
		tr, err := tranche.New(tranche.Config{
			Name:           tc.Name,
			Seniority:      i + 1,
			CouponRate:     coupon,
			InitialBalance: balance,
			Convention:     convention,
			Horizon:        cfg.Periods,
		})
		if err != nil {
			return nil, nil, eris.Wrapf(err, "deal %s", cfg.Name)
		}
		if _, dup := byName[tc.Name]; dup {
			return nil, nil, eris.Errorf("deal %s: duplicate tranche %q", cfg.Name, tc.Name)
		}
		tranches = append(tranches, tr)
		byName[tc.Name] = tr
	}
	return tranches, byName, nil
}

func buildFees(cfg *Config, convention schedule.Convention, collateralPar decimal.Decimal) ([]*fee.Accrual, map[string]*fee.Accrual, error) {
	fees := make([]*fee.Accrual, 0, len(cfg.Fees))
	byName := make(map[string]*fee.Accrual, len(cfg.Fees))
	for _, fc := range cfg.Fees {
		basis, err := fee.ParseBasisType(fc.Basis)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "deal %s", cfg.Name)
		}
		rate, err := parseAmount("fee annual_rate", fc.AnnualRate)
		if err != nil {
			return nil, nil, err
		}
		fixed, err := parseAmount("fee fixed_amount", fc.FixedAmount)
		if err != nil {
			return nil, nil, err
		}
		spread, err := parseAmount("fee spread", fc.Spread)
		if err != nil {
			return nil, nil, err
		}
		f, err := fee.New(fee.Config{
			Name:             fc.Name,
			Basis:            basis,
			AnnualRate:       rate,
			FixedAmount:      fixed,
			InterestOnUnpaid: fc.InterestOnUnpaid,
			Spread:           spread,
			Convention:       convention,
			InitialBasis:     collateralPar,
			Horizon:          cfg.Periods,
		})
		if err != nil {
			return nil, nil, eris.Wrapf(err, "deal %s", cfg.Name)
		}
		if _, dup := byName[fc.Name]; dup {
			return nil, nil, eris.Errorf("deal %s: duplicate fee %q", cfg.Name, fc.Name)
		}
		fees = append(fees, f)
		byName[fc.Name] = f
	}
	return fees, byName, nil
}

func buildOCs(cfg *Config, tranches map[string]*tranche.Tranche) ([]engine.OCBinding, map[string]*trigger.OC, error) {
	bindings := make([]engine.OCBinding, 0, len(cfg.OCTriggers))
	byName := make(map[string]*trigger.OC, len(cfg.OCTriggers))
	for _, tc := range cfg.OCTriggers {
		threshold, err := parseAmount("oc threshold", tc.Threshold)
		if err != nil {
			return nil, nil, err
		}
		oc, err := trigger.NewOC(tc.Name, threshold, cfg.Periods)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "deal %s", cfg.Name)
		}
		covered, err := resolveTranches(cfg.Name, tc, tranches)
		if err != nil {
			return nil, nil, err
		}
		bindings = append(bindings, engine.OCBinding{Trigger: oc, Tranches: covered})
		byName[tc.Name] = oc
	}
	return bindings, byName, nil
}

func buildICs(cfg *Config, tranches map[string]*tranche.Tranche) ([]engine.ICBinding, map[string]*trigger.IC, error) {
	bindings := make([]engine.ICBinding, 0, len(cfg.ICTriggers))
	byName := make(map[string]*trigger.IC, len(cfg.ICTriggers))
	for _, tc := range cfg.ICTriggers {
		threshold, err := parseAmount("ic threshold", tc.Threshold)
		if err != nil {
			return nil, nil, err
		}
		ic, err := trigger.NewIC(tc.Name, threshold, cfg.Periods)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "deal %s", cfg.Name)
		}
		covered, err := resolveTranches(cfg.Name, tc, tranches)
		if err != nil {
			return nil, nil, err
		}
		bindings = append(bindings, engine.ICBinding{Trigger: ic, Tranches: covered})
		byName[tc.Name] = ic
	}
	return bindings, byName, nil
}

func resolveTranches(deal string, tc TriggerConfig, tranches map[string]*tranche.Tranche) ([]*tranche.Tranche, error) {
	if len(tc.Tranches) == 0 {
		return nil, eris.Errorf("deal %s: trigger %q covers no tranches", deal, tc.Name)
	}
	covered := make([]*tranche.Tranche, 0, len(tc.Tranches))
	for _, name := range tc.Tranches {
		tr, ok := tranches[name]
		if !ok {
			return nil, eris.Errorf("deal %s: trigger %q references unknown tranche %q", deal, tc.Name, name)
		}
		covered = append(covered, tr)
	}
	return covered, nil
}

func buildSteps(
	cfg *Config,
	fees map[string]*fee.Accrual,
	ocs map[string]*trigger.OC,
	ics map[string]*trigger.IC,
	tranches map[string]*tranche.Tranche,
) ([]waterfall.Step, error) {
	steps := make([]waterfall.Step, 0, len(cfg.Waterfall))
	for i, sc := range cfg.Waterfall {
		var bucket model.Bucket
		switch sc.Bucket {
		case "interest":
			bucket = model.BucketInterest
		case "principal":
			bucket = model.BucketPrincipal
		default:
			return nil, eris.Errorf("deal %s: step %d has invalid bucket %q", cfg.Name, i, sc.Bucket)
		}

		gates, err := resolveGates(cfg.Name, sc, ocs, ics)
		if err != nil {
			return nil, err
		}

		step := waterfall.Step{Bucket: bucket, Gates: gates}
		switch sc.Type {
		case "fee":
			f, ok := fees[sc.Target]
			if !ok {
				return nil, eris.Errorf("deal %s: step %d references unknown fee %q", cfg.Name, i, sc.Target)
			}
			step.Kind, step.Fee = waterfall.StepFee, f
			step.Name = sc.Target + "-fee"
		case "oc_interest_cure", "oc_principal_cure":
			oc, ok := ocs[sc.Target]
			if !ok {
				return nil, eris.Errorf("deal %s: step %d references unknown OC trigger %q", cfg.Name, i, sc.Target)
			}
			step.OC = oc
			if sc.Type == "oc_interest_cure" {
				step.Kind, step.Name = waterfall.StepOCInterestCure, sc.Target+"-interest-cure"
			} else {
				step.Kind, step.Name = waterfall.StepOCPrincipalCure, sc.Target+"-principal-cure"
			}
		case "ic_cure":
			ic, ok := ics[sc.Target]
			if !ok {
				return nil, eris.Errorf("deal %s: step %d references unknown IC trigger %q", cfg.Name, i, sc.Target)
			}
			step.Kind, step.IC = waterfall.StepICCure, ic
			step.Name = sc.Target + "-cure"
		case "tranche_interest", "tranche_principal":
			tr, ok := tranches[sc.Target]
			if !ok {
				return nil, eris.Errorf("deal %s: step %d references unknown tranche %q", cfg.Name, i, sc.Target)
			}
			step.Tranche = tr
			if sc.Type == "tranche_interest" {
				step.Kind, step.Name = waterfall.StepTrancheInterest, "class-"+sc.Target+"-interest"
			} else {
				step.Kind, step.Name = waterfall.StepTranchePrincipal, "class-"+sc.Target+"-principal"
			}
		case "residual":
			step.Kind = waterfall.StepResidual
			step.Name = "residual-" + sc.Bucket
		default:
			return nil, eris.Errorf("deal %s: step %d has unknown type %q", cfg.Name, i, sc.Type)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func resolveGates(deal string, sc StepConfig, ocs map[string]*trigger.OC, ics map[string]*trigger.IC) ([]waterfall.Gate, error) {
	if len(sc.Gates) == 0 {
		return nil, nil
	}
	gates := make([]waterfall.Gate, 0, len(sc.Gates))
	for _, name := range sc.Gates {
		if oc, ok := ocs[name]; ok {
			gates = append(gates, oc)
			continue
		}
		if ic, ok := ics[name]; ok {
			gates = append(gates, ic)
			continue
		}
		return nil, eris.Errorf("deal %s: step gate references unknown trigger %q", deal, name)
	}
	return gates, nil
}

// Package compliance evaluates portfolio quality rules against a
// period's metrics for reporting. Rules are a data-driven
// (rule, metric, comparator, threshold) table, never branching code, and
// their results never gate waterfall payments.
package compliance

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// Comparator names the comparison a rule applies to its metric.
type Comparator string

const (
	GT  Comparator = "gt"
	GTE Comparator = "gte"
	LT  Comparator = "lt"
	LTE Comparator = "lte"
)

// Rule is one row of the compliance table.
type Rule struct {
	ID         string
	Name       string
	Metric     string
	Comparator Comparator
	Threshold  decimal.Decimal
}

type ruleYAML struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Metric     string `yaml:"metric"`
	Comparator string `yaml:"comparator"`
	Threshold  string `yaml:"threshold"`
}

// LoadRules reads a compliance rule table from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "compliance: read rules %s", path)
	}
	var wrapper struct {
		Rules []ruleYAML `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "compliance: parse rules")
	}

	rules := make([]Rule, 0, len(wrapper.Rules))
	for _, r := range wrapper.Rules {
		if r.ID == "" || r.Metric == "" {
			return nil, eris.Errorf("compliance: rule %q needs id and metric", r.Name)
		}
		threshold, err := decimal.NewFromString(r.Threshold)
		if err != nil {
			return nil, eris.Wrapf(err, "compliance: rule %s threshold", r.ID)
		}
		cmp := Comparator(r.Comparator)
		switch cmp {
		case GT, GTE, LT, LTE:
		default:
			return nil, eris.Errorf("compliance: rule %s has unknown comparator %q", r.ID, r.Comparator)
		}
		rules = append(rules, Rule{
			ID:         r.ID,
			Name:       r.Name,
			Metric:     r.Metric,
			Comparator: cmp,
			Threshold:  threshold,
		})
	}
	return rules, nil
}

// Evaluate runs every rule against the metric set. Rules whose metric is
// absent are skipped; an absent metric means the collateral system did
// not report it this period.
func Evaluate(rules []Rule, metrics map[string]decimal.Decimal) []model.RuleResult {
	results := make([]model.RuleResult, 0, len(rules))
	for _, r := range rules {
		value, ok := metrics[r.Metric]
		if !ok {
			continue
		}
		results = append(results, model.RuleResult{
			RuleID:     r.ID,
			Name:       r.Name,
			Metric:     r.Metric,
			Value:      value,
			Threshold:  r.Threshold,
			Comparator: string(r.Comparator),
			Passing:    r.Comparator.compare(value, r.Threshold),
		})
	}
	return results
}

func (c Comparator) compare(value, threshold decimal.Decimal) bool {
	switch c {
	case GT:
		return value.GreaterThan(threshold)
	case GTE:
		return value.GreaterThanOrEqual(threshold)
	case LT:
		return value.LessThan(threshold)
	case LTE:
		return value.LessThanOrEqual(threshold)
	default:
		return false
	}
}

// PeriodMetrics derives the standard metric set from one period's result
// and collateral inputs, keyed by the names the rule table uses.
func PeriodMetrics(res *model.PeriodResult, defaultedBalance, recoveryAmount, collateralPar decimal.Decimal) map[string]decimal.Decimal {
	metrics := map[string]decimal.Decimal{
		"collateral_par_balance": collateralPar,
		"defaulted_balance":      defaultedBalance,
		"recovery_amount":        recoveryAmount,
		"interest_collections":   res.InterestCollections,
		"principal_collections":  res.PrincipalCollections,
	}
	if collateralPar.IsPositive() {
		metrics["defaulted_ratio"] = defaultedBalance.Div(collateralPar)
	}
	for _, trg := range res.Triggers {
		metrics[trg.Name+"_ratio"] = trg.Ratio
	}
	return metrics
}

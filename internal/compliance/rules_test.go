package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

const sampleRulesYAML = `rules:
  - id: R-01
    name: "Minimum collateral par"
    metric: collateral_par_balance
    comparator: gte
    threshold: "90000000"
  - id: R-02
    name: "Maximum defaulted ratio"
    metric: defaulted_ratio
    comparator: lte
    threshold: "0.05"
  - id: R-03
    name: "OC ratio floor"
    metric: class-b-oc_ratio
    comparator: gt
    threshold: "1.00"
`

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRulesYAML), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "R-02", rules[1].ID)
	assert.Equal(t, LTE, rules[1].Comparator)
	assert.True(t, rules[1].Threshold.Equal(dec("0.05")))
}

func TestLoadRules_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "rules:\n  - name: x\n    metric: m\n    comparator: gt\n    threshold: \"1\"\n"},
		{"bad comparator", "rules:\n  - id: R\n    metric: m\n    comparator: between\n    threshold: \"1\"\n"},
		{"bad threshold", "rules:\n  - id: R\n    metric: m\n    comparator: gt\n    threshold: \"high\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			_, err := LoadRules(path)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{ID: "R-01", Metric: "collateral_par_balance", Comparator: GTE, Threshold: dec("90000000")},
		{ID: "R-02", Metric: "defaulted_ratio", Comparator: LTE, Threshold: dec("0.05")},
		{ID: "R-03", Metric: "unreported_metric", Comparator: GT, Threshold: dec("1")},
	}
	metrics := map[string]decimal.Decimal{
		"collateral_par_balance": dec("95000000"),
		"defaulted_ratio":        dec("0.08"),
	}

	results := Evaluate(rules, metrics)
	require.Len(t, results, 2, "unreported metrics are skipped")

	assert.True(t, results[0].Passing)
	assert.False(t, results[1].Passing)
	assert.True(t, results[1].Value.Equal(dec("0.08")))
}

func TestComparators(t *testing.T) {
	t.Parallel()

	v, th := dec("1.10"), dec("1.10")
	assert.False(t, GT.compare(v, th))
	assert.True(t, GTE.compare(v, th))
	assert.False(t, LT.compare(v, th))
	assert.True(t, LTE.compare(v, th))
}

func TestPeriodMetrics(t *testing.T) {
	t.Parallel()

	res := &model.PeriodResult{
		InterestCollections:  dec("2500000"),
		PrincipalCollections: dec("1000000"),
		Triggers: []model.TriggerSnapshot{
			{Name: "class-b-oc", Ratio: dec("1.25")},
		},
	}
	metrics := PeriodMetrics(res, dec("2000000"), dec("500000"), dec("100000000"))

	assert.True(t, metrics["defaulted_ratio"].Equal(dec("0.02")))
	assert.True(t, metrics["class-b-oc_ratio"].Equal(dec("1.25")))
	assert.True(t, metrics["interest_collections"].Equal(dec("2500000")))
}

package deal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/collateral"
)

const sampleDealYAML = `deal:
  name: "example-clo-2026-1"
  periods: 12
  first_period_begin: "2026-01-15"
  frequency_months: 3
  day_count: "30/360"
  index_rate: "0.043"
  collateral_par: "100000000"
  tranches:
    - name: A
      coupon: "0.05"
      balance: "60000000"
    - name: B
      coupon: "0.08"
      balance: "20000000"
  fees:
    - name: senior-mgmt
      basis: beginning
      annual_rate: "0.004"
    - name: trustee
      basis: fixed
      fixed_amount: "40000"
  oc_triggers:
    - name: class-b-oc
      threshold: "1.20"
      tranches: [A, B]
  ic_triggers:
    - name: class-b-ic
      threshold: "1.10"
      tranches: [A, B]
  waterfall:
    - {type: fee, target: trustee, bucket: interest}
    - {type: fee, target: senior-mgmt, bucket: interest}
    - {type: tranche_interest, target: A, bucket: interest}
    - {type: oc_interest_cure, target: class-b-oc, bucket: interest}
    - {type: ic_cure, target: class-b-ic, bucket: interest}
    - {type: tranche_interest, target: B, bucket: interest, gates: [class-b-oc, class-b-ic]}
    - {type: oc_principal_cure, target: class-b-oc, bucket: principal}
    - {type: tranche_principal, target: A, bucket: principal}
    - {type: tranche_principal, target: B, bucket: principal, gates: [class-b-oc, class-b-ic]}
    - {type: residual, bucket: interest}
    - {type: residual, bucket: principal}
`

func writeDeal(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeDeal(t, sampleDealYAML))
	require.NoError(t, err)

	assert.Equal(t, "example-clo-2026-1", cfg.Name)
	assert.Equal(t, 12, cfg.Periods)
	assert.Len(t, cfg.Tranches, 2)
	assert.Len(t, cfg.Fees, 2)
	assert.Len(t, cfg.Waterfall, 11)
	assert.Equal(t, []string{"class-b-oc", "class-b-ic"}, cfg.Waterfall[5].Gates)
}

func TestLoad_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "deal:\n  periods: 12\n"},
		{"zero periods", "deal:\n  name: x\n  periods: 0\n"},
		{"bad date", "deal:\n  name: x\n  periods: 1\n  frequency_months: 3\n  first_period_begin: \"Jan 15\"\n"},
		{"no tranches", "deal:\n  name: x\n  periods: 1\n  frequency_months: 3\n  first_period_begin: \"2026-01-15\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeDeal(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestBuild_AndRun(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeDeal(t, sampleDealYAML))
	require.NoError(t, err)

	ctrl, err := Build(cfg)
	require.NoError(t, err)

	inputs := make([]collateral.PeriodInput, 0, 12)
	for p := 1; p <= 12; p++ {
		inputs = append(inputs, collateral.PeriodInput{
			Period:               p,
			InterestCollections:  decimal.RequireFromString("2500000"),
			PrincipalCollections: decimal.RequireFromString("1000000"),
			CollateralParBalance: decimal.RequireFromString("100000000"),
		})
	}
	pool, err := collateral.NewPool(inputs)
	require.NoError(t, err)

	results, err := ctrl.Run(context.Background(), pool)
	require.NoError(t, err)
	require.Len(t, results, 12)

	// Conservation across every period and bucket.
	for _, res := range results {
		interest, principal := decimal.Zero, decimal.Zero
		for _, p := range res.Payments {
			switch p.Bucket {
			case "interest":
				interest = interest.Add(p.Amount)
			case "principal":
				principal = principal.Add(p.Amount)
			}
		}
		assert.True(t, interest.Add(res.InterestLeftover).Equal(res.InterestCollections), "period %d", res.Period)
		assert.True(t, principal.Add(res.PrincipalLeftover).Equal(res.PrincipalCollections), "period %d", res.Period)
	}

	// Class A amortizes by 1mm of principal collections each period.
	first := results[0]
	var classA bool
	for _, tr := range first.Tranches {
		if tr.Name == "A" {
			classA = true
			assert.True(t, tr.PrincipalPaid.Equal(decimal.RequireFromString("1000000")))
		}
	}
	assert.True(t, classA, "class A snapshot present")
}

func TestBuild_UnknownReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		replace [2]string
	}{
		{"unknown fee target", [2]string{"target: senior-mgmt", "target: ghost-fee"}},
		{"unknown tranche target", [2]string{"{type: tranche_interest, target: A, bucket: interest}", "{type: tranche_interest, target: Z, bucket: interest}"}},
		{"unknown gate", [2]string{"gates: [class-b-oc, class-b-ic]", "gates: [ghost-trigger]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := strings.Replace(sampleDealYAML, tt.replace[0], tt.replace[1], 1)
			cfg, err := Load(writeDeal(t, yaml))
			require.NoError(t, err)
			_, err = Build(cfg)
			assert.Error(t, err)
		})
	}
}

func TestBuild_BadDayCount(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeDeal(t, sampleDealYAML))
	require.NoError(t, err)
	cfg.DayCount = "ACT/ACT"

	_, err = Build(cfg)
	assert.Error(t, err)
}

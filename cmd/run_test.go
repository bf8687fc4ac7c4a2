package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

const testDealYAML = `deal:
  name: "%s"
  periods: 4
  first_period_begin: "2026-01-15"
  frequency_months: 3
  day_count: "30/360"
  collateral_par: "100000000"
  tranches:
    - name: A
      coupon: "0.05"
      balance: "60000000"
    - name: B
      coupon: "0.08"
      balance: "20000000"
  fees:
    - name: trustee
      basis: fixed
      fixed_amount: "40000"
  oc_triggers:
    - name: class-b-oc
      threshold: "1.20"
      tranches: [A, B]
  waterfall:
    - {type: fee, target: trustee, bucket: interest}
    - {type: tranche_interest, target: A, bucket: interest}
    - {type: oc_interest_cure, target: class-b-oc, bucket: interest}
    - {type: tranche_interest, target: B, bucket: interest, gates: [class-b-oc]}
    - {type: oc_principal_cure, target: class-b-oc, bucket: principal}
    - {type: tranche_principal, target: A, bucket: principal}
    - {type: tranche_principal, target: B, bucket: principal, gates: [class-b-oc]}
    - {type: residual, bucket: interest}
    - {type: residual, bucket: principal}
`

func writeDealDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deal.yaml"),
		[]byte(fmt.Sprintf(testDealYAML, name)), 0o600))

	var csv bytes.Buffer
	csv.WriteString("period,interest_collections,principal_collections,defaulted_balance,recovery_amount,collateral_par_balance\n")
	for p := 1; p <= 4; p++ {
		fmt.Fprintf(&csv, "%d,2500000,1000000,0,0,100000000\n", p)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collections.csv"), csv.Bytes(), 0o600))
	return dir
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestExecuteDeal(t *testing.T) {
	st := newTestStore(t)
	dir := writeDealDir(t, t.TempDir(), "test-deal")

	results, run, err := executeDeal(context.Background(), st,
		filepath.Join(dir, "deal.yaml"),
		filepath.Join(dir, "collections.csv"),
		"",
	)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 4, run.Periods)

	stored, err := st.ListPeriodResults(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestExecuteDeal_WithRules(t *testing.T) {
	st := newTestStore(t)
	root := t.TempDir()
	dir := writeDealDir(t, root, "test-deal")

	rules := `rules:
  - id: R-01
    name: "Minimum collateral par"
    metric: collateral_par_balance
    comparator: gte
    threshold: "90000000"
`
	rulesPath := filepath.Join(root, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(rules), 0o600))

	results, _, err := executeDeal(context.Background(), st,
		filepath.Join(dir, "deal.yaml"),
		filepath.Join(dir, "collections.csv"),
		rulesPath,
	)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Len(t, results[0].Compliance, 1)
	assert.True(t, results[0].Compliance[0].Passing)
}

func TestExecuteDeal_FaultFailsRun(t *testing.T) {
	st := newTestStore(t)
	dir := writeDealDir(t, t.TempDir(), "bad-deal")

	// Negative collections in period 2 are a data fault.
	csv := "period,interest_collections,principal_collections,defaulted_balance,recovery_amount,collateral_par_balance\n" +
		"1,2500000,1000000,0,0,100000000\n" +
		"2,-1,1000000,0,0,100000000\n" +
		"3,2500000,1000000,0,0,100000000\n" +
		"4,2500000,1000000,0,0,100000000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collections.csv"), []byte(csv), 0o600))

	results, run, err := executeDeal(context.Background(), st,
		filepath.Join(dir, "deal.yaml"),
		filepath.Join(dir, "collections.csv"),
		"",
	)
	require.Error(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "period 2")
}

func TestDealDirs(t *testing.T) {
	root := t.TempDir()
	writeDealDir(t, root, "deal-a")
	writeDealDir(t, root, "deal-b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-deal"), 0o755))

	dirs, err := dealDirs(root)
	require.NoError(t, err)
	assert.Len(t, dirs, 2)
}

func TestDealDirs_Empty(t *testing.T) {
	_, err := dealDirs(t.TempDir())
	assert.Error(t, err)
}

func TestProcessBatch_IsolatesFailures(t *testing.T) {
	st := newTestStore(t)
	root := t.TempDir()
	writeDealDir(t, root, "good-deal")
	bad := writeDealDir(t, root, "bad-deal")

	csv := "period,interest_collections,principal_collections,defaulted_balance,recovery_amount,collateral_par_balance\n" +
		"1,-1,1000000,0,0,100000000\n"
	require.NoError(t, os.WriteFile(filepath.Join(bad, "collections.csv"), []byte(csv), 0o600))

	dirs, err := dealDirs(root)
	require.NoError(t, err)
	require.NoError(t, processBatch(context.Background(), st, dirs, 2))

	complete, err := st.ListRuns(context.Background(), store.RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	assert.Len(t, complete, 1)

	failed, err := st.ListRuns(context.Background(), store.RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

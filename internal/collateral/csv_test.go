package collateral

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `period,interest_collections,principal_collections,defaulted_balance,recovery_amount,collateral_par_balance
1,2500000,5000000,0,0,100000000
2,2450000,4800000,1000000,250000,95200000
3,2400000.50,4700000.25,0,0,90500000
`

func TestParseCSV(t *testing.T) {
	t.Parallel()

	pool, err := parseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Count())

	in, err := pool.Period(2)
	require.NoError(t, err)
	assert.True(t, in.InterestCollections.Equal(decimal.RequireFromString("2450000")))
	assert.True(t, in.DefaultedBalance.Equal(decimal.RequireFromString("1000000")))
	assert.True(t, in.RecoveryAmount.Equal(decimal.RequireFromString("250000")))

	in, err = pool.Period(3)
	require.NoError(t, err)
	assert.True(t, in.PrincipalCollections.Equal(decimal.RequireFromString("4700000.25")))
}

func TestParseCSV_ColumnOrderIndependent(t *testing.T) {
	t.Parallel()

	reordered := `collateral_par_balance,period,interest_collections,principal_collections,defaulted_balance,recovery_amount
100000000,1,2500000,5000000,0,0
`
	pool, err := parseCSV(strings.NewReader(reordered))
	require.NoError(t, err)

	in, err := pool.Period(1)
	require.NoError(t, err)
	assert.True(t, in.CollateralParBalance.Equal(decimal.RequireFromString("100000000")))
}

func TestParseCSV_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := parseCSV(strings.NewReader("period,interest_collections\n1,100\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestParseCSV_BadAmount(t *testing.T) {
	t.Parallel()

	bad := strings.Replace(sampleCSV, "2450000", "not-a-number", 1)
	_, err := parseCSV(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestNewPool_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPool([]PeriodInput{{Period: 0}})
	assert.Error(t, err)

	_, err = NewPool([]PeriodInput{{Period: 1}, {Period: 1}})
	assert.Error(t, err)
}

func TestPool_MissingPeriod(t *testing.T) {
	t.Parallel()

	pool, err := NewPool([]PeriodInput{{Period: 1}})
	require.NoError(t, err)

	_, err = pool.Period(2)
	assert.Error(t, err)
}

package tranche

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/schedule"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func classA(t *testing.T) *Tranche {
	t.Helper()
	tr, err := New(Config{
		Name:           "A",
		Seniority:      1,
		CouponRate:     dec("0.05"),
		InitialBalance: dec("200000000"),
		Convention:     schedule.Thirty360,
		Horizon:        40,
	})
	require.NoError(t, err)
	return tr
}

func TestCalc_CouponAccrual(t *testing.T) {
	t.Parallel()

	tr := classA(t)
	tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15))

	// 200mm * 5% * 0.25 = 2.5mm.
	assert.True(t, tr.InterestDue().Equal(dec("2500000")), "due = %s", tr.InterestDue())
}

func TestPayInterest_PartialThenDeferral(t *testing.T) {
	t.Parallel()

	tr := classA(t)
	tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15))

	applied, remainder := tr.PayInterest(dec("1000000"))
	assert.True(t, applied.Equal(dec("1000000")))
	assert.True(t, remainder.IsZero())
	assert.True(t, tr.InterestDue().Equal(dec("1500000")))

	tr.Rollforward()

	// Unpaid coupon carries as deferred interest into the next period's due.
	tr.Calc(date(2026, time.April, 15), date(2026, time.July, 15))
	assert.True(t, tr.InterestDue().Equal(dec("4000000")), "due = %s", tr.InterestDue())
	assert.True(t, tr.Snapshot().DeferredInterest.Equal(dec("1500000")))
}

func TestPayPrincipal_ClampedAtBalance(t *testing.T) {
	t.Parallel()

	tr, err := New(Config{
		Name:           "B",
		Seniority:      2,
		CouponRate:     dec("0.07"),
		InitialBalance: dec("50000000"),
		Convention:     schedule.Thirty360,
		Horizon:        8,
	})
	require.NoError(t, err)

	tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15))

	applied, remainder := tr.PayPrincipal(dec("60000000"))
	assert.True(t, applied.Equal(dec("50000000")))
	assert.True(t, remainder.Equal(dec("10000000")))
	assert.True(t, tr.Balance().IsZero())

	tr.Rollforward()

	// A retired tranche accrues nothing.
	tr.Calc(date(2026, time.April, 15), date(2026, time.July, 15))
	assert.True(t, tr.InterestDue().IsZero())
	assert.True(t, tr.PrincipalDue().IsZero())
}

func TestRollforward_BalanceCommit(t *testing.T) {
	t.Parallel()

	tr := classA(t)
	tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15))
	tr.PayInterest(tr.InterestDue())
	tr.PayPrincipal(dec("20000000"))

	snap := tr.Snapshot()
	assert.True(t, snap.EndingBalance.Equal(dec("180000000")))

	tr.Rollforward()
	assert.Equal(t, 2, tr.Period())

	tr.Calc(date(2026, time.April, 15), date(2026, time.July, 15))
	assert.True(t, tr.Snapshot().BeginningBalance.Equal(dec("180000000")))
	// Coupon now accrues on the reduced balance: 180mm * 5% * 0.25.
	assert.True(t, tr.InterestDue().Equal(dec("2250000")))
}

func TestPreconditions(t *testing.T) {
	t.Parallel()

	var zero Tranche
	assert.Panics(t, func() { zero.Calc(time.Time{}, time.Time{}) })

	tr := classA(t)
	assert.Panics(t, func() { tr.PayInterest(dec("1")) })
	assert.Panics(t, func() { tr.Rollforward() })

	tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15))
	assert.Panics(t, func() { tr.Calc(date(2026, time.January, 15), date(2026, time.April, 15)) })
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Name: "", Horizon: 4})
	assert.Error(t, err)
	_, err = New(Config{Name: "A", Horizon: 0})
	assert.Error(t, err)
	_, err = New(Config{Name: "A", Horizon: 4, CouponRate: dec("-0.01")})
	assert.Error(t, err)
	_, err = New(Config{Name: "A", Horizon: 4, InitialBalance: dec("-1")})
	assert.Error(t, err)
}

package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name       string
		principal  string
		rate       string
		termWeeks  int
		wantProfit string
		wantDebt   string
		wantWeekly string
		wantErr    error
	}{
		{
			name:       "flat 40 percent over ten weeks",
			principal:  "1000",
			rate:       "0.40",
			termWeeks:  10,
			wantProfit: "400",
			wantDebt:   "1400",
			wantWeekly: "140",
		},
		{
			name:       "uneven weekly payment rounds to cents",
			principal:  "1000",
			rate:       "0.30",
			termWeeks:  14,
			wantProfit: "300",
			wantDebt:   "1300",
			wantWeekly: "92.86",
		},
		{
			name:       "zero rate loan",
			principal:  "500",
			rate:       "0",
			termWeeks:  5,
			wantProfit: "0",
			wantDebt:   "500",
			wantWeekly: "100",
		},
		{
			name:      "zero term",
			principal: "1000",
			rate:      "0.40",
			termWeeks: 0,
			wantErr:   ErrInvalidTerm,
		},
		{
			name:      "negative rate",
			principal: "1000",
			rate:      "-0.10",
			termWeeks: 10,
			wantErr:   ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeMetrics(d(tt.principal), d(tt.rate), tt.termWeeks)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Profit.Equal(d(tt.wantProfit)), "profit = %s", got.Profit)
			assert.True(t, got.TotalDebt.Equal(d(tt.wantDebt)), "totalDebt = %s", got.TotalDebt)
			assert.True(t, got.WeeklyPayment.Equal(d(tt.wantWeekly)), "weeklyPayment = %s", got.WeeklyPayment)
		})
	}
}

func TestComputeMetricsWeeklyPaymentNearDebt(t *testing.T) {
	// weeklyPayment x termWeeks must stay within one cent of totalDebt.
	got, err := ComputeMetrics(d("1234.56"), d("0.37"), 13)
	require.NoError(t, err)

	reconstructed := got.WeeklyPayment.Mul(decimal.NewFromInt(13))
	diff := reconstructed.Sub(got.TotalDebt).Abs()
	assert.True(t, diff.LessThan(d("0.13")), "diff = %s", diff)
}

func TestInheritedProfit(t *testing.T) {
	predecessor := Loan{
		PendingAmount:     d("600"),
		ProfitAmount:      d("400"),
		TotalDebtAcquired: d("1400"),
	}

	inherited, err := InheritedProfit(predecessor)
	require.NoError(t, err)
	assert.True(t, inherited.Equal(d("171.43")), "inherited = %s", inherited)
}

func TestInheritedProfitZeroDebt(t *testing.T) {
	inherited, err := InheritedProfit(Loan{
		PendingAmount:     d("0"),
		ProfitAmount:      d("0"),
		TotalDebtAcquired: d("0"),
	})
	require.NoError(t, err)
	assert.True(t, inherited.IsZero())
}

func TestInheritedProfitRejectsRenewedPredecessor(t *testing.T) {
	renewed := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	_, err := InheritedProfit(Loan{
		PendingAmount:     d("600"),
		ProfitAmount:      d("400"),
		TotalDebtAcquired: d("1400"),
		RenewedDate:       &renewed,
		Status:            LoanStatusRenovated,
	})
	assert.ErrorIs(t, err, ErrPredecessorAlreadyRenewed)
}

func TestAllocatePayment(t *testing.T) {
	alloc, err := AllocatePayment(d("140"), d("400"), d("1400"))
	require.NoError(t, err)
	assert.True(t, alloc.ProfitRecognized.Equal(d("40")), "profit = %s", alloc.ProfitRecognized)
	assert.True(t, alloc.PrincipalReturned.Equal(d("100")), "principal = %s", alloc.PrincipalReturned)
}

func TestAllocatePaymentZeroDebt(t *testing.T) {
	alloc, err := AllocatePayment(d("50"), d("0"), d("0"))
	require.NoError(t, err)
	assert.True(t, alloc.ProfitRecognized.IsZero())
	assert.True(t, alloc.PrincipalReturned.Equal(d("50")))
}

func TestAllocatePaymentNegative(t *testing.T) {
	_, err := AllocatePayment(d("-1"), d("400"), d("1400"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAllocatePaymentRoundTrip(t *testing.T) {
	payments := []string{"140", "33.33", "0.01", "999.99", "76.54"}
	for _, p := range payments {
		alloc, err := AllocatePayment(d(p), d("317.29"), d("1417.29"))
		require.NoError(t, err)
		sum := alloc.ProfitRecognized.Add(alloc.PrincipalReturned)
		assert.True(t, sum.Equal(d(p)), "payment %s round-tripped to %s", p, sum)
	}
}

func TestBadDebtCandidateRemovesProfit(t *testing.T) {
	loan := Loan{
		PendingAmount:     d("700"),
		ProfitAmount:      d("400"),
		TotalDebtAcquired: d("1400"),
	}
	candidate := BadDebtCandidate(loan)
	assert.True(t, candidate.Equal(d("500")), "candidate = %s", candidate)
}

func TestProfitRatio(t *testing.T) {
	assert.True(t, ProfitRatio(d("400"), d("1400")).Equal(d("400").Div(d("1400"))))
	assert.True(t, ProfitRatio(d("400"), d("0")).IsZero())
}

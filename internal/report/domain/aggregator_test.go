package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/credia/internal/calendar"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loanWithID(id int64, signDate time.Time) loandomain.Loan {
	l := activeLoan(signDate)
	l.ID = snowflake.ID(id)
	return l
}

func prevID(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func TestCountStatus(t *testing.T) {
	week := calendar.Range(2025, 10)
	before := week.Start.AddDate(0, 0, -30)

	paying := loanWithID(1, before)
	missing := loanWithID(2, before)
	tooYoung := loanWithID(3, week.End.AddDate(0, 0, 1))
	writtenOff := loanWithID(4, before)
	badDebtDate := before.AddDate(0, 0, 7)
	writtenOff.BadDebtDate = &badDebtDate

	payments := PaymentsByLoan{
		paying.ID: {paymentAt(week.Start.AddDate(0, 0, 2))},
	}

	count := CountStatus([]loandomain.Loan{paying, missing, tooYoung, writtenOff}, payments, week)
	assert.Equal(t, 2, count.TotalActive)
	assert.Equal(t, 1, count.Current)
	assert.Equal(t, 1, count.Delinquent)
}

func TestComputeClientBalance(t *testing.T) {
	periodStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	inPeriod := periodStart.AddDate(0, 0, 10)
	outOfPeriod := periodStart.AddDate(0, -2, 0)

	fresh := loanWithID(1, inPeriod)

	renewal := loanWithID(2, inPeriod)
	renewal.PreviousLoanID = prevID(9)

	closed := loanWithID(3, outOfPeriod)
	closed.FinishedDate = &inPeriod

	renewedOut := loanWithID(4, outOfPeriod)
	renewedOut.FinishedDate = &inPeriod
	renewedOut.RenewedDate = &inPeriod

	older := loanWithID(5, outOfPeriod)

	cb := ComputeClientBalance([]loandomain.Loan{fresh, renewal, closed, renewedOut, older}, periodStart, periodEnd)
	assert.Equal(t, 1, cb.New)
	assert.Equal(t, 1, cb.Renewed)
	assert.Equal(t, 1, cb.ClosedWithoutRenewal)
	assert.Equal(t, 1, cb.Balance)
	assert.Equal(t, TrendUp, cb.Trend)
}

func TestComputeClientBalanceTrends(t *testing.T) {
	periodStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	inPeriod := periodStart.AddDate(0, 0, 5)

	closed := loanWithID(1, periodStart.AddDate(0, -3, 0))
	closed.FinishedDate = &inPeriod

	down := ComputeClientBalance([]loandomain.Loan{closed}, periodStart, periodEnd)
	assert.Equal(t, TrendDown, down.Trend)

	stable := ComputeClientBalance(nil, periodStart, periodEnd)
	assert.Equal(t, TrendStable, stable.Trend)
	assert.Equal(t, 0, stable.Balance)
}

func TestComputeRenovationKPIs(t *testing.T) {
	periodStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	inPeriod := periodStart.AddDate(0, 0, 12)

	renewed := loanWithID(1, periodStart.AddDate(0, -2, 0))
	renewed.RenewedDate = &inPeriod

	closed := loanWithID(2, periodStart.AddDate(0, -2, 0))
	closed.FinishedDate = &inPeriod

	kpis := ComputeRenovationKPIs([]loandomain.Loan{renewed, closed}, periodStart, periodEnd)
	assert.Equal(t, 1, kpis.Renewals)
	assert.Equal(t, 1, kpis.ClosuresWithoutRenewal)
	assert.True(t, kpis.RenewalRate.Equal(d("0.5")), "rate = %s", kpis.RenewalRate)

	empty := ComputeRenovationKPIs(nil, periodStart, periodEnd)
	assert.True(t, empty.RenewalRate.IsZero())
}

func TestBuildMonthlyReportCompletedWeekGating(t *testing.T) {
	// March 2025 spans six weeks. Freeze now mid-month so only the
	// first two weeks are completed.
	weeks := calendar.WeeksInMonth(2025, time.March)
	require.Len(t, weeks, 6)
	now := weeks[2].Start.AddDate(0, 0, 1)

	signDate := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	silent := loanWithID(1, signDate)

	report, err := BuildMonthlyReport([]loandomain.Loan{silent}, PaymentsByLoan{}, 2025, time.March, now)
	require.NoError(t, err)
	require.Len(t, report.Weeks, 6)

	completed := 0
	for _, w := range report.Weeks {
		if w.Completed {
			completed++
		}
	}
	assert.Equal(t, 2, completed)

	// One delinquent loan in each of the two completed weeks.
	assert.True(t, report.AvgDelinquent.Equal(d("1")), "avg = %s", report.AvgDelinquent)
}

func TestBuildMonthlyReportNoCompletedWeeks(t *testing.T) {
	weeks := calendar.WeeksInMonth(2025, time.March)
	now := weeks[0].Start

	report, err := BuildMonthlyReport(nil, PaymentsByLoan{}, 2025, time.March, now)
	require.NoError(t, err)
	assert.True(t, report.AvgDelinquent.IsZero())
}

func TestBuildBreakdownOrdering(t *testing.T) {
	week := calendar.Range(2025, 10)
	before := week.Start.AddDate(0, 0, -30)

	north1 := loanWithID(1, before)
	north1.RouteName = "Ruta Norte"
	north2 := loanWithID(2, before)
	north2.RouteName = "Ruta Norte"
	south := loanWithID(3, before)
	south.RouteName = "Ruta Sur"

	payments := PaymentsByLoan{
		north1.ID: {paymentAt(week.Start.AddDate(0, 0, 1))},
	}

	partitions := BuildBreakdown(
		[]loandomain.Loan{north1, north2, south},
		payments,
		AttributionContext{},
		RouteResolvers(),
		week,
	)
	require.Len(t, partitions, 2)
	assert.Equal(t, "ruta-norte", partitions[0].Attribution.Key)
	assert.Equal(t, 2, partitions[0].StatusCount.TotalActive)
	assert.Equal(t, 1, partitions[0].StatusCount.Delinquent)
	assert.Equal(t, "ruta-sur", partitions[1].Attribution.Key)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/internal/calendar"
	"github.com/smallbiznis/credia/internal/clock"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&loandomain.Loan{},
		&loandomain.Payment{},
		&loandomain.Lead{},
		&loandomain.Route{},
		&reportdomain.ReportSnapshot{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(now)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	}).(*Service)

	return &fixture{svc: svc, db: db, clock: fake, node: node}
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (f *fixture) seedLoan(t *testing.T, signDate time.Time, routeName string) loandomain.Loan {
	t.Helper()
	loan := loandomain.Loan{
		ID:                f.node.Generate(),
		LeadID:            f.node.Generate(),
		RouteName:         routeName,
		RequestedAmount:   d("1000"),
		AmountGived:       d("1000"),
		Rate:              d("0.40"),
		TermWeeks:         10,
		ProfitAmount:      d("400"),
		TotalDebtAcquired: d("1400"),
		TotalPaid:         decimal.Zero,
		PendingAmount:     d("1400"),
		SignDate:          signDate,
		Status:            loandomain.LoanStatusActive,
	}
	require.NoError(t, f.db.Create(&loan).Error)
	return loan
}

func (f *fixture) seedPayment(t *testing.T, loanID snowflake.ID, receivedAt time.Time) {
	t.Helper()
	payment := loandomain.Payment{
		ID:            f.node.Generate(),
		LoanID:        loanID,
		ReceiptNumber: fmt.Sprintf("R-%d", f.node.Generate()),
		Amount:        d("140"),
		Comission:     decimal.Zero,
		ReceivedAt:    receivedAt,
		PaymentMethod: loandomain.PaymentMethodCash,
	}
	require.NoError(t, f.db.Create(&payment).Error)
}

func TestWeeklyReportClassifiesLoans(t *testing.T) {
	week := calendar.Range(2025, 10)
	f := newFixture(t, week.End.AddDate(0, 0, 3))

	paying := f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Norte")
	f.seedPayment(t, paying.ID, week.Start.AddDate(0, 0, 1))
	f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Norte")

	report, err := f.svc.Weekly(context.Background(), reportdomain.WeeklyReportRequest{Year: 2025, WeekNumber: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, report.StatusCount.TotalActive)
	assert.Equal(t, 1, report.StatusCount.Current)
	assert.Equal(t, 1, report.StatusCount.Delinquent)
}

func TestMonthlyReportGatesOnCompletedWeeks(t *testing.T) {
	weeks := calendar.WeeksInMonth(2025, time.March)
	require.Len(t, weeks, 6)
	// Freeze time mid-month: two weeks completed.
	f := newFixture(t, weeks[2].Start.AddDate(0, 0, 1))

	f.seedLoan(t, time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC), "Ruta Norte")

	report, err := f.svc.Monthly(context.Background(), reportdomain.MonthlyReportRequest{Year: 2025, Month: time.March})
	require.NoError(t, err)

	require.Len(t, report.Weeks, 6)
	assert.True(t, report.AvgDelinquent.Equal(d("1")), "avg = %s", report.AvgDelinquent)
}

func TestBreakdownByRoute(t *testing.T) {
	week := calendar.Range(2025, 10)
	f := newFixture(t, week.End.AddDate(0, 0, 1))

	f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Norte")
	f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Norte")
	f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Sur")

	resp, err := f.svc.Breakdown(context.Background(), reportdomain.BreakdownRequest{
		Year:       2025,
		WeekNumber: 10,
		Dimension:  reportdomain.BreakdownByRoute,
	})
	require.NoError(t, err)
	require.Len(t, resp.Partitions, 2)
	assert.Equal(t, "ruta-norte", resp.Partitions[0].Attribution.Key)
	assert.Equal(t, 2, resp.Partitions[0].StatusCount.TotalActive)
}

func TestBreakdownInvalidDimension(t *testing.T) {
	f := newFixture(t, time.Now().UTC())
	_, err := f.svc.Breakdown(context.Background(), reportdomain.BreakdownRequest{
		Year:       2025,
		WeekNumber: 10,
		Dimension:  "lead",
	})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidDimension)
}

func TestWriteOffCandidatesStripUncollectedProfit(t *testing.T) {
	f := newFixture(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))

	written := f.seedLoan(t, time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC), "Ruta Norte")
	badDebtDate := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Model(&loandomain.Loan{}).
		Where("id = ?", written.ID).
		Update("bad_debt_date", badDebtDate).Error)

	f.seedLoan(t, time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC), "Ruta Sur")

	candidates, err := f.svc.WriteOffCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	// Pending 1400 at profit ratio 400/1400 loses 400 of profit: 1000 of
	// principal is the real write-off.
	assert.Equal(t, written.ID, candidates[0].LoanID)
	assert.True(t, candidates[0].PendingAmount.Equal(d("1400")))
	assert.True(t, candidates[0].WriteOffValue.Equal(d("1000")), "value = %s", candidates[0].WriteOffValue)
}

func TestSnapshotWeekIdempotent(t *testing.T) {
	week := calendar.Range(2025, 10)
	f := newFixture(t, week.End.AddDate(0, 0, 1))

	f.seedLoan(t, week.Start.AddDate(0, 0, -30), "Ruta Norte")

	first, err := f.svc.SnapshotWeek(context.Background(), 2025, 10)
	require.NoError(t, err)
	assert.Equal(t, "2025-W10", first.PeriodKey)

	second, err := f.svc.SnapshotWeek(context.Background(), 2025, 10)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&reportdomain.ReportSnapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSnapshotWeekRejectsOpenWeek(t *testing.T) {
	week := calendar.Range(2025, 10)
	f := newFixture(t, week.Start.AddDate(0, 0, 2))

	_, err := f.svc.SnapshotWeek(context.Background(), 2025, 10)
	assert.ErrorIs(t, err, reportdomain.ErrWeekNotCompleted)
}

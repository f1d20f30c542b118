package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/internal/calendar"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
)

// Trend summarizes the direction of a client-balance movement.
type Trend string

const (
	TrendUp     Trend = "UP"
	TrendDown   Trend = "DOWN"
	TrendStable Trend = "STABLE"
)

// PaymentsByLoan indexes a payment set by its loan.
type PaymentsByLoan map[snowflake.ID][]loandomain.Payment

// StatusCount tallies delinquency classification over a loan set.
type StatusCount struct {
	TotalActive int `json:"total_active"`
	Current     int `json:"current"`
	Delinquent  int `json:"delinquent"`
}

// ClientBalance is the net movement of the client base over a period.
type ClientBalance struct {
	New                  int   `json:"new"`
	Renewed              int   `json:"renewed"`
	ClosedWithoutRenewal int   `json:"closed_without_renewal"`
	Balance              int   `json:"balance"`
	Trend                Trend `json:"trend"`
}

// RenovationKPIs measure how much of the closing book renews.
type RenovationKPIs struct {
	Renewals               int             `json:"renewals"`
	ClosuresWithoutRenewal int             `json:"closures_without_renewal"`
	RenewalRate            decimal.Decimal `json:"renewal_rate"`
}

// WeeklyReport is the portfolio state classified against one week.
type WeeklyReport struct {
	Week          calendar.WeekRange `json:"week"`
	StatusCount   StatusCount        `json:"status_count"`
	ClientBalance ClientBalance      `json:"client_balance"`
}

// WeekStatus is one week's contribution inside a monthly report.
type WeekStatus struct {
	Week        calendar.WeekRange `json:"week"`
	StatusCount StatusCount        `json:"status_count"`
	Completed   bool               `json:"completed"`
}

// MonthlyReport aggregates every week intersecting a month. Only completed
// weeks feed the delinquency average; client-balance counts are plain date
// comparisons and cover the whole month regardless of week completion.
type MonthlyReport struct {
	Year           int             `json:"year"`
	Month          time.Month      `json:"month"`
	Weeks          []WeekStatus    `json:"weeks"`
	AvgDelinquent  decimal.Decimal `json:"avg_delinquent"`
	ClientBalance  ClientBalance   `json:"client_balance"`
	RenovationKPIs RenovationKPIs  `json:"renovation_kpis"`
}

// BreakdownPartition is one route or locality slice of a breakdown report.
type BreakdownPartition struct {
	Attribution   Attribution   `json:"attribution"`
	StatusCount   StatusCount   `json:"status_count"`
	ClientBalance ClientBalance `json:"client_balance"`
}

// CountStatus classifies every eligible loan in the set for one week.
// Written-off loans belong to a separate pool and are excluded entirely.
func CountStatus(loans []loandomain.Loan, payments PaymentsByLoan, week calendar.WeekRange) StatusCount {
	var count StatusCount
	for _, loan := range loans {
		if loan.IsBadDebt() || !Eligible(loan, week) {
			continue
		}
		count.TotalActive++
		switch Classify(loan, payments[loan.ID], week) {
		case ClassificationCurrent:
			count.Current++
		case ClassificationDelinquent:
			count.Delinquent++
		}
	}
	return count
}

func inRange(t time.Time, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// ComputeClientBalance counts client movement by lifecycle dates alone.
func ComputeClientBalance(loans []loandomain.Loan, periodStart, periodEnd time.Time) ClientBalance {
	var cb ClientBalance
	for _, loan := range loans {
		if inRange(loan.SignDate, periodStart, periodEnd) {
			if loan.PreviousLoanID != nil {
				cb.Renewed++
			} else {
				cb.New++
			}
		}
		if loan.FinishedDate != nil && loan.RenewedDate == nil && inRange(*loan.FinishedDate, periodStart, periodEnd) {
			cb.ClosedWithoutRenewal++
		}
	}
	cb.Balance = cb.New + cb.Renewed - cb.ClosedWithoutRenewal
	switch {
	case cb.Balance > 0:
		cb.Trend = TrendUp
	case cb.Balance < 0:
		cb.Trend = TrendDown
	default:
		cb.Trend = TrendStable
	}
	return cb
}

// ComputeRenovationKPIs measures renewal uptake over a period. A renewal is
// a loan whose RenewedDate falls in range; the rate is renewals over all
// closings, zero when nothing closed.
func ComputeRenovationKPIs(loans []loandomain.Loan, periodStart, periodEnd time.Time) RenovationKPIs {
	var kpis RenovationKPIs
	for _, loan := range loans {
		if loan.RenewedDate != nil && inRange(*loan.RenewedDate, periodStart, periodEnd) {
			kpis.Renewals++
		}
		if loan.FinishedDate != nil && loan.RenewedDate == nil && inRange(*loan.FinishedDate, periodStart, periodEnd) {
			kpis.ClosuresWithoutRenewal++
		}
	}
	denominator := kpis.Renewals + kpis.ClosuresWithoutRenewal
	if denominator == 0 {
		kpis.RenewalRate = decimal.Zero
		return kpis
	}
	kpis.RenewalRate = decimal.NewFromInt(int64(kpis.Renewals)).
		Div(decimal.NewFromInt(int64(denominator)))
	return kpis
}

// BuildWeeklyReport classifies the loan set against a single week.
func BuildWeeklyReport(loans []loandomain.Loan, payments PaymentsByLoan, week calendar.WeekRange) WeeklyReport {
	return WeeklyReport{
		Week:          week,
		StatusCount:   CountStatus(loans, payments, week),
		ClientBalance: ComputeClientBalance(loans, week.Start, week.End),
	}
}

// BuildMonthlyReport iterates every week intersecting the month. The
// delinquency average divides by the number of completed weeks, not the
// month's full week count, so a report run mid-month is not diluted by
// weeks that have not happened yet.
func BuildMonthlyReport(loans []loandomain.Loan, payments PaymentsByLoan, year int, month time.Month, now time.Time) (MonthlyReport, error) {
	weeks := calendar.WeeksInMonth(year, month)
	if len(weeks) == 0 {
		return MonthlyReport{}, ErrEmptyPeriod
	}

	report := MonthlyReport{
		Year:  year,
		Month: month,
		Weeks: make([]WeekStatus, 0, len(weeks)),
	}

	delinquentSum := 0
	completedWeeks := 0
	for _, week := range weeks {
		status := WeekStatus{
			Week:        week,
			StatusCount: CountStatus(loans, payments, week),
			Completed:   week.IsCompleted(now),
		}
		if status.Completed {
			delinquentSum += status.StatusCount.Delinquent
			completedWeeks++
		}
		report.Weeks = append(report.Weeks, status)
	}

	if completedWeeks > 0 {
		report.AvgDelinquent = decimal.NewFromInt(int64(delinquentSum)).
			Div(decimal.NewFromInt(int64(completedWeeks)))
	} else {
		report.AvgDelinquent = decimal.Zero
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	report.ClientBalance = ComputeClientBalance(loans, monthStart, monthEnd)
	report.RenovationKPIs = ComputeRenovationKPIs(loans, monthStart, monthEnd)

	return report, nil
}

// BuildBreakdown partitions the loan set by the resolver chain and reports
// each partition independently, largest active book first.
func BuildBreakdown(loans []loandomain.Loan, payments PaymentsByLoan, ctx AttributionContext, resolvers []AttributionResolver, week calendar.WeekRange) []BreakdownPartition {
	groups := make(map[string][]loandomain.Loan)
	labels := make(map[string]Attribution)
	for _, loan := range loans {
		attr := ResolveAttribution(resolvers, loan, ctx)
		groups[attr.Key] = append(groups[attr.Key], loan)
		labels[attr.Key] = attr
	}

	partitions := make([]BreakdownPartition, 0, len(groups))
	for key, group := range groups {
		partitions = append(partitions, BreakdownPartition{
			Attribution:   labels[key],
			StatusCount:   CountStatus(group, payments, week),
			ClientBalance: ComputeClientBalance(group, week.Start, week.End),
		})
	}

	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].StatusCount.TotalActive != partitions[j].StatusCount.TotalActive {
			return partitions[i].StatusCount.TotalActive > partitions[j].StatusCount.TotalActive
		}
		return partitions[i].Attribution.Key < partitions[j].Attribution.Key
	})
	return partitions
}

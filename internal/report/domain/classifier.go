package domain

import (
	"github.com/smallbiznis/credia/internal/calendar"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
)

// Classification is the delinquency state of a loan for one week.
type Classification string

const (
	ClassificationCurrent    Classification = "CURRENT"
	ClassificationDelinquent Classification = "DELINQUENT"
)

// Eligible reports whether a loan participates in classification for the
// given week. A loan must have been signed by the week's end and must not
// have finished or been renewed before the week closed. Cancelled loans
// carry no lifecycle dates and are excluded outright.
func Eligible(loan loandomain.Loan, week calendar.WeekRange) bool {
	if loan.Status == loandomain.LoanStatusCancelled {
		return false
	}
	if loan.SignDate.After(week.End) {
		return false
	}
	if loan.FinishedDate != nil && !loan.FinishedDate.After(week.End) {
		return false
	}
	if loan.RenewedDate != nil && !loan.RenewedDate.After(week.End) {
		return false
	}
	return true
}

// Classify decides whether a loan is current or delinquent for one week.
// The rule is strictly week-scoped: a loan is delinquent if and only if no
// payment landed inside the week's window. A zero-debt loan is always
// current since there is nothing to be delinquent on.
func Classify(loan loandomain.Loan, payments []loandomain.Payment, week calendar.WeekRange) Classification {
	if loan.TotalDebtAcquired.IsZero() {
		return ClassificationCurrent
	}
	for _, p := range payments {
		if week.Contains(p.ReceivedAt) {
			return ClassificationCurrent
		}
	}
	return ClassificationDelinquent
}

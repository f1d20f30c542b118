package domain

import "github.com/shopspring/decimal"

// moneyScale is the currency minor unit used for display rounding. Stored
// balances keep full precision.
const moneyScale = 2

// Metrics are the origination economics of a flat-rate loan.
type Metrics struct {
	Profit        decimal.Decimal `json:"profit"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	WeeklyPayment decimal.Decimal `json:"weekly_payment"`
}

// Allocation is the split of a single payment between recognized profit and
// recovered principal.
type Allocation struct {
	ProfitRecognized  decimal.Decimal `json:"profit_recognized"`
	PrincipalReturned decimal.Decimal `json:"principal_returned"`
}

// ComputeMetrics derives profit, total debt and the expected weekly payment
// from principal, flat rate and term. Only the weekly payment is rounded;
// debt totals keep exact scale.
func ComputeMetrics(principal, rate decimal.Decimal, termWeeks int) (Metrics, error) {
	if termWeeks <= 0 {
		return Metrics{}, ErrInvalidTerm
	}
	if rate.IsNegative() {
		return Metrics{}, ErrInvalidRate
	}

	profit := principal.Mul(rate)
	totalDebt := principal.Add(profit)
	weeklyPayment := totalDebt.Div(decimal.NewFromInt(int64(termWeeks))).Round(moneyScale)

	return Metrics{
		Profit:        profit,
		TotalDebt:     totalDebt,
		WeeklyPayment: weeklyPayment,
	}, nil
}

// ProfitRatio is the fixed fraction of every dollar of debt that represents
// lender profit. Zero-debt loans have a zero ratio.
func ProfitRatio(totalProfit, totalDebt decimal.Decimal) decimal.Decimal {
	if totalDebt.IsZero() {
		return decimal.Zero
	}
	return totalProfit.Div(totalDebt)
}

// SplitProportional carves a slice of debt into its profit and principal
// components using the loan's original profit ratio. Renewal inheritance,
// payment allocation and write-off estimation all go through here so the
// three call sites cannot drift apart.
func SplitProportional(slice, totalProfit, totalDebt decimal.Decimal) (profit, principal decimal.Decimal) {
	if totalDebt.IsZero() {
		return decimal.Zero, slice
	}
	// Multiply before dividing so ratios that cancel cleanly stay exact.
	profit = slice.Mul(totalProfit).Div(totalDebt)
	principal = slice.Sub(profit)
	return profit, principal
}

// InheritedProfit computes the share of a predecessor's unrecovered profit
// that carries into a renewal loan. The predecessor must not already have a
// successor.
func InheritedProfit(predecessor Loan) (decimal.Decimal, error) {
	if predecessor.RenewedDate != nil || predecessor.Status == LoanStatusRenovated {
		return decimal.Zero, ErrPredecessorAlreadyRenewed
	}
	inherited, _ := SplitProportional(predecessor.PendingAmount, predecessor.ProfitAmount, predecessor.TotalDebtAcquired)
	return inherited.Round(moneyScale), nil
}

// AllocatePayment splits an incoming payment between recognized profit and
// returned principal. The two components always sum back to the exact
// payment amount.
func AllocatePayment(payment, totalProfit, totalDebt decimal.Decimal) (Allocation, error) {
	if payment.IsNegative() {
		return Allocation{}, ErrInvalidAmount
	}
	profit, principal := SplitProportional(payment, totalProfit, totalDebt)
	return Allocation{
		ProfitRecognized:  profit,
		PrincipalReturned: principal,
	}, nil
}

// BadDebtCandidate is the write-off value of a loan with uncollected profit
// removed. Only the principal component of the pending balance is lost.
func BadDebtCandidate(loan Loan) decimal.Decimal {
	_, principal := SplitProportional(loan.PendingAmount, loan.ProfitAmount, loan.TotalDebtAcquired)
	return principal
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LoanStatus tracks the loan lifecycle.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusFinished  LoanStatus = "FINISHED"
	LoanStatusRenovated LoanStatus = "RENOVATED"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// PaymentMethod identifies how a payment was collected.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Loan is a flat-rate microloan paid down in weekly installments. Route and
// locality are snapshotted at origination so historical reports stay stable
// when a lead is later reassigned.
type Loan struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	LeadID snowflake.ID `gorm:"not null;index" json:"lead_id"`

	RouteID   *snowflake.ID `gorm:"index" json:"route_id,omitempty"`
	RouteName string        `gorm:"type:text" json:"route_name,omitempty"`
	Locality  string        `gorm:"type:text" json:"locality,omitempty"`

	RequestedAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"requested_amount"`
	AmountGived           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount_gived"`
	Rate                  decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"rate"`
	TermWeeks             int             `gorm:"not null" json:"term_weeks"`
	ProfitAmount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"profit_amount"`
	TotalDebtAcquired     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_debt_acquired"`
	ExpectedWeeklyPayment decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"expected_weekly_payment"`
	TotalPaid             decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_paid"`
	PendingAmount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"pending_amount"`

	SignDate     time.Time  `gorm:"not null;index" json:"sign_date"`
	RenewedDate  *time.Time `gorm:"index" json:"renewed_date,omitempty"`
	FinishedDate *time.Time `gorm:"index" json:"finished_date,omitempty"`
	BadDebtDate  *time.Time `json:"bad_debt_date,omitempty"`

	PreviousLoanID *snowflake.ID `gorm:"uniqueIndex" json:"previous_loan_id,omitempty"`

	Status    LoanStatus `gorm:"type:text;not null;index" json:"status"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Loan) TableName() string { return "loans" }

// IsBadDebt reports whether the loan has been written off.
func (l Loan) IsBadDebt() bool { return l.BadDebtDate != nil }

// Payment is an append-only record of cash received against a loan. Payments
// are removed only through a compensating cancellation that also removes the
// ledger transactions they produced.
type Payment struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	LoanID        snowflake.ID    `gorm:"not null;index" json:"loan_id"`
	ReceiptNumber string          `gorm:"type:text;not null;uniqueIndex" json:"receipt_number"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Comission     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"comission"`
	ReceivedAt    time.Time       `gorm:"not null;index" json:"received_at"`
	PaymentMethod PaymentMethod   `gorm:"type:text;not null" json:"payment_method"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Lead is the field agent responsible for a set of loans.
type Lead struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	FullName  string        `gorm:"type:text;not null" json:"full_name"`
	RouteID   *snowflake.ID `gorm:"index" json:"route_id,omitempty"`
	Locality  string        `gorm:"type:text" json:"locality,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Lead) TableName() string { return "leads" }

// Route is a collection territory serviced by leads.
type Route struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Route) TableName() string { return "routes" }

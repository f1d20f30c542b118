package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AccountType identifies the cash pools the ledger tracks.
type AccountType string

const (
	AccountTypeBank             AccountType = "BANK"
	AccountTypeOfficeCashFund   AccountType = "OFFICE_CASH_FUND"
	AccountTypeEmployeeCashFund AccountType = "EMPLOYEE_CASH_FUND"
	AccountTypePrepaidFuel      AccountType = "PREPAID_FUEL"
	AccountTypeTravelExpenses   AccountType = "TRAVEL_EXPENSES"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Account is a cash pool with a cached balance. The balance is a derived
// value; the transaction set is the source of truth and recalculation is the
// only code path allowed to write Amount.
type Account struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Type      AccountType     `gorm:"type:text;not null;index" json:"type"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// Transaction is an immutable ledger entry documenting cash movement. An
// INCOME entry credits the account named in SourceAccountID when no
// destination is set; EXPENSE and TRANSFER entries debit it.
type Transaction struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date                 time.Time       `gorm:"not null;index" json:"date"`
	Type                 TransactionType `gorm:"type:text;not null;index" json:"type"`
	SourceAccountID      *snowflake.ID   `gorm:"index" json:"source_account_id,omitempty"`
	DestinationAccountID *snowflake.ID   `gorm:"index" json:"destination_account_id,omitempty"`
	LoanID               *snowflake.ID   `gorm:"index" json:"loan_id,omitempty"`
	PaymentID            *snowflake.ID   `gorm:"index" json:"payment_id,omitempty"`
	RouteID              *snowflake.ID   `gorm:"index" json:"route_id,omitempty"`
	LeadID               *snowflake.ID   `gorm:"index" json:"lead_id,omitempty"`
	Description          string          `gorm:"type:text" json:"description,omitempty"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

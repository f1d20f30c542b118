package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/pkg/db/pagination"
)

type CreateAccountRequest struct {
	Name string      `json:"name"`
	Type AccountType `json:"type"`
}

type CreateTransactionRequest struct {
	Amount               decimal.Decimal `json:"amount"`
	Date                 *time.Time      `json:"date,omitempty"`
	Type                 TransactionType `json:"type"`
	SourceAccountID      *snowflake.ID   `json:"source_account_id,omitempty"`
	DestinationAccountID *snowflake.ID   `json:"destination_account_id,omitempty"`
	LoanID               *snowflake.ID   `json:"loan_id,omitempty"`
	PaymentID            *snowflake.ID   `json:"payment_id,omitempty"`
	RouteID              *snowflake.ID   `json:"route_id,omitempty"`
	LeadID               *snowflake.ID   `json:"lead_id,omitempty"`
	Description          string          `json:"description,omitempty"`
}

type ListTransactionRequest struct {
	pagination.Pagination
	AccountID *snowflake.ID   `form:"account_id"`
	LoanID    *snowflake.ID   `form:"loan_id"`
	Type      TransactionType `form:"type"`
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	CreateAccount(context.Context, CreateAccountRequest) (*Account, error)
	GetAccount(ctx context.Context, accountID snowflake.ID) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CreateTransaction(context.Context, CreateTransactionRequest) (*Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID snowflake.ID) error
	ListTransactions(context.Context, ListTransactionRequest) (ListTransactionResponse, error)
	RecalculateAccount(ctx context.Context, accountID snowflake.ID) (*Account, error)
}

var (
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrInvalidTransaction  = errors.New("invalid_transaction")
	ErrMissingAccount      = errors.New("missing_account")
)

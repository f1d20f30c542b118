package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/pkg/db/pagination"
)

type OriginateLoanRequest struct {
	LeadID          snowflake.ID    `json:"lead_id"`
	RouteID         *snowflake.ID   `json:"route_id,omitempty"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	Rate            decimal.Decimal `json:"rate"`
	TermWeeks       int             `json:"term_weeks"`
	SignDate        *time.Time      `json:"sign_date,omitempty"`
	FundingAccount  snowflake.ID    `json:"funding_account"`
}

type BatchOriginateRequest struct {
	Loans []OriginateLoanRequest `json:"loans"`
}

type RenewLoanRequest struct {
	PreviousLoanID  snowflake.ID    `json:"previous_loan_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	Rate            decimal.Decimal `json:"rate"`
	TermWeeks       int             `json:"term_weeks"`
	SignDate        *time.Time      `json:"sign_date,omitempty"`
	FundingAccount  snowflake.ID    `json:"funding_account"`
}

type RecordPaymentRequest struct {
	LoanID            snowflake.ID    `json:"loan_id"`
	Amount            decimal.Decimal `json:"amount"`
	Comission         decimal.Decimal `json:"comission"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	CollectionAccount snowflake.ID    `json:"collection_account"`
}

type RecordPaymentResponse struct {
	Payment    Payment    `json:"payment"`
	Loan       Loan       `json:"loan"`
	Allocation Allocation `json:"allocation"`
}

type ListLoanRequest struct {
	pagination.Pagination
	LeadID  *snowflake.ID `form:"lead_id"`
	RouteID *snowflake.ID `form:"route_id"`
	Status  LoanStatus    `form:"status"`
}

type ListLoanResponse struct {
	pagination.PageInfo
	Loans []Loan `json:"loans"`
}

type Service interface {
	Originate(context.Context, OriginateLoanRequest) (*Loan, error)
	BatchOriginate(context.Context, BatchOriginateRequest) ([]Loan, error)
	Renew(context.Context, RenewLoanRequest) (*Loan, error)
	RecordPayment(context.Context, RecordPaymentRequest) (*RecordPaymentResponse, error)
	CancelPayment(ctx context.Context, paymentID snowflake.ID) error
	MarkBadDebt(ctx context.Context, loanID snowflake.ID) (*Loan, error)
	UnmarkBadDebt(ctx context.Context, loanID snowflake.ID) (*Loan, error)
	Get(ctx context.Context, loanID snowflake.ID) (*Loan, error)
	List(context.Context, ListLoanRequest) (ListLoanResponse, error)
}

var (
	ErrInvalidTerm               = errors.New("invalid_term")
	ErrInvalidRate               = errors.New("invalid_rate")
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrPredecessorAlreadyRenewed = errors.New("predecessor_already_renewed")
	ErrLoanNotFound              = errors.New("loan_not_found")
	ErrLoanNotActive             = errors.New("loan_not_active")
	ErrLeadNotFound              = errors.New("lead_not_found")
	ErrPaymentNotFound           = errors.New("payment_not_found")
	ErrLoanNotBadDebt            = errors.New("loan_not_bad_debt")
	ErrLoanAlreadyBadDebt        = errors.New("loan_already_bad_debt")
	ErrEmptyBatch                = errors.New("empty_batch")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BreakdownDimension selects how a breakdown report partitions loans.
type BreakdownDimension string

const (
	BreakdownByRoute    BreakdownDimension = "route"
	BreakdownByLocality BreakdownDimension = "locality"
)

type WeeklyReportRequest struct {
	Year       int `form:"year"`
	WeekNumber int `form:"week"`
}

type MonthlyReportRequest struct {
	Year  int        `form:"year"`
	Month time.Month `form:"month"`
}

type BreakdownRequest struct {
	Year       int                `form:"year"`
	WeekNumber int                `form:"week"`
	Dimension  BreakdownDimension `form:"dimension"`
}

type BreakdownResponse struct {
	Week       int                  `json:"week"`
	Year       int                  `json:"year"`
	Dimension  BreakdownDimension   `json:"dimension"`
	Partitions []BreakdownPartition `json:"partitions"`
}

// WriteOffCandidate is a written-off loan valued at its recoverable
// principal: the pending balance with uncollected profit removed.
type WriteOffCandidate struct {
	LoanID        snowflake.ID    `json:"loan_id"`
	LeadID        snowflake.ID    `json:"lead_id"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	WriteOffValue decimal.Decimal `json:"write_off_value"`
	BadDebtDate   time.Time       `json:"bad_debt_date"`
}

type Service interface {
	Weekly(context.Context, WeeklyReportRequest) (*WeeklyReport, error)
	Monthly(context.Context, MonthlyReportRequest) (*MonthlyReport, error)
	Breakdown(context.Context, BreakdownRequest) (*BreakdownResponse, error)
	WriteOffCandidates(ctx context.Context) ([]WriteOffCandidate, error)
	SnapshotWeek(ctx context.Context, year, weekNumber int) (*ReportSnapshot, error)
}

var (
	ErrEmptyPeriod      = errors.New("empty_period")
	ErrInvalidDimension = errors.New("invalid_dimension")
	ErrWeekNotCompleted = errors.New("week_not_completed")
)

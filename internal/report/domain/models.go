package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ReportKind distinguishes persisted snapshot flavors.
type ReportKind string

const (
	ReportKindWeekly    ReportKind = "WEEKLY"
	ReportKindMonthly   ReportKind = "MONTHLY"
	ReportKindBreakdown ReportKind = "BREAKDOWN"
)

// ReportSnapshot is a persisted report for a completed period. Completed
// weeks never change, so a snapshot taken after the week closes is final and
// safe to serve without recomputation.
type ReportSnapshot struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Kind        ReportKind        `gorm:"type:text;not null;uniqueIndex:ux_report_snapshots_period,priority:1" json:"kind"`
	PeriodKey   string            `gorm:"type:text;not null;uniqueIndex:ux_report_snapshots_period,priority:2" json:"period_key"`
	Payload     datatypes.JSONMap `gorm:"not null" json:"payload"`
	GeneratedAt time.Time         `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ReportSnapshot) TableName() string { return "report_snapshots" }

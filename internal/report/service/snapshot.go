package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/credia/internal/calendar"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func weekPeriodKey(year, weekNumber int) string {
	return fmt.Sprintf("%d-W%02d", year, weekNumber)
}

// SnapshotWeek persists the final report for a completed week. Snapshots
// are idempotent per period: re-running the job after a crash or a
// scheduler overlap returns the existing row instead of duplicating it.
func (s *Service) SnapshotWeek(ctx context.Context, year, weekNumber int) (*reportdomain.ReportSnapshot, error) {
	week := calendar.Range(year, weekNumber)
	now := s.clock.Now()
	if !week.IsCompleted(now) {
		return nil, reportdomain.ErrWeekNotCompleted
	}

	report, err := s.buildWeekly(ctx, week)
	if err != nil {
		return nil, err
	}

	payload, err := toJSONMap(report)
	if err != nil {
		return nil, err
	}

	periodKey := weekPeriodKey(year, weekNumber)
	snapshot := &reportdomain.ReportSnapshot{
		ID:          s.genID.Generate(),
		Kind:        reportdomain.ReportKindWeekly,
		PeriodKey:   periodKey,
		Payload:     payload,
		GeneratedAt: now,
		CreatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`INSERT INTO report_snapshots (id, kind, period_key, payload, generated_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (kind, period_key) DO NOTHING`,
			snapshot.ID,
			string(snapshot.Kind),
			snapshot.PeriodKey,
			snapshot.Payload,
			snapshot.GeneratedAt,
			snapshot.CreatedAt,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			s.log.Info("snapshot already exists",
				zap.String("period", periodKey),
			)
			return tx.WithContext(ctx).
				Where("kind = ? AND period_key = ?", reportdomain.ReportKindWeekly, periodKey).
				First(snapshot).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func toJSONMap(value any) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var payload datatypes.JSONMap
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

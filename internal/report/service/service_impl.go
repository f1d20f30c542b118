package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/credia/internal/cache"
	"github.com/smallbiznis/credia/internal/calendar"
	"github.com/smallbiznis/credia/internal/clock"
	"github.com/smallbiznis/credia/internal/config"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"github.com/smallbiznis/credia/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cache     cache.ReportCache             `optional:"true"`
	Metrics   *metrics.Metrics              `optional:"true"`
	Portfolio *config.PortfolioConfigHolder `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cache     cache.ReportCache
	metrics   *metrics.Metrics
	portfolio *config.PortfolioConfigHolder

	genID *snowflake.Node
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		clock:     p.Clock,
		cache:     p.Cache,
		metrics:   p.Metrics,
		portfolio: p.Portfolio,

		genID: p.GenID,
	}
}

func (s *Service) Weekly(ctx context.Context, req reportdomain.WeeklyReportRequest) (*reportdomain.WeeklyReport, error) {
	week := calendar.Range(req.Year, req.WeekNumber)
	completed := week.IsCompleted(s.clock.Now())

	if completed && s.cache != nil {
		var cached reportdomain.WeeklyReport
		if hit, err := s.cache.Get(ctx, cache.WeeklyReportKey(req.Year, req.WeekNumber), &cached); err != nil {
			s.log.Warn("report cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	report, err := s.buildWeekly(ctx, week)
	if err != nil {
		return nil, err
	}

	if completed && s.cache != nil {
		if err := s.cache.Set(ctx, cache.WeeklyReportKey(req.Year, req.WeekNumber), report); err != nil {
			s.log.Warn("report cache write failed", zap.Error(err))
		}
	}

	s.recordGenerated(ctx, string(reportdomain.ReportKindWeekly))
	return report, nil
}

func (s *Service) buildWeekly(ctx context.Context, week calendar.WeekRange) (*reportdomain.WeeklyReport, error) {
	loans, err := s.loadLoans(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.loadPayments(ctx, week.Start, week.End)
	if err != nil {
		return nil, err
	}

	report := reportdomain.WeeklyReport{
		Week:          week,
		StatusCount:   s.countStatus(loans, payments, week),
		ClientBalance: reportdomain.ComputeClientBalance(loans, week.Start, week.End),
	}
	return &report, nil
}

func (s *Service) Monthly(ctx context.Context, req reportdomain.MonthlyReportRequest) (*reportdomain.MonthlyReport, error) {
	weeks := calendar.WeeksInMonth(req.Year, req.Month)
	if len(weeks) == 0 {
		return nil, reportdomain.ErrEmptyPeriod
	}

	now := s.clock.Now()
	allCompleted := weeks[len(weeks)-1].IsCompleted(now)

	if allCompleted && s.cache != nil {
		var cached reportdomain.MonthlyReport
		if hit, err := s.cache.Get(ctx, cache.MonthlyReportKey(req.Year, req.Month), &cached); err != nil {
			s.log.Warn("report cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	loans, err := s.loadLoans(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.loadPayments(ctx, weeks[0].Start, weeks[len(weeks)-1].End)
	if err != nil {
		return nil, err
	}

	report, err := reportdomain.BuildMonthlyReport(loans, payments, req.Year, req.Month, now)
	if err != nil {
		return nil, err
	}

	if allCompleted && s.cache != nil {
		if err := s.cache.Set(ctx, cache.MonthlyReportKey(req.Year, req.Month), report); err != nil {
			s.log.Warn("report cache write failed", zap.Error(err))
		}
	}

	s.recordGenerated(ctx, string(reportdomain.ReportKindMonthly))
	return &report, nil
}

func (s *Service) Breakdown(ctx context.Context, req reportdomain.BreakdownRequest) (*reportdomain.BreakdownResponse, error) {
	var resolvers []reportdomain.AttributionResolver
	switch req.Dimension {
	case reportdomain.BreakdownByRoute, "":
		resolvers = reportdomain.RouteResolvers()
	case reportdomain.BreakdownByLocality:
		resolvers = reportdomain.LocalityResolvers()
	default:
		return nil, reportdomain.ErrInvalidDimension
	}

	week := calendar.Range(req.Year, req.WeekNumber)

	loans, err := s.loadLoans(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.loadPayments(ctx, week.Start, week.End)
	if err != nil {
		return nil, err
	}
	attributionCtx, err := s.loadAttributionContext(ctx)
	if err != nil {
		return nil, err
	}

	partitions := reportdomain.BuildBreakdown(loans, payments, attributionCtx, resolvers, week)

	s.recordGenerated(ctx, string(reportdomain.ReportKindBreakdown))
	return &reportdomain.BreakdownResponse{
		Week:       req.WeekNumber,
		Year:       req.Year,
		Dimension:  req.Dimension,
		Partitions: partitions,
	}, nil
}

// countStatus applies the strict week-window classifier, then the optional
// first-week grace policy on top: a loan signed inside the week under
// review is not penalized for missing a payment it never owed.
func (s *Service) countStatus(loans []loandomain.Loan, payments reportdomain.PaymentsByLoan, week calendar.WeekRange) reportdomain.StatusCount {
	grace := s.portfolio != nil && s.portfolio.Get().FirstWeekGrace

	var count reportdomain.StatusCount
	for _, loan := range loans {
		if loan.IsBadDebt() || !reportdomain.Eligible(loan, week) {
			continue
		}
		count.TotalActive++

		classification := reportdomain.Classify(loan, payments[loan.ID], week)
		if classification == reportdomain.ClassificationDelinquent && grace && week.Contains(loan.SignDate) {
			classification = reportdomain.ClassificationCurrent
		}

		switch classification {
		case reportdomain.ClassificationCurrent:
			count.Current++
		case reportdomain.ClassificationDelinquent:
			count.Delinquent++
		}
	}
	return count
}

// WriteOffCandidates lists written-off loans with the value actually lost:
// the pending balance stripped of its uncollected profit component.
func (s *Service) WriteOffCandidates(ctx context.Context) ([]reportdomain.WriteOffCandidate, error) {
	var loans []loandomain.Loan
	if err := s.db.WithContext(ctx).
		Where("bad_debt_date IS NOT NULL").
		Order("bad_debt_date ASC").
		Find(&loans).Error; err != nil {
		return nil, err
	}

	candidates := make([]reportdomain.WriteOffCandidate, 0, len(loans))
	for _, loan := range loans {
		candidates = append(candidates, reportdomain.WriteOffCandidate{
			LoanID:        loan.ID,
			LeadID:        loan.LeadID,
			PendingAmount: loan.PendingAmount,
			WriteOffValue: loandomain.BadDebtCandidate(loan),
			BadDebtDate:   *loan.BadDebtDate,
		})
	}
	return candidates, nil
}

func (s *Service) loadLoans(ctx context.Context) ([]loandomain.Loan, error) {
	var loans []loandomain.Loan
	if err := s.db.WithContext(ctx).Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *Service) loadPayments(ctx context.Context, start, end time.Time) (reportdomain.PaymentsByLoan, error) {
	var payments []loandomain.Payment
	if err := s.db.WithContext(ctx).
		Where("received_at >= ? AND received_at <= ?", start, end).
		Find(&payments).Error; err != nil {
		return nil, err
	}

	indexed := make(reportdomain.PaymentsByLoan, len(payments))
	for _, payment := range payments {
		indexed[payment.LoanID] = append(indexed[payment.LoanID], payment)
	}
	return indexed, nil
}

func (s *Service) loadAttributionContext(ctx context.Context) (reportdomain.AttributionContext, error) {
	attribution := reportdomain.AttributionContext{
		LeadsByID:  map[snowflake.ID]loandomain.Lead{},
		RoutesByID: map[snowflake.ID]loandomain.Route{},
	}

	var leads []loandomain.Lead
	if err := s.db.WithContext(ctx).Find(&leads).Error; err != nil {
		return attribution, err
	}
	for _, lead := range leads {
		attribution.LeadsByID[lead.ID] = lead
	}

	var routes []loandomain.Route
	if err := s.db.WithContext(ctx).Find(&routes).Error; err != nil {
		return attribution, err
	}
	for _, route := range routes {
		attribution.RoutesByID[route.ID] = route
	}
	return attribution, nil
}

func (s *Service) recordGenerated(ctx context.Context, kind string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordReportGenerated(ctx, kind)
}

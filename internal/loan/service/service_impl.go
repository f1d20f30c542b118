package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/internal/cache"
	"github.com/smallbiznis/credia/internal/clock"
	"github.com/smallbiznis/credia/internal/config"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"github.com/smallbiznis/credia/internal/observability/metrics"
	"github.com/smallbiznis/credia/pkg/db"
	"github.com/smallbiznis/credia/pkg/db/pagination"
	"github.com/smallbiznis/credia/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

	genID    *snowflake.Node
	loanrepo repository.Repository[loandomain.Loan]
}

func NewService(p ServiceParam) loandomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("loan.service"),
		clock:     p.Clock,
		cache:     p.Cache,
		metrics:   p.Metrics,
		portfolio: p.Portfolio,

		genID:    p.GenID,
		loanrepo: repository.ProvideStore[loandomain.Loan](p.DB),
	}
}

func (s *Service) Originate(ctx context.Context, req loandomain.OriginateLoanRequest) (*loandomain.Loan, error) {
	var loan *loandomain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.originateWithin(ctx, tx, req)
		if err != nil {
			return err
		}
		loan = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordOrigination(ctx, loan)
	return loan, nil
}

func (s *Service) BatchOriginate(ctx context.Context, req loandomain.BatchOriginateRequest) ([]loandomain.Loan, error) {
	if len(req.Loans) == 0 {
		return nil, loandomain.ErrEmptyBatch
	}

	loans := make([]loandomain.Loan, 0, len(req.Loans))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Loans {
			created, err := s.originateWithin(ctx, tx, item)
			if err != nil {
				return err
			}
			loans = append(loans, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range loans {
		s.recordOrigination(ctx, &loans[i])
	}
	return loans, nil
}

// originateWithin creates one loan and its funding expense inside the
// caller's transaction. Batch origination loops over it so a single failing
// loan rolls back the whole batch.
func (s *Service) originateWithin(ctx context.Context, tx *gorm.DB, req loandomain.OriginateLoanRequest) (*loandomain.Loan, error) {
	if !req.RequestedAmount.IsPositive() {
		return nil, loandomain.ErrInvalidAmount
	}
	if err := s.checkTermPolicy(req.TermWeeks); err != nil {
		return nil, err
	}

	rate := s.resolveRate(req.Rate)
	computed, err := loandomain.ComputeMetrics(req.RequestedAmount, rate, req.TermWeeks)
	if err != nil {
		return nil, err
	}

	lead, err := s.findLead(ctx, tx, req.LeadID)
	if err != nil {
		return nil, err
	}

	routeID := req.RouteID
	if routeID == nil {
		routeID = lead.RouteID
	}
	routeName, err := s.routeName(ctx, tx, routeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	signDate := now
	if req.SignDate != nil {
		signDate = req.SignDate.UTC()
	}

	loan := &loandomain.Loan{
		ID:                    s.genID.Generate(),
		LeadID:                lead.ID,
		RouteID:               routeID,
		RouteName:             routeName,
		Locality:              lead.Locality,
		RequestedAmount:       req.RequestedAmount,
		AmountGived:           req.RequestedAmount,
		Rate:                  rate,
		TermWeeks:             req.TermWeeks,
		ProfitAmount:          computed.Profit,
		TotalDebtAcquired:     computed.TotalDebt,
		ExpectedWeeklyPayment: computed.WeeklyPayment,
		TotalPaid:             decimal.Zero,
		PendingAmount:         computed.TotalDebt,
		SignDate:              signDate,
		Status:                loandomain.LoanStatusActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := tx.WithContext(ctx).Create(loan).Error; err != nil {
		return nil, err
	}

	if err := s.postDisbursement(ctx, tx, loan, req.FundingAccount, loan.AmountGived); err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *Service) Renew(ctx context.Context, req loandomain.RenewLoanRequest) (*loandomain.Loan, error) {
	var loan *loandomain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		predecessor, err := s.findLoanForUpdate(ctx, tx, req.PreviousLoanID)
		if err != nil {
			return err
		}
		if predecessor.Status != loandomain.LoanStatusActive {
			if predecessor.Status == loandomain.LoanStatusRenovated {
				return loandomain.ErrPredecessorAlreadyRenewed
			}
			return loandomain.ErrLoanNotActive
		}

		if !req.RequestedAmount.IsPositive() {
			return loandomain.ErrInvalidAmount
		}
		if err := s.checkTermPolicy(req.TermWeeks); err != nil {
			return err
		}

		rate := s.resolveRate(req.Rate)
		computed, err := loandomain.ComputeMetrics(req.RequestedAmount, rate, req.TermWeeks)
		if err != nil {
			return err
		}
		inherited, err := loandomain.InheritedProfit(*predecessor)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		signDate := now
		if req.SignDate != nil {
			signDate = req.SignDate.UTC()
		}

		// The new loan absorbs the predecessor's remaining debt: its
		// profit grows by the inherited share and the cash actually
		// disbursed shrinks by the old balance.
		totalDebt := computed.TotalDebt.Add(inherited)
		amountGived := req.RequestedAmount.Sub(predecessor.PendingAmount)
		if amountGived.IsNegative() {
			amountGived = decimal.Zero
		}
		weekly := totalDebt.Div(decimal.NewFromInt(int64(req.TermWeeks))).Round(2)

		loan = &loandomain.Loan{
			ID:                    s.genID.Generate(),
			LeadID:                predecessor.LeadID,
			RouteID:               predecessor.RouteID,
			RouteName:             predecessor.RouteName,
			Locality:              predecessor.Locality,
			RequestedAmount:       req.RequestedAmount,
			AmountGived:           amountGived,
			Rate:                  rate,
			TermWeeks:             req.TermWeeks,
			ProfitAmount:          computed.Profit.Add(inherited),
			TotalDebtAcquired:     totalDebt,
			ExpectedWeeklyPayment: weekly,
			TotalPaid:             decimal.Zero,
			PendingAmount:         totalDebt,
			SignDate:              signDate,
			PreviousLoanID:        &predecessor.ID,
			Status:                loandomain.LoanStatusActive,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := tx.WithContext(ctx).Create(loan).Error; err != nil {
			// Unique index on previous_loan_id: a concurrent renewal of the
			// same predecessor loses the race here.
			if db.IsDuplicateKeyErr(err) {
				return loandomain.ErrPredecessorAlreadyRenewed
			}
			return err
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE loans SET status = ?, renewed_date = ?, updated_at = ? WHERE id = ?`,
			loandomain.LoanStatusRenovated,
			now,
			now,
			predecessor.ID,
		).Error; err != nil {
			return err
		}

		if amountGived.IsPositive() {
			return s.postDisbursement(ctx, tx, loan, req.FundingAccount, amountGived)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLoanRenewal(ctx, routeLabel(loan))
	}
	return loan, nil
}

func (s *Service) MarkBadDebt(ctx context.Context, loanID snowflake.ID) (*loandomain.Loan, error) {
	var loan *loandomain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.findLoanForUpdate(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if found.IsBadDebt() {
			return loandomain.ErrLoanAlreadyBadDebt
		}
		if found.Status != loandomain.LoanStatusActive {
			return loandomain.ErrLoanNotActive
		}

		now := s.clock.Now()
		found.BadDebtDate = &now
		found.UpdatedAt = now
		loan = found
		return tx.WithContext(ctx).Exec(
			`UPDATE loans SET bad_debt_date = ?, updated_at = ? WHERE id = ?`,
			now, now, loanID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *Service) UnmarkBadDebt(ctx context.Context, loanID snowflake.ID) (*loandomain.Loan, error) {
	var loan *loandomain.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.findLoanForUpdate(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if !found.IsBadDebt() {
			return loandomain.ErrLoanNotBadDebt
		}

		now := s.clock.Now()
		found.BadDebtDate = nil
		found.UpdatedAt = now
		loan = found
		return tx.WithContext(ctx).Exec(
			`UPDATE loans SET bad_debt_date = NULL, updated_at = ? WHERE id = ?`,
			now, loanID,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *Service) Get(ctx context.Context, loanID snowflake.ID) (*loandomain.Loan, error) {
	loan, err := s.loanrepo.FindOne(ctx, &loandomain.Loan{ID: loanID})
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, loandomain.ErrLoanNotFound
	}
	return loan, nil
}

func (s *Service) List(ctx context.Context, req loandomain.ListLoanRequest) (loandomain.ListLoanResponse, error) {
	resp := loandomain.ListLoanResponse{Loans: []loandomain.Loan{}}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return resp, err
	}
	limit := req.Limit()

	query := s.db.WithContext(ctx).Model(&loandomain.Loan{})
	if req.LeadID != nil {
		query = query.Where("lead_id = ?", *req.LeadID)
	}
	if req.RouteID != nil {
		query = query.Where("route_id = ?", *req.RouteID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if cursor != nil {
		lastID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return resp, err
		}
		query = query.Where("id < ?", lastID)
	}

	var loans []loandomain.Loan
	if err := query.Order("id DESC").Limit(limit + 1).Find(&loans).Error; err != nil {
		return resp, err
	}

	resp.Loans, resp.PageInfo = pagination.BuildCursorPageInfo(loans, limit, func(l loandomain.Loan) pagination.Cursor {
		return pagination.Cursor{ID: l.ID.String()}
	})
	return resp, nil
}

// resolveRate falls back to the policy's default flat rate when a request
// omits one. An explicit negative still reaches ComputeMetrics and fails
// validation there.
func (s *Service) resolveRate(rate decimal.Decimal) decimal.Decimal {
	if !rate.IsZero() || s.portfolio == nil {
		return rate
	}
	return decimal.NewFromFloat(s.portfolio.Get().DefaultRate)
}

func (s *Service) checkTermPolicy(termWeeks int) error {
	if termWeeks <= 0 {
		return loandomain.ErrInvalidTerm
	}
	if s.portfolio == nil {
		return nil
	}
	for _, allowed := range s.portfolio.Get().AllowedTermWeeks {
		if termWeeks == allowed {
			return nil
		}
	}
	return loandomain.ErrInvalidTerm
}

func (s *Service) findLead(ctx context.Context, tx *gorm.DB, leadID snowflake.ID) (*loandomain.Lead, error) {
	var lead loandomain.Lead
	if err := tx.WithContext(ctx).Where("id = ?", leadID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, loandomain.ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

func (s *Service) routeName(ctx context.Context, tx *gorm.DB, routeID *snowflake.ID) (string, error) {
	if routeID == nil {
		return "", nil
	}
	var route loandomain.Route
	if err := tx.WithContext(ctx).Where("id = ?", *routeID).First(&route).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return route.Name, nil
}

// findLoanForUpdate reads the loan under a row lock. Concurrent payment or
// renewal transactions on the same loan serialize here instead of both
// reading the same totals and overwriting each other's update.
func (s *Service) findLoanForUpdate(ctx context.Context, tx *gorm.DB, loanID snowflake.ID) (*loandomain.Loan, error) {
	var loan loandomain.Loan
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", loanID).
		First(&loan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, loandomain.ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (s *Service) recordOrigination(ctx context.Context, loan *loandomain.Loan) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordLoanOrigination(ctx, routeLabel(loan))
}

func routeLabel(loan *loandomain.Loan) string {
	if loan == nil || loan.RouteID == nil {
		return "unassigned"
	}
	return loan.RouteID.String()
}

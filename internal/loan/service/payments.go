package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/credia/internal/cache"
	"github.com/smallbiznis/credia/internal/calendar"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) RecordPayment(ctx context.Context, req loandomain.RecordPaymentRequest) (*loandomain.RecordPaymentResponse, error) {
	if !req.Amount.IsPositive() || req.Comission.IsNegative() {
		return nil, loandomain.ErrInvalidAmount
	}

	var resp *loandomain.RecordPaymentResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := s.findLoanForUpdate(ctx, tx, req.LoanID)
		if err != nil {
			return err
		}
		if loan.Status != loandomain.LoanStatusActive {
			return loandomain.ErrLoanNotActive
		}

		allocation, err := loandomain.AllocatePayment(req.Amount, loan.ProfitAmount, loan.TotalDebtAcquired)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		receivedAt := now
		if req.ReceivedAt != nil {
			receivedAt = req.ReceivedAt.UTC()
		}

		payment := &loandomain.Payment{
			ID:            s.genID.Generate(),
			LoanID:        loan.ID,
			ReceiptNumber: ulid.Make().String(),
			Amount:        req.Amount,
			Comission:     req.Comission,
			ReceivedAt:    receivedAt,
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			return err
		}

		loan.TotalPaid = loan.TotalPaid.Add(req.Amount)
		loan.PendingAmount = loan.TotalDebtAcquired.Sub(loan.TotalPaid)
		if loan.PendingAmount.IsNegative() {
			loan.PendingAmount = decimal.Zero
		}

		// A written-off loan records recoveries without re-opening; only
		// an explicit unmark restores its lifecycle.
		if loan.PendingAmount.IsZero() && !loan.IsBadDebt() {
			loan.Status = loandomain.LoanStatusFinished
			loan.FinishedDate = &now
		}
		loan.UpdatedAt = now

		if err := tx.WithContext(ctx).Exec(
			`UPDATE loans SET total_paid = ?, pending_amount = ?, status = ?, finished_date = ?, updated_at = ? WHERE id = ?`,
			loan.TotalPaid,
			loan.PendingAmount,
			loan.Status,
			loan.FinishedDate,
			now,
			loan.ID,
		).Error; err != nil {
			return err
		}

		if err := s.postPaymentIncome(ctx, tx, loan, payment, req.CollectionAccount); err != nil {
			return err
		}

		resp = &loandomain.RecordPaymentResponse{
			Payment:    *payment,
			Loan:       *loan,
			Allocation: allocation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, string(req.PaymentMethod))
	}
	s.log.Info("payment recorded",
		zap.String("loan_id", resp.Loan.ID.String()),
		zap.String("receipt", resp.Payment.ReceiptNumber),
		zap.String("amount", resp.Payment.Amount.String()),
	)
	return resp, nil
}

func (s *Service) CancelPayment(ctx context.Context, paymentID snowflake.ID) error {
	var payment loandomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return loandomain.ErrPaymentNotFound
			}
			return err
		}

		loan, err := s.findLoanForUpdate(ctx, tx, payment.LoanID)
		if err != nil {
			return err
		}

		loan.TotalPaid = loan.TotalPaid.Sub(payment.Amount)
		if loan.TotalPaid.IsNegative() {
			loan.TotalPaid = decimal.Zero
		}
		loan.PendingAmount = loan.TotalDebtAcquired.Sub(loan.TotalPaid)
		if loan.PendingAmount.IsNegative() {
			loan.PendingAmount = decimal.Zero
		}

		now := s.clock.Now()
		if loan.Status == loandomain.LoanStatusFinished && loan.PendingAmount.IsPositive() {
			loan.Status = loandomain.LoanStatusActive
			loan.FinishedDate = nil
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE loans SET total_paid = ?, pending_amount = ?, status = ?, finished_date = ?, updated_at = ? WHERE id = ?`,
			loan.TotalPaid,
			loan.PendingAmount,
			loan.Status,
			loan.FinishedDate,
			now,
			loan.ID,
		).Error; err != nil {
			return err
		}

		if err := s.removePaymentTransactions(ctx, tx, payment.ID); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Delete(&loandomain.Payment{}, "id = ?", payment.ID).Error; err != nil {
			return err
		}

		s.log.Info("payment cancelled",
			zap.String("loan_id", loan.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateReportCache(ctx, payment.ReceivedAt)
	return nil
}

// invalidateReportCache drops cached reports covering a cancelled payment's
// week. Completed weeks are cached as immutable; a cancellation is the one
// mutation that reaches back into a closed week.
func (s *Service) invalidateReportCache(ctx context.Context, receivedAt time.Time) {
	if s.cache == nil {
		return
	}
	week := calendar.WeekOf(receivedAt)
	if !week.IsCompleted(s.clock.Now()) {
		return
	}

	keys := []string{
		cache.WeeklyReportKey(week.Year, week.WeekNumber),
		cache.MonthlyReportKey(week.Start.Year(), week.Start.Month()),
	}
	if week.End.Month() != week.Start.Month() {
		keys = append(keys, cache.MonthlyReportKey(week.End.Year(), week.End.Month()))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("report cache invalidation failed", zap.Error(err))
	}
}

package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/credia/internal/ledger/service"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"gorm.io/gorm"
)

// postDisbursement records the cash leaving the funding account when a loan
// is originated or renewed. Must run inside the loan mutation's transaction
// so the balance recalculation commits atomically with the loan.
func (s *Service) postDisbursement(ctx context.Context, tx *gorm.DB, loan *loandomain.Loan, fundingAccount snowflake.ID, amount decimal.Decimal) error {
	txn := &ledgerdomain.Transaction{
		ID:              s.genID.Generate(),
		Amount:          amount,
		Date:            s.clock.Now(),
		Type:            ledgerdomain.TransactionTypeExpense,
		SourceAccountID: &fundingAccount,
		LoanID:          &loan.ID,
		RouteID:         loan.RouteID,
		LeadID:          &loan.LeadID,
		Description:     "loan disbursement",
		CreatedAt:       s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(txn).Error; err != nil {
		return err
	}
	return ledgerservice.RecalculateWithin(ctx, tx, s.clock.Now(), fundingAccount)
}

// postPaymentIncome records collected cash entering the collection account.
// INCOME entries credit the account named as source; that convention is
// baked into the balance replay.
func (s *Service) postPaymentIncome(ctx context.Context, tx *gorm.DB, loan *loandomain.Loan, payment *loandomain.Payment, collectionAccount snowflake.ID) error {
	txn := &ledgerdomain.Transaction{
		ID:              s.genID.Generate(),
		Amount:          payment.Amount,
		Date:            payment.ReceivedAt,
		Type:            ledgerdomain.TransactionTypeIncome,
		SourceAccountID: &collectionAccount,
		LoanID:          &loan.ID,
		PaymentID:       &payment.ID,
		RouteID:         loan.RouteID,
		LeadID:          &loan.LeadID,
		Description:     "loan payment",
		CreatedAt:       s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(txn).Error; err != nil {
		return err
	}

	if payment.Comission.IsPositive() {
		fee := &ledgerdomain.Transaction{
			ID:              s.genID.Generate(),
			Amount:          payment.Comission,
			Date:            payment.ReceivedAt,
			Type:            ledgerdomain.TransactionTypeExpense,
			SourceAccountID: &collectionAccount,
			LoanID:          &loan.ID,
			PaymentID:       &payment.ID,
			RouteID:         loan.RouteID,
			LeadID:          &loan.LeadID,
			Description:     "collection commission",
			CreatedAt:       s.clock.Now(),
		}
		if err := tx.WithContext(ctx).Create(fee).Error; err != nil {
			return err
		}
	}

	return ledgerservice.RecalculateWithin(ctx, tx, s.clock.Now(), collectionAccount)
}

// removePaymentTransactions deletes the ledger entries a payment produced
// and recalculates every account they touched. Part of the compensating
// cancellation path.
func (s *Service) removePaymentTransactions(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) error {
	var transactions []ledgerdomain.Transaction
	if err := tx.WithContext(ctx).Where("payment_id = ?", paymentID).Find(&transactions).Error; err != nil {
		return err
	}

	seen := make(map[snowflake.ID]struct{})
	affected := make([]snowflake.ID, 0, 2)
	for _, txn := range transactions {
		for _, accountID := range []*snowflake.ID{txn.SourceAccountID, txn.DestinationAccountID} {
			if accountID == nil {
				continue
			}
			if _, ok := seen[*accountID]; ok {
				continue
			}
			seen[*accountID] = struct{}{}
			affected = append(affected, *accountID)
		}
	}

	if err := tx.WithContext(ctx).Where("payment_id = ?", paymentID).Delete(&ledgerdomain.Transaction{}).Error; err != nil {
		return err
	}
	return ledgerservice.RecalculateWithin(ctx, tx, s.clock.Now(), affected...)
}

package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecalculateWithin replays each account's full transaction history inside
// the caller's transaction and writes the derived balance back. This is the
// only code path that updates the cached account amount; every mutation of
// the transaction set must run it before committing.
//
// The account row is read under a row lock first, so two transactions
// mutating the same account replay sequentially and the second one sees the
// first one's rows.
func RecalculateWithin(ctx context.Context, tx *gorm.DB, now time.Time, accountIDs ...snowflake.ID) error {
	for _, accountID := range accountIDs {
		var account ledgerdomain.Account
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", accountID).
			First(&account).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgerdomain.ErrAccountNotFound
			}
			return err
		}

		var transactions []ledgerdomain.Transaction
		if err := tx.WithContext(ctx).
			Where("source_account_id = ? OR destination_account_id = ?", accountID, accountID).
			Find(&transactions).Error; err != nil {
			return err
		}

		balance := ledgerdomain.RecalculateBalance(accountID, transactions)

		if err := tx.WithContext(ctx).Exec(
			`UPDATE accounts SET amount = ?, updated_at = ? WHERE id = ?`,
			balance,
			now,
			accountID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

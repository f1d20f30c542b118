// Package seed bootstraps the fixed cash-pool accounts a fresh deployment
// needs before any loan can be disbursed or collected.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	"gorm.io/gorm"
)

var defaultAccounts = []struct {
	Name string
	Type ledgerdomain.AccountType
}{
	{"Bank", ledgerdomain.AccountTypeBank},
	{"Office Cash Fund", ledgerdomain.AccountTypeOfficeCashFund},
	{"Employee Cash Fund", ledgerdomain.AccountTypeEmployeeCashFund},
	{"Prepaid Fuel", ledgerdomain.AccountTypePrepaidFuel},
	{"Travel Expenses", ledgerdomain.AccountTypeTravelExpenses},
}

// EnsureDefaultAccounts creates one account per cash-pool type when none of
// that type exists yet. Existing accounts are left untouched, so reruns on
// startup are safe.
func EnsureDefaultAccounts(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range defaultAccounts {
			var existing ledgerdomain.Account
			err := tx.WithContext(ctx).
				Where("type = ?", seed.Type).
				First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			account := ledgerdomain.Account{
				ID:        node.Generate(),
				Name:      seed.Name,
				Type:      seed.Type,
				Amount:    decimal.Zero,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

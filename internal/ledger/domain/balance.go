package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RecalculateBalance replays an account's transaction history and returns
// its authoritative balance. The replay is a commutative sum, so transaction
// order does not matter and repeated calls yield identical results.
//
// Credits: any transaction whose destination is the account, plus INCOME
// transactions that name the account as source. Debits: EXPENSE and TRANSFER
// transactions that name the account as source. Negative balances are
// representable; overdraft is a business alert, not an error.
func RecalculateBalance(accountID snowflake.ID, transactions []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, txn := range transactions {
		if txn.DestinationAccountID != nil && *txn.DestinationAccountID == accountID {
			balance = balance.Add(txn.Amount)
			continue
		}
		if txn.SourceAccountID == nil || *txn.SourceAccountID != accountID {
			continue
		}
		switch txn.Type {
		case TransactionTypeIncome:
			balance = balance.Add(txn.Amount)
		case TransactionTypeExpense, TransactionTypeTransfer:
			balance = balance.Sub(txn.Amount)
		}
	}
	return balance
}

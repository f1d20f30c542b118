package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func acct(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func TestRecalculateBalanceIncomeCreditsSource(t *testing.T) {
	accountID := snowflake.ID(1)
	txns := []Transaction{
		{Amount: d("500"), Type: TransactionTypeIncome, SourceAccountID: acct(1)},
		{Amount: d("120"), Type: TransactionTypeExpense, SourceAccountID: acct(1)},
	}

	balance := RecalculateBalance(accountID, txns)
	assert.True(t, balance.Equal(d("380")), "balance = %s", balance)
}

func TestRecalculateBalanceTransfer(t *testing.T) {
	txns := []Transaction{
		{Amount: d("1000"), Type: TransactionTypeIncome, SourceAccountID: acct(1)},
		{Amount: d("250"), Type: TransactionTypeTransfer, SourceAccountID: acct(1), DestinationAccountID: acct(2)},
	}

	assert.True(t, RecalculateBalance(1, txns).Equal(d("750")))
	assert.True(t, RecalculateBalance(2, txns).Equal(d("250")))
}

func TestRecalculateBalanceIgnoresOtherAccounts(t *testing.T) {
	txns := []Transaction{
		{Amount: d("500"), Type: TransactionTypeIncome, SourceAccountID: acct(7)},
		{Amount: d("40"), Type: TransactionTypeExpense, SourceAccountID: acct(8)},
	}
	assert.True(t, RecalculateBalance(1, txns).IsZero())
}

func TestRecalculateBalanceOverdraft(t *testing.T) {
	txns := []Transaction{
		{Amount: d("100"), Type: TransactionTypeIncome, SourceAccountID: acct(1)},
		{Amount: d("160"), Type: TransactionTypeExpense, SourceAccountID: acct(1)},
	}
	assert.True(t, RecalculateBalance(1, txns).Equal(d("-60")))
}

func TestRecalculateBalanceIdempotentAndOrderIndependent(t *testing.T) {
	base := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	txns := []Transaction{
		{Amount: d("500.25"), Type: TransactionTypeIncome, SourceAccountID: acct(1), Date: base},
		{Amount: d("120.10"), Type: TransactionTypeExpense, SourceAccountID: acct(1), Date: base.AddDate(0, 0, 1)},
		{Amount: d("75"), Type: TransactionTypeTransfer, SourceAccountID: acct(1), DestinationAccountID: acct(2), Date: base.AddDate(0, 0, 2)},
		{Amount: d("30.85"), Type: TransactionTypeIncome, DestinationAccountID: acct(1), Date: base.AddDate(0, 0, 3)},
	}

	first := RecalculateBalance(1, txns)
	second := RecalculateBalance(1, txns)
	assert.True(t, first.Equal(second))

	reversed := make([]Transaction, len(txns))
	for i, txn := range txns {
		reversed[len(txns)-1-i] = txn
	}
	assert.True(t, first.Equal(RecalculateBalance(1, reversed)))
	assert.True(t, first.Equal(d("336")), "balance = %s", first)
}

func TestRecalculateBalanceEmptyHistory(t *testing.T) {
	assert.True(t, RecalculateBalance(1, nil).IsZero())
}

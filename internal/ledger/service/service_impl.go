package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/credia/internal/clock"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	"github.com/smallbiznis/credia/internal/observability/metrics"
	"github.com/smallbiznis/credia/pkg/db/option"
	"github.com/smallbiznis/credia/pkg/db/pagination"
	"github.com/smallbiznis/credia/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics

	genID       *snowflake.Node
	accountrepo repository.Repository[ledgerdomain.Account]
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		clock:   p.Clock,
		metrics: p.Metrics,

		genID:       p.GenID,
		accountrepo: repository.ProvideStore[ledgerdomain.Account](p.DB),
	}
}

func (s *Service) CreateAccount(ctx context.Context, req ledgerdomain.CreateAccountRequest) (*ledgerdomain.Account, error) {
	now := s.clock.Now()
	account := &ledgerdomain.Account{
		ID:        s.genID.Generate(),
		Name:      req.Name,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accountrepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID snowflake.ID) (*ledgerdomain.Account, error) {
	account, err := s.accountrepo.FindOne(ctx, &ledgerdomain.Account{ID: accountID})
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ledgerdomain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]ledgerdomain.Account, error) {
	rows, err := s.accountrepo.Find(ctx, &ledgerdomain.Account{}, option.WithOrder("id ASC"))
	if err != nil {
		return nil, err
	}
	accounts := make([]ledgerdomain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, *row)
	}
	return accounts, nil
}

func (s *Service) CreateTransaction(ctx context.Context, req ledgerdomain.CreateTransactionRequest) (*ledgerdomain.Transaction, error) {
	if err := validateTransaction(req); err != nil {
		return nil, err
	}

	date := s.clock.Now()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	txn := &ledgerdomain.Transaction{
		ID:                   s.genID.Generate(),
		Amount:               req.Amount,
		Date:                 date,
		Type:                 req.Type,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		LoanID:               req.LoanID,
		PaymentID:            req.PaymentID,
		RouteID:              req.RouteID,
		LeadID:               req.LeadID,
		Description:          req.Description,
		CreatedAt:            s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return RecalculateWithin(ctx, tx, s.clock.Now(), affectedAccounts(*txn)...)
	})
	if err != nil {
		return nil, err
	}

	s.recordRecalc(ctx, *txn)
	return txn, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, transactionID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn ledgerdomain.Transaction
		if err := tx.WithContext(ctx).Where("id = ?", transactionID).First(&txn).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgerdomain.ErrTransactionNotFound
			}
			return err
		}
		if err := tx.WithContext(ctx).Delete(&ledgerdomain.Transaction{}, "id = ?", transactionID).Error; err != nil {
			return err
		}
		return RecalculateWithin(ctx, tx, s.clock.Now(), affectedAccounts(txn)...)
	})
}

func (s *Service) ListTransactions(ctx context.Context, req ledgerdomain.ListTransactionRequest) (ledgerdomain.ListTransactionResponse, error) {
	resp := ledgerdomain.ListTransactionResponse{Transactions: []ledgerdomain.Transaction{}}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return resp, err
	}
	limit := req.Limit()

	query := s.db.WithContext(ctx).Model(&ledgerdomain.Transaction{})
	if req.AccountID != nil {
		query = query.Where("source_account_id = ? OR destination_account_id = ?", *req.AccountID, *req.AccountID)
	}
	if req.LoanID != nil {
		query = query.Where("loan_id = ?", *req.LoanID)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if cursor != nil {
		lastID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return resp, err
		}
		query = query.Where("id < ?", lastID)
	}

	var transactions []ledgerdomain.Transaction
	if err := query.Order("id DESC").Limit(limit + 1).Find(&transactions).Error; err != nil {
		return resp, err
	}

	resp.Transactions, resp.PageInfo = pagination.BuildCursorPageInfo(transactions, limit, func(t ledgerdomain.Transaction) pagination.Cursor {
		return pagination.Cursor{ID: t.ID.String()}
	})
	return resp, nil
}

func (s *Service) RecalculateAccount(ctx context.Context, accountID snowflake.ID) (*ledgerdomain.Account, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return RecalculateWithin(ctx, tx, s.clock.Now(), accountID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetAccount(ctx, accountID)
}

func (s *Service) recordRecalc(ctx context.Context, txn ledgerdomain.Transaction) {
	if s.metrics == nil {
		return
	}
	for range affectedAccounts(txn) {
		s.metrics.RecordBalanceRecalculation(ctx, string(txn.Type))
	}
}

func validateTransaction(req ledgerdomain.CreateTransactionRequest) error {
	if req.Amount.IsNegative() {
		return ledgerdomain.ErrInvalidTransaction
	}
	switch req.Type {
	case ledgerdomain.TransactionTypeIncome:
		if req.SourceAccountID == nil && req.DestinationAccountID == nil {
			return ledgerdomain.ErrMissingAccount
		}
		// The replay credits whichever account an INCOME row names; naming
		// both would credit twice.
		if req.SourceAccountID != nil && req.DestinationAccountID != nil {
			return ledgerdomain.ErrInvalidTransaction
		}
	case ledgerdomain.TransactionTypeExpense:
		if req.SourceAccountID == nil {
			return ledgerdomain.ErrMissingAccount
		}
	case ledgerdomain.TransactionTypeTransfer:
		if req.SourceAccountID == nil || req.DestinationAccountID == nil {
			return ledgerdomain.ErrMissingAccount
		}
	default:
		return ledgerdomain.ErrInvalidTransaction
	}
	return nil
}

func affectedAccounts(txn ledgerdomain.Transaction) []snowflake.ID {
	ids := make([]snowflake.ID, 0, 2)
	if txn.SourceAccountID != nil {
		ids = append(ids, *txn.SourceAccountID)
	}
	if txn.DestinationAccountID != nil && (txn.SourceAccountID == nil || *txn.DestinationAccountID != *txn.SourceAccountID) {
		ids = append(ids, *txn.DestinationAccountID)
	}
	return ids
}

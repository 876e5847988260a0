package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/merchledger/internal/domain"
)

// ReconciliationUseCase checks ledger-wide invariants.
type ReconciliationUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	purchaseRepo    PurchaseRepository
	startingBalance int64
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	purchaseRepo PurchaseRepository,
	startingBalance int64,
) *ReconciliationUseCase {
	if startingBalance <= 0 {
		startingBalance = domain.StartingBalance
	}

	return &ReconciliationUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		purchaseRepo:    purchaseRepo,
		startingBalance: startingBalance,
	}
}

// ConsistencyReport summarizes the ledger-wide coin supply.
//
// Coins enter the system only through account creation and leave it only
// through purchases, so TotalBalance must equal
// Accounts*StartingBalance - TotalSpent.
type ConsistencyReport struct {
	CheckedAt        time.Time
	Accounts         int64
	TotalBalance     int64
	ExpectedBalance  int64
	TotalSpent       int64
	NegativeAccounts int64
	Consistent       bool
}

// CheckConsistency computes the supply report.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, total, negative, err := uc.accountRepo.Totals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum balances: %w", err)
	}

	spent, err := uc.purchaseRepo.SumPrices(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum purchases: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	expected := accounts*uc.startingBalance - spent

	return &ConsistencyReport{
		CheckedAt:        time.Now().UTC(),
		Accounts:         accounts,
		TotalBalance:     total,
		ExpectedBalance:  expected,
		TotalSpent:       spent,
		NegativeAccounts: negative,
		Consistent:       total == expected && negative == 0,
	}, nil
}

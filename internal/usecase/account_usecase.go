package usecase

import (
	"context"

	"github.com/iho/merchledger/internal/domain"
)

// AccountUseCase answers read-only questions about accounts.
type AccountUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	transferRepo TransferRepository
	purchaseRepo PurchaseRepository
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transferRepo TransferRepository,
	purchaseRepo PurchaseRepository,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		purchaseRepo: purchaseRepo,
	}
}

// Summarize returns the balance, inventory and coin history of an account
// as seen by a single consistent snapshot.
func (uc *AccountUseCase) Summarize(ctx context.Context, accountID string) (*domain.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByID(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	purchases, err := uc.purchaseRepo.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	received, err := uc.transferRepo.ListByRecipient(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	sent, err := uc.transferRepo.ListBySender(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	usernames, err := uc.counterpartUsernames(ctx, tx, received, sent)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		AccountID: account.ID,
		Username:  account.Username,
		Balance:   account.Balance,
		Inventory: domain.BuildInventory(purchases),
		History: domain.CoinHistory{
			Received: make([]domain.ReceivedCoins, 0, len(received)),
			Sent:     make([]domain.SentCoins, 0, len(sent)),
		},
	}

	for _, t := range received {
		summary.History.Received = append(summary.History.Received, domain.ReceivedCoins{
			FromAccountID: t.FromAccountID,
			FromUsername:  usernames[t.FromAccountID],
			Amount:        t.Amount,
		})
	}

	for _, t := range sent {
		summary.History.Sent = append(summary.History.Sent, domain.SentCoins{
			ToAccountID: t.ToAccountID,
			ToUsername:  usernames[t.ToAccountID],
			Amount:      t.Amount,
		})
	}

	return summary, nil
}

func (uc *AccountUseCase) counterpartUsernames(
	ctx context.Context,
	tx Transaction,
	received, sent []*domain.Transfer,
) (map[string]string, error) {
	seen := make(map[string]bool)

	var ids []string
	for _, t := range received {
		if !seen[t.FromAccountID] {
			seen[t.FromAccountID] = true
			ids = append(ids, t.FromAccountID)
		}
	}

	for _, t := range sent {
		if !seen[t.ToAccountID] {
			seen[t.ToAccountID] = true
			ids = append(ids, t.ToAccountID)
		}
	}

	usernames := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return usernames, nil
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	for _, a := range accounts {
		usernames[a.ID] = a.Username
	}

	return usernames, nil
}

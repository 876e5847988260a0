package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/merchledger/internal/domain"
)

// LedgerUseCase moves coins between accounts and spends them on catalog items.
// It is the only writer of balances and history.
type LedgerUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	transferRepo TransferRepository
	purchaseRepo PurchaseRepository
	outboxRepo   OutboxRepository
	catalog      Catalog
	idGen        IDGenerator
	metrics      MetricsRecorder
}

// NewLedgerUseCase creates a new LedgerUseCase. A nil metrics recorder disables metrics.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transferRepo TransferRepository,
	purchaseRepo PurchaseRepository,
	outboxRepo OutboxRepository,
	catalog Catalog,
	idGen IDGenerator,
	metrics MetricsRecorder,
) *LedgerUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &LedgerUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		purchaseRepo: purchaseRepo,
		outboxRepo:   outboxRepo,
		catalog:      catalog,
		idGen:        idGen,
		metrics:      metrics,
	}
}

// TransferInput represents input for moving coins between accounts.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        int64
}

// PurchaseInput represents input for buying a catalog item.
type PurchaseInput struct {
	AccountID string
	Item      string
}

// Transfer moves amount coins from one account to another.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	start := time.Now()

	transfer, err := uc.transfer(ctx, input)
	if err != nil {
		uc.metrics.ObserveLedgerError("transfer", err)
		return nil, err
	}

	uc.metrics.ObserveTransfer(transfer.Amount, time.Since(start))

	return transfer, nil
}

// SendCoins resolves the recipient by username and transfers amount coins to it.
func (uc *LedgerUseCase) SendCoins(ctx context.Context, fromAccountID, toUsername string, amount int64) (*domain.Transfer, error) {
	recipient, err := uc.accountRepo.GetByUsername(ctx, nil, toUsername)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			err = uc.unknownRecipient(ctx, fromAccountID, amount)
			uc.metrics.ObserveLedgerError("transfer", err)
		}

		return nil, err
	}

	return uc.Transfer(ctx, TransferInput{
		FromAccountID: fromAccountID,
		ToAccountID:   recipient.ID,
		Amount:        amount,
	})
}

// unknownRecipient picks the error for a send to a username with no account.
// An invalid amount or an overdraft is reported before the missing recipient.
func (uc *LedgerUseCase) unknownRecipient(ctx context.Context, fromAccountID string, amount int64) error {
	if amount <= 0 || amount > domain.MaxAmount {
		return domain.ErrInvalidAmount
	}

	sender, err := uc.accountRepo.GetByID(ctx, nil, fromAccountID)
	if err != nil {
		return err
	}

	if err := sender.ValidateDebit(amount); err != nil {
		return err
	}

	return domain.ErrRecipientNotFound
}

func (uc *LedgerUseCase) transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	// 0. Validate inputs before starting transaction
	if err := domain.ValidateTransfer(input.FromAccountID, input.ToAccountID, input.Amount); err != nil {
		return nil, err
	}

	// 1. Sort account IDs (DEADLOCK PREVENTION)
	accountIDs := []string{input.FromAccountID, input.ToAccountID}
	sort.Strings(accountIDs)

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 2. Begin transaction
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 3. Lock accounts in sorted order
	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return nil, err
	}

	accountMap := buildAccountMap(accounts)

	from := accountMap[input.FromAccountID]
	if from == nil {
		return nil, domain.ErrAccountNotFound
	}

	if err := from.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	to := accountMap[input.ToAccountID]
	if to == nil {
		return nil, domain.ErrRecipientNotFound
	}

	// 4. Record the transfer and move the coins
	now := time.Now().UTC()

	transfer := &domain.Transfer{
		ID:            uc.idGen.Generate(),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        input.Amount,
		CreatedAt:     now,
	}

	if err := uc.transferRepo.Create(ctx, tx, transfer); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to record transfer", from.ID, to.ID)
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, from.ID, from.ApplyDebit(input.Amount), now); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to debit sender", from.ID, to.ID)
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, to.ID, to.ApplyCredit(input.Amount), now); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to credit recipient", from.ID, to.ID)
	}

	event := domain.NewTransferCreatedEvent(uc.idGen.Generate(), transfer)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to write transfer event", from.ID, to.ID)
	}

	// 5. Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return transfer, nil
}

// Purchase spends the catalog price of an item from the account.
func (uc *LedgerUseCase) Purchase(ctx context.Context, input PurchaseInput) (*domain.Purchase, error) {
	start := time.Now()

	purchase, err := uc.purchase(ctx, input)
	if err != nil {
		uc.metrics.ObserveLedgerError("purchase", err)
		return nil, err
	}

	uc.metrics.ObservePurchase(purchase.Item, purchase.Price, time.Since(start))

	return purchase, nil
}

func (uc *LedgerUseCase) purchase(ctx context.Context, input PurchaseInput) (*domain.Purchase, error) {
	price, ok := uc.catalog.Price(input.Item)
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, []string{input.AccountID})
	if err != nil {
		return nil, err
	}

	if len(accounts) != 1 {
		return nil, domain.ErrAccountNotFound
	}

	account := accounts[0]

	if err := account.ValidateDebit(price); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	purchase := &domain.Purchase{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Item:      input.Item,
		Price:     price,
		CreatedAt: now,
	}

	if err := uc.purchaseRepo.Create(ctx, tx, purchase); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to record purchase", account.ID, "")
	}

	if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, account.ApplyDebit(price), now); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to debit buyer", account.ID, "")
	}

	event := domain.NewPurchaseCreatedEvent(uc.idGen.Generate(), purchase)
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, uc.logFailure(ctx, err, "failed to write purchase event", account.ID, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return purchase, nil
}

func (uc *LedgerUseCase) logFailure(ctx context.Context, err error, msg, accountID, counterpartID string) error {
	ev := zerolog.Ctx(ctx).Error().Err(err).Str("account_id", accountID)
	if counterpartID != "" {
		ev = ev.Str("counterpart_id", counterpartID)
	}
	ev.Msg(msg)

	return err
}

func buildAccountMap(accounts []*domain.Account) map[string]*domain.Account {
	m := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}

	return m
}

type nopMetrics struct{}

func (nopMetrics) ObserveTransfer(int64, time.Duration)         {}
func (nopMetrics) ObservePurchase(string, int64, time.Duration) {}
func (nopMetrics) ObserveLedgerError(string, error)             {}
func (nopMetrics) ObserveAccountCreated()                       {}

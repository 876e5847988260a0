package memory

import (
	"context"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
// Records are kept in commit order.
type TransferRepository struct {
	store *Store
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(store *Store) *TransferRepository {
	return &TransferRepository{store: store}
}

// Create stages a transfer record in tx.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	t, err := asWriteTx(tx)
	if err != nil {
		return err
	}

	cp := *transfer
	t.transfers = append(t.transfers, &cp)

	return nil
}

// ListBySender lists transfers sent by an account.
func (r *TransferRepository) ListBySender(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Transfer, error) {
	return r.list(tx, func(t *domain.Transfer) bool { return t.FromAccountID == accountID })
}

// ListByRecipient lists transfers received by an account.
func (r *TransferRepository) ListByRecipient(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Transfer, error) {
	return r.list(tx, func(t *domain.Transfer) bool { return t.ToAccountID == accountID })
}

func (r *TransferRepository) list(tx usecase.Transaction, match func(*domain.Transfer) bool) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	err := r.store.read(tx, func() error {
		for _, t := range r.store.transfers {
			if match(t) {
				cp := *t
				transfers = append(transfers, &cp)
			}
		}

		return nil
	})

	return transfers, err
}

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct {
	store *Store
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(store *Store) *PurchaseRepository {
	return &PurchaseRepository{store: store}
}

// Create stages a purchase record in tx.
func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	t, err := asWriteTx(tx)
	if err != nil {
		return err
	}

	cp := *purchase
	t.purchases = append(t.purchases, &cp)

	return nil
}

// ListByAccount lists purchases made by an account.
func (r *PurchaseRepository) ListByAccount(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase

	err := r.store.read(tx, func() error {
		for _, p := range r.store.purchases {
			if p.AccountID == accountID {
				cp := *p
				purchases = append(purchases, &cp)
			}
		}

		return nil
	})

	return purchases, err
}

// SumPrices returns the total number of coins spent on purchases.
func (r *PurchaseRepository) SumPrices(ctx context.Context, tx usecase.Transaction) (int64, error) {
	var total int64

	err := r.store.read(tx, func() error {
		for _, p := range r.store.purchases {
			total += p.Price
		}

		return nil
	})

	return total, err
}

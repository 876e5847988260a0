package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// CreateTx stages a new account in tx.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asWriteTx(tx)
	if err != nil {
		return err
	}

	err = r.store.read(nil, func() error {
		if _, taken := r.store.usernames[account.Username]; taken {
			return domain.ErrUsernameTaken
		}

		return nil
	})
	if err != nil {
		return err
	}

	acc := *account
	t.accounts = append(t.accounts, &acc)

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	var account *domain.Account

	err := r.store.read(tx, func() error {
		a, ok := r.store.accounts[id]
		if !ok {
			return domain.ErrAccountNotFound
		}

		acc := *a
		account = &acc

		return nil
	})

	return account, err
}

// GetByUsername retrieves an account by its owner's username.
func (r *AccountRepository) GetByUsername(ctx context.Context, tx usecase.Transaction, username string) (*domain.Account, error) {
	var account *domain.Account

	err := r.store.read(tx, func() error {
		id, ok := r.store.usernames[username]
		if !ok {
			return domain.ErrAccountNotFound
		}

		acc := *r.store.accounts[id]
		account = &acc

		return nil
	})

	return account, err
}

// GetByIDs retrieves the existing accounts among ids, ordered by id.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	var accounts []*domain.Account

	err := r.store.read(tx, func() error {
		accounts = r.collect(ids)
		return nil
	})

	return accounts, err
}

// GetByIDsForUpdate locks the existing accounts among ids in ascending id
// order and returns them. The locks are held until tx finishes.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	t, err := asWriteTx(tx)
	if err != nil {
		return nil, err
	}

	var existing []string

	// Accounts are never deleted, so an id seen here stays valid.
	_ = r.store.read(nil, func() error {
		for _, id := range ids {
			if _, ok := r.store.accounts[id]; ok {
				existing = append(existing, id)
			}
		}

		return nil
	})

	if err := t.lockAccounts(ctx, existing); err != nil {
		return nil, err
	}

	var accounts []*domain.Account

	_ = r.store.read(nil, func() error {
		accounts = r.collect(existing)
		return nil
	})

	for _, a := range accounts {
		if upd, ok := t.balances[a.ID]; ok {
			a.Balance = upd.balance
			a.UpdatedAt = upd.updatedAt
		}
	}

	return accounts, nil
}

// UpdateBalance stages a new balance for an account locked by tx.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, updatedAt time.Time) error {
	t, err := asWriteTx(tx)
	if err != nil {
		return err
	}

	if _, held := t.locked[id]; !held {
		return ErrAccountNotLocked
	}

	if balance < 0 {
		return domain.ErrInsufficientFunds
	}

	t.balances[id] = balanceUpdate{balance: balance, updatedAt: updatedAt}

	return nil
}

// Totals returns the number of accounts, the sum of their balances and the
// number of accounts with a negative balance.
func (r *AccountRepository) Totals(ctx context.Context, tx usecase.Transaction) (int64, int64, int64, error) {
	var count, total, negative int64

	err := r.store.read(tx, func() error {
		for _, a := range r.store.accounts {
			count++
			total += a.Balance

			if a.Balance < 0 {
				negative++
			}
		}

		return nil
	})

	return count, total, negative, err
}

// collect must be called with the store read lock held.
func (r *AccountRepository) collect(ids []string) []*domain.Account {
	seen := make(map[string]bool, len(ids))
	accounts := make([]*domain.Account, 0, len(ids))

	for _, id := range ids {
		a, ok := r.store.accounts[id]
		if !ok || seen[id] {
			continue
		}

		seen[id] = true
		acc := *a
		accounts = append(accounts, &acc)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	return accounts
}

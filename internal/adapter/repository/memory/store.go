// Package memory implements the repositories on an in-process store.
//
// Writers lock accounts through per-account locks acquired in ascending id
// order and stage their changes in a Tx. Commit applies staged changes under
// the store write lock, so snapshot readers observe either all of a unit of
// work or none of it.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

var (
	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("memory: transaction already finished")
	// ErrReadOnlyTx is returned when a snapshot transaction is used for writes.
	ErrReadOnlyTx = errors.New("memory: write in read-only transaction")
	// ErrAccountNotLocked is returned when a balance is updated without holding its lock.
	ErrAccountNotLocked = errors.New("memory: account not locked by transaction")
	// ErrForeignTx is returned when a transaction from another backend is passed in.
	ErrForeignTx = errors.New("memory: transaction does not belong to this store")
)

// Store holds all ledger state.
type Store struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	usernames  map[string]string
	users      map[string]*domain.User
	transfers  []*domain.Transfer
	purchases  []*domain.Purchase
	outbox     []*domain.OutboxEvent
	lockMu     sync.Mutex
	accountLks map[string]chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]*domain.Account),
		usernames:  make(map[string]string),
		users:      make(map[string]*domain.User),
		accountLks: make(map[string]chan struct{}),
	}
}

func (s *Store) accountLock(id string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lk, ok := s.accountLks[id]
	if !ok {
		lk = make(chan struct{}, 1)
		s.accountLks[id] = lk
	}

	return lk
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a read-write transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{store: m.store, locked: make(map[string]chan struct{}), balances: make(map[string]balanceUpdate)}, nil
}

// Snapshot starts a read-only transaction. It holds the store read lock
// until Commit or Rollback.
func (m *TxManager) Snapshot(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.mu.RLock()

	return &Tx{store: m.store, readOnly: true}, nil
}

type balanceUpdate struct {
	updatedAt time.Time
	balance   int64
}

// Tx is a unit of work on a Store.
type Tx struct {
	store     *Store
	readOnly  bool
	done      bool
	locked    map[string]chan struct{}
	lockOrder []string
	balances  map[string]balanceUpdate
	accounts  []*domain.Account
	users     []*domain.User
	transfers []*domain.Transfer
	purchases []*domain.Purchase
	outbox    []*domain.OutboxEvent
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	if tx == nil {
		return nil, nil
	}

	t, ok := tx.(*Tx)
	if !ok {
		return nil, ErrForeignTx
	}

	if t.done {
		return nil, ErrTxDone
	}

	return t, nil
}

func asWriteTx(tx usecase.Transaction) (*Tx, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	if t == nil || t.readOnly {
		return nil, ErrReadOnlyTx
	}

	return t, nil
}

// lockAccounts acquires the locks of ids in ascending order. Locks already
// held by the transaction are skipped.
func (t *Tx) lockAccounts(ctx context.Context, ids []string) error {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true
		sorted = append(sorted, id)
	}

	sort.Strings(sorted)

	for _, id := range sorted {
		if _, held := t.locked[id]; held {
			continue
		}

		lk := t.store.accountLock(id)

		select {
		case lk <- struct{}{}:
			t.locked[id] = lk
			t.lockOrder = append(t.lockOrder, id)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (t *Tx) releaseLocks() {
	for i := len(t.lockOrder) - 1; i >= 0; i-- {
		<-t.locked[t.lockOrder[i]]
	}

	t.locked = nil
	t.lockOrder = nil
}

// Commit applies the staged changes atomically and releases all account locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}

	t.done = true

	if t.readOnly {
		t.store.mu.RUnlock()
		return nil
	}

	defer t.releaseLocks()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range t.users {
		if _, taken := s.users[u.Username]; taken {
			return domain.ErrUsernameTaken
		}
	}

	for _, a := range t.accounts {
		if _, taken := s.usernames[a.Username]; taken {
			return domain.ErrUsernameTaken
		}
	}

	for id, upd := range t.balances {
		if _, ok := s.accounts[id]; !ok {
			return domain.ErrAccountNotFound
		}

		if upd.balance < 0 {
			return domain.ErrInsufficientFunds
		}
	}

	for _, a := range t.accounts {
		acc := *a
		s.accounts[acc.ID] = &acc
		s.usernames[acc.Username] = acc.ID
	}

	for _, u := range t.users {
		user := *u
		s.users[user.Username] = &user
	}

	for id, upd := range t.balances {
		acc := s.accounts[id]
		acc.Balance = upd.balance
		acc.UpdatedAt = upd.updatedAt
	}

	s.transfers = append(s.transfers, t.transfers...)
	s.purchases = append(s.purchases, t.purchases...)
	s.outbox = append(s.outbox, t.outbox...)

	return nil
}

// Rollback discards the staged changes and releases all locks. It is a no-op
// after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}

	t.done = true

	if t.readOnly {
		t.store.mu.RUnlock()
		return nil
	}

	t.releaseLocks()

	return nil
}

// read runs fn under the store read lock unless tx is a snapshot, which
// already holds it.
func (s *Store) read(tx usecase.Transaction, fn func() error) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if t == nil || !t.readOnly {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	return fn()
}

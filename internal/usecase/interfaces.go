package usecase

import (
	"context"
	"time"

	"github.com/iho/merchledger/internal/domain"
)

// AccountRepository defines data access for accounts.
// Methods taking a Transaction read through it when tx is non-nil.
type AccountRepository interface {
	CreateTx(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, tx Transaction, username string) (*domain.Account, error)
	GetByIDs(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// GetByIDsForUpdate locks the accounts in ascending id order for the lifetime of tx.
	// Missing ids are omitted from the result.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance int64, updatedAt time.Time) error
	Totals(ctx context.Context, tx Transaction) (accounts int64, totalBalance int64, negative int64, err error)
}

// UserRepository defines data access for login identities.
type UserRepository interface {
	CreateTx(ctx context.Context, tx Transaction, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// TransferRepository defines data access for transfer history.
type TransferRepository interface {
	Create(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	ListBySender(ctx context.Context, tx Transaction, accountID string) ([]*domain.Transfer, error)
	ListByRecipient(ctx context.Context, tx Transaction, accountID string) ([]*domain.Transfer, error)
}

// PurchaseRepository defines data access for purchase history.
type PurchaseRepository interface {
	Create(ctx context.Context, tx Transaction, purchase *domain.Purchase) error
	ListByAccount(ctx context.Context, tx Transaction, accountID string) ([]*domain.Purchase, error)
	SumPrices(ctx context.Context, tx Transaction) (int64, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Catalog resolves item prices. It is read-only.
type Catalog interface {
	Price(item string) (int64, bool)
	Items() []domain.Item
}

// Transaction represents a unit of work.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	// Begin starts a read-write unit of work.
	Begin(ctx context.Context) (Transaction, error)
	// Snapshot starts a read-only unit of work that sees a single consistent state.
	Snapshot(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs. IDs generated later sort after earlier ones.
type IDGenerator interface {
	Generate() string
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// TokenIssuer issues access tokens for an account.
type TokenIssuer interface {
	Generate(accountID, username string) (string, error)
}

// MetricsRecorder observes ledger operations.
type MetricsRecorder interface {
	ObserveTransfer(amount int64, duration time.Duration)
	ObservePurchase(item string, price int64, duration time.Duration)
	ObserveLedgerError(operation string, err error)
	ObserveAccountCreated()
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key whose request did not complete successfully.
	Delete(ctx context.Context, key string) error
}

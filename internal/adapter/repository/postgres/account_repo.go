package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

const accountColumns = `id, username, balance, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateTx inserts a new account within a transaction.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := conn(r.db, tx).Exec(ctx, query,
		account.ID,
		account.Username,
		account.Balance,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if hasPgCode(err, pgErrUniqueViolation) {
		return domain.ErrUsernameTaken
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccount(conn(r.db, tx).QueryRow(ctx, query, id))
}

// GetByUsername retrieves an account by its owner's username.
func (r *AccountRepository) GetByUsername(ctx context.Context, tx usecase.Transaction, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	return scanAccount(conn(r.db, tx).QueryRow(ctx, query, username))
}

// GetByIDs retrieves the existing accounts among ids, ordered by id.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id`

	return r.queryAccounts(ctx, conn(r.db, tx), query, ids)
}

// GetByIDsForUpdate locks the existing accounts among ids. Rows are locked
// in id order so concurrent callers cannot deadlock on each other.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	return r.queryAccounts(ctx, tx.(*Tx).PgxTx(), query, ids)
}

// UpdateBalance sets the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance int64, updatedAt time.Time) error {
	query := `UPDATE accounts SET balance = $2, updated_at = $3 WHERE id = $1`

	tag, err := tx.(*Tx).PgxTx().Exec(ctx, query, id, balance, updatedAt)
	if err != nil {
		if hasPgCode(err, pgErrCheckViolation) {
			return domain.ErrInsufficientFunds
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Totals returns the number of accounts, the sum of their balances and the
// number of accounts with a negative balance.
func (r *AccountRepository) Totals(ctx context.Context, tx usecase.Transaction) (int64, int64, int64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(balance), 0)::bigint, COUNT(*) FILTER (WHERE balance < 0)
		FROM accounts
	`

	var count, total, negative int64
	if err := conn(r.db, tx).QueryRow(ctx, query).Scan(&count, &total, &negative); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to compute account totals: %w", err)
	}

	return count, total, negative, nil
}

func (r *AccountRepository) queryAccounts(ctx context.Context, db DBTX, query string, ids []string) ([]*domain.Account, error) {
	rows, err := db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(ids))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account

	err := row.Scan(&a.ID, &a.Username, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return &a, nil
}

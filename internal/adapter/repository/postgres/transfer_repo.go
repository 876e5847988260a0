package postgres

import (
	"context"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	db DBTX
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(db DBTX) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a transfer record within a transaction.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, from_account_id, to_account_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.(*Tx).PgxTx().Exec(ctx, query,
		transfer.ID,
		transfer.FromAccountID,
		transfer.ToAccountID,
		transfer.Amount,
		transfer.CreatedAt,
	)

	return err
}

// ListBySender lists transfers sent by an account in the order they were recorded.
func (r *TransferRepository) ListBySender(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Transfer, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, created_at
		FROM transfers
		WHERE from_account_id = $1
		ORDER BY created_at, id
	`

	return r.list(ctx, tx, query, accountID)
}

// ListByRecipient lists transfers received by an account in the order they were recorded.
func (r *TransferRepository) ListByRecipient(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Transfer, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, created_at
		FROM transfers
		WHERE to_account_id = $1
		ORDER BY created_at, id
	`

	return r.list(ctx, tx, query, accountID)
}

func (r *TransferRepository) list(ctx context.Context, tx usecase.Transaction, query, accountID string) ([]*domain.Transfer, error) {
	rows, err := conn(r.db, tx).Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}

		transfers = append(transfers, &t)
	}

	return transfers, rows.Err()
}

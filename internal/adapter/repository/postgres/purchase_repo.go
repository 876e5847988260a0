package postgres

import (
	"context"
	"fmt"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct {
	db DBTX
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(db DBTX) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create inserts a purchase record within a transaction.
func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, account_id, item, price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.(*Tx).PgxTx().Exec(ctx, query,
		purchase.ID,
		purchase.AccountID,
		purchase.Item,
		purchase.Price,
		purchase.CreatedAt,
	)

	return err
}

// ListByAccount lists purchases of an account in the order they were recorded.
func (r *PurchaseRepository) ListByAccount(ctx context.Context, tx usecase.Transaction, accountID string) ([]*domain.Purchase, error) {
	query := `
		SELECT id, account_id, item, price, created_at
		FROM purchases
		WHERE account_id = $1
		ORDER BY created_at, id
	`

	rows, err := conn(r.db, tx).Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Item, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}

		purchases = append(purchases, &p)
	}

	return purchases, rows.Err()
}

// SumPrices returns the total number of coins spent on purchases.
func (r *PurchaseRepository) SumPrices(ctx context.Context, tx usecase.Transaction) (int64, error) {
	query := `SELECT COALESCE(SUM(price), 0)::bigint FROM purchases`

	var total int64
	if err := conn(r.db, tx).QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum purchases: %w", err)
	}

	return total, nil
}

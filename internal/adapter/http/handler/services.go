package handler

import (
	"context"

	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// AuthService authenticates or registers users.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*usecase.AuthResult, error)
}

// LedgerService moves coins.
type LedgerService interface {
	SendCoins(ctx context.Context, fromAccountID, toUsername string, amount int64) (*domain.Transfer, error)
	Purchase(ctx context.Context, input usecase.PurchaseInput) (*domain.Purchase, error)
}

// AccountService reads account summaries.
type AccountService interface {
	Summarize(ctx context.Context, accountID string) (*domain.Summary, error)
}

// ReconciliationService checks coin supply.
type ReconciliationService interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

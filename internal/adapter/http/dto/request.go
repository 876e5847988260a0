package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/merchledger/internal/domain"
)

// AuthRequest represents a login or registration request.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SendCoinRequest represents a request to send coins to another user.
type SendCoinRequest struct {
	ToUser string              `json:"toUser"`
	Amount decimal.NullDecimal `json:"amount"`
}

// Complete reports whether both toUser and amount were supplied.
func (r *SendCoinRequest) Complete() bool {
	return r.ToUser != "" && r.Amount.Valid
}

// CoinAmount validates the requested amount as a whole number of coins.
func (r *SendCoinRequest) CoinAmount() (int64, error) {
	if !r.Amount.Valid {
		return 0, domain.ErrInvalidAmount
	}

	return domain.ValidateAmount(r.Amount.Decimal)
}

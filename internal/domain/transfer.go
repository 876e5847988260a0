package domain

import "time"

// Transfer is an immutable record of coins moved between two accounts.
type Transfer struct {
	CreatedAt     time.Time
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        int64
}

// ValidateTransfer checks the preconditions of a transfer that need no
// account state. A self transfer is reported before a bad amount.
func ValidateTransfer(fromAccountID, toAccountID string, amount int64) error {
	if fromAccountID == toAccountID {
		return ErrSameAccount
	}

	if amount <= 0 || amount > MaxAmount {
		return ErrInvalidAmount
	}

	return nil
}

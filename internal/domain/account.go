package domain

import "time"

// StartingBalance is the number of coins a new account is opened with.
const StartingBalance int64 = 1000

// Account is a ledger participant holding a non-negative coin balance.
type Account struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	Username  string
	Balance   int64
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount int64) int64 {
	return a.Balance - amount
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount int64) int64 {
	return a.Balance + amount
}

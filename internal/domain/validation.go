package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
)

// Validation constants
const (
	MaxUsernameLength = 64
	MaxPasswordLength = 72 // bcrypt input limit
	MaxAmount         = int64(1_000_000_000)

	// Digit bounds checked before any rescaling of a decimal amount.
	maxAmountDigits   = 10
	maxFractionDigits = 18
)

// ValidateUsername validates a login name.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUsername)
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username exceeds %d characters", ErrInvalidUsername, MaxUsernameLength)
	}

	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: username cannot contain whitespace", ErrInvalidUsername)
	}

	return nil
}

// ValidatePassword validates password length.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPassword)
	}

	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must not exceed %d bytes", ErrInvalidPassword, MaxPasswordLength)
	}

	return nil
}

// ValidateAmount checks that amount is a positive whole number of coins
// within MaxAmount and returns it as int64.
func ValidateAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	// Size checks must run before any comparison that rescales.
	digits := amount.NumDigits()
	if digits > maxAmountDigits+maxFractionDigits ||
		(amount.Exponent() > 0 && digits+int(amount.Exponent()) > maxAmountDigits) {
		return 0, fmt.Errorf("%w: maximum amount is %d", ErrInvalidAmount, MaxAmount)
	}

	if amount.Exponent() < -maxFractionDigits {
		return 0, fmt.Errorf("%w: fractional coins are not supported", ErrInvalidAmount)
	}

	if !amount.IsInteger() {
		return 0, fmt.Errorf("%w: fractional coins are not supported", ErrInvalidAmount)
	}

	if amount.GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return 0, fmt.Errorf("%w: maximum amount is %d", ErrInvalidAmount, MaxAmount)
	}

	return amount.IntPart(), nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/domain"
)

// Retrier re-runs a unit of work the database aborted without effect.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Errors: message})
}

// respondError maps err to a status and message. Infrastructure failures are
// logged and reported without detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, status, "internal server error")
		return
	}

	writeError(w, status, errorMessage(err))
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRecipientNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSameAccount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the client-facing text for a domain error.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return "User not found"
	case errors.Is(err, domain.ErrRecipientNotFound):
		return "Recipient not found"
	case errors.Is(err, domain.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient coins"
	case errors.Is(err, domain.ErrSameAccount):
		return "Cannot send coins to yourself"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "Amount must be a positive whole number"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Invalid credentials"
	default:
		return err.Error()
	}
}

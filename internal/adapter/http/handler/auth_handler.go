package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/domain"
)

// AuthObserver records login outcomes.
type AuthObserver interface {
	ObserveAuthAttempt(status string)
}

type nopAuthObserver struct{}

func (nopAuthObserver) ObserveAuthAttempt(string) {}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUC   AuthService
	observer AuthObserver
}

// NewAuthHandler creates a new auth handler. A nil observer disables
// attempt accounting.
func NewAuthHandler(authUC AuthService, observer AuthObserver) *AuthHandler {
	if observer == nil {
		observer = nopAuthObserver{}
	}

	return &AuthHandler{authUC: authUC, observer: observer}
}

// Login returns a token for an existing user, registering unknown usernames.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	result, err := h.authUC.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.observer.ObserveAuthAttempt(authStatus(err))
		respondError(w, r, err)
		return
	}

	if result.Created {
		h.observer.ObserveAuthAttempt("registered")
	} else {
		h.observer.ObserveAuthAttempt("success")
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{Token: result.Token})
}

func authStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidUsername), errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_input"
	default:
		return "error"
	}
}

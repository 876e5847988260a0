package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/adapter/http/middleware"
	"github.com/iho/merchledger/internal/domain"
	"github.com/iho/merchledger/internal/usecase"
)

// LedgerHandler handles coin transfers and purchases.
type LedgerHandler struct {
	ledgerUC LedgerService
	retrier  Retrier
}

// NewLedgerHandler creates a new LedgerHandler. A nil retrier runs each
// operation once.
func NewLedgerHandler(ledgerUC LedgerService, retrier Retrier) *LedgerHandler {
	if retrier == nil {
		retrier = noRetry{}
	}

	return &LedgerHandler{ledgerUC: ledgerUC, retrier: retrier}
}

// SendCoin transfers coins from the caller to another user.
func (h *LedgerHandler) SendCoin(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, r, domain.ErrUnauthorized)
		return
	}

	var req dto.SendCoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Complete() {
		writeError(w, http.StatusBadRequest, "toUser and amount are required")
		return
	}

	if username, ok := middleware.UsernameFromContext(r.Context()); ok && username == req.ToUser {
		respondError(w, r, domain.ErrSameAccount)
		return
	}

	amount, err := req.CoinAmount()
	if err != nil {
		respondError(w, r, err)
		return
	}

	err = h.retrier.Retry(r.Context(), func() error {
		_, err := h.ledgerUC.SendCoins(r.Context(), accountID, req.ToUser, amount)
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Coins sent successfully"})
}

// Buy purchases a catalog item for the caller.
func (h *LedgerHandler) Buy(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, r, domain.ErrUnauthorized)
		return
	}

	item := chi.URLParam(r, "item")
	if item == "" {
		respondError(w, r, domain.ErrItemNotFound)
		return
	}

	err := h.retrier.Retry(r.Context(), func() error {
		_, err := h.ledgerUC.Purchase(r.Context(), usecase.PurchaseInput{AccountID: accountID, Item: item})
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: fmt.Sprintf("Purchased %s successfully", item)})
}

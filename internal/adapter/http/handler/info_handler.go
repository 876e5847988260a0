package handler

import (
	"net/http"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/adapter/http/middleware"
	"github.com/iho/merchledger/internal/domain"
)

// InfoHandler serves the account summary.
type InfoHandler struct {
	accountUC AccountService
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(accountUC AccountService) *InfoHandler {
	return &InfoHandler{accountUC: accountUC}
}

// Info returns balance, inventory and coin history of the caller.
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, r, domain.ErrUnauthorized)
		return
	}

	summary, err := h.accountUC.Summarize(r.Context(), accountID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InfoFromDomain(summary))
}

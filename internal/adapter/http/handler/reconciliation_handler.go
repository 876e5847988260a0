package handler

import (
	"net/http"

	"github.com/iho/merchledger/internal/adapter/http/dto"
)

// ReconciliationHandler exposes the coin supply check.
type ReconciliationHandler struct {
	reconciliationUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(uc ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationUC: uc}
}

// Consistency returns the supply report.
func (h *ReconciliationHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.CheckConsistency(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromReport(report))
}

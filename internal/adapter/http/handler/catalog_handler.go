package handler

import (
	"net/http"

	"github.com/iho/merchledger/internal/adapter/http/dto"
	"github.com/iho/merchledger/internal/usecase"
)

// CatalogHandler lists purchasable items.
type CatalogHandler struct {
	catalog usecase.Catalog
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog usecase.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List returns catalog items sorted by name.
func (h *CatalogHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.CatalogFromDomain(h.catalog.Items()))
}

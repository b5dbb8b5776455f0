package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"farmapos/internal/core/id"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/receipt"
	"farmapos/internal/domain/sale"
	"farmapos/internal/infrastructure/storage/postgres"
)

// AuditHistory reads the immutable change log for an entity.
type AuditHistory interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// SaleHandler exposes completed sales, their printable receipts and their
// audit trail.
type SaleHandler struct {
	BaseHandler
	sales    sale.Repository
	renderer receipt.Renderer
	audit    AuditHistory
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(sales sale.Repository, renderer receipt.Renderer, audit AuditHistory) *SaleHandler {
	return &SaleHandler{sales: sales, renderer: renderer, audit: audit}
}

func (h *SaleHandler) load(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	s, err := h.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	s.Lines, err = h.sales.GetLines(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a sale with its lines.
// GET /api/v1/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	s, err := h.load(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Receipt renders the sale as a plain-text receipt.
// GET /api/v1/sales/:id/receipt
func (h *SaleHandler) Receipt(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	s, err := h.load(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	totals := sale.ComputeSaleTotals(s, types.Zero())
	payload, err := h.renderer.Render(c.Request.Context(), s, totals)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", payload)
}

// Audit returns the change history recorded for the sale.
// GET /api/v1/sales/:id/audit
func (h *SaleHandler) Audit(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "sale", saleID, 50)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

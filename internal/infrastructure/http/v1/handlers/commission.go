package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/tenant"
	"farmapos/internal/domain/commission"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// CommissionHandler manages commission rules and earned records.
type CommissionHandler struct {
	BaseHandler
	service *commission.Service
}

// NewCommissionHandler creates a new commission handler.
func NewCommissionHandler(service *commission.Service) *CommissionHandler {
	return &CommissionHandler{service: service}
}

// CreateRule registers a commission rule for a product.
// POST /api/v1/commissions/rules
func (h *CommissionHandler) CreateRule(c *gin.Context) {
	var req dto.CreateCommissionRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, ok := h.ParseID(c, req.ProductID, "productId")
	if !ok {
		return
	}
	ruleType := commission.RuleType(req.Type)
	if ruleType != commission.TypePercentage && ruleType != commission.TypeFixedAmount {
		h.Error(c, apperror.NewValidation("unknown commission type").WithDetail("field", "type"))
		return
	}

	t, err := tenant.Require(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	rule := commission.NewRule(t, productID, ruleType, req.Value, req.ValidFrom, req.ValidTo)
	rule.Condition = req.Condition
	if err := h.service.CreateRule(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rule.ID)
}

// GetRule returns a single rule.
// GET /api/v1/commissions/rules/:id
func (h *CommissionHandler) GetRule(c *gin.Context) {
	ruleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	rule, err := h.service.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rule)
}

// DeactivateRule switches a rule off without deleting its records.
// POST /api/v1/commissions/rules/:id/deactivate
func (h *CommissionHandler) DeactivateRule(c *gin.Context) {
	ruleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	rule, err := h.service.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	rule.Active = false
	if err := h.service.UpdateRule(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rule)
}

// ListRules returns rules, optionally only active ones.
// GET /api/v1/commissions/rules
func (h *CommissionHandler) ListRules(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()
	activeOnly := c.Query("active") == "true"

	rules, err := h.service.ListRules(c.Request.Context(), activeOnly, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: rules, Limit: q.Limit, Offset: q.Offset})
}

// MyRecords returns the calling operator's earned commissions.
// GET /api/v1/commissions/records
func (h *CommissionHandler) MyRecords(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	userID, ok := h.ParseID(c, h.GetUserID(c), "userId")
	if !ok {
		return
	}
	records, err := h.service.ListRecordsByUser(c.Request.Context(), userID, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: records, Limit: q.Limit, Offset: q.Offset})
}

// SaleRecords returns the commissions earned on one sale.
// GET /api/v1/commissions/sales/:id
func (h *CommissionHandler) SaleRecords(c *gin.Context) {
	saleID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	records, err := h.service.ListRecordsBySale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, records)
}

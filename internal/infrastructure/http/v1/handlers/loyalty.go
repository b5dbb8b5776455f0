package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"farmapos/internal/core/tenant"
	"farmapos/internal/domain/loyalty"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// LoyaltyHandler manages promotions and the redeemable catalog.
type LoyaltyHandler struct {
	BaseHandler
	service *loyalty.Service
}

// NewLoyaltyHandler creates a new loyalty handler.
func NewLoyaltyHandler(service *loyalty.Service) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

// CreatePromotion registers a points promotion.
// POST /api/v1/loyalty/promotions
func (h *LoyaltyHandler) CreatePromotion(c *gin.Context) {
	var req dto.CreatePromotionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := &loyalty.Promotion{
		Name:       req.Name,
		Multiplier: req.Multiplier,
		Active:     true,
		ValidFrom:  req.ValidFrom,
		ValidTo:    req.ValidTo,
	}
	if err := h.service.CreatePromotion(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID)
}

// ListPromotions returns all promotions.
// GET /api/v1/loyalty/promotions
func (h *LoyaltyHandler) ListPromotions(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	promotions, err := h.service.ListPromotions(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: promotions, Limit: q.Limit, Offset: q.Offset})
}

// ActiveMultiplier returns the multiplier currently in effect.
// GET /api/v1/loyalty/multiplier
func (h *LoyaltyHandler) ActiveMultiplier(c *gin.Context) {
	mult, err := h.service.ActiveMultiplier(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"multiplier": mult})
}

// CreateRedeemable adds an entry to the redeemable catalog.
// POST /api/v1/loyalty/redeemables
func (h *LoyaltyHandler) CreateRedeemable(c *gin.Context) {
	var req dto.CreateRedeemableRequest
	if !h.BindJSON(c, &req) {
		return
	}
	promotionID, ok := h.ParseID(c, req.PromotionID, "promotionId")
	if !ok {
		return
	}
	t, err := tenant.Require(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	r := loyalty.NewRedeemable(t, promotionID, req.Name, req.PointsCost, req.Stock)
	if err := h.service.CreateRedeemable(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r.ID)
}

// ListRedeemables returns the catalog; ?available=true hides exhausted entries.
// GET /api/v1/loyalty/redeemables
func (h *LoyaltyHandler) ListRedeemables(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()
	availableOnly := c.Query("available") == "true"

	redeemables, err := h.service.ListRedeemables(c.Request.Context(), availableOnly, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: redeemables, Limit: q.Limit, Offset: q.Offset})
}

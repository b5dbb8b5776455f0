package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/core/apperror"
	"farmapos/internal/core/id"
	"farmapos/internal/domain/loyalty"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/sale"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// CartHandler exposes the point-of-sale cart: one pending sale per
// operator, mutated line by line, finalized into a completed sale.
type CartHandler struct {
	BaseHandler
	engine  *sale.Engine
	loyalty *loyalty.Service
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(engine *sale.Engine, loyaltyService *loyalty.Service) *CartHandler {
	return &CartHandler{engine: engine, loyalty: loyaltyService}
}

// Current returns the operator's cart, creating an empty one if needed.
// GET /api/v1/pos/cart
func (h *CartHandler) Current(c *gin.Context) {
	s, err := h.engine.FindOrCreatePending(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// AddItem adds a product to the cart.
// POST /api/v1/pos/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, ok := h.ParseID(c, req.ProductID, "productId")
	if !ok {
		return
	}

	unit := product.Unit(req.Unit)
	if req.Unit == "" {
		unit = product.UnitBase
	}
	if !product.ValidUnit(unit) {
		h.Error(c, apperror.NewValidation("unknown sale unit").WithDetail("unit", req.Unit))
		return
	}

	s, err := h.engine.AddItem(c.Request.Context(), productID, req.Quantity, unit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// UpdateQuantity replaces a line's quantity; zero removes the line.
// PUT /api/v1/pos/cart/items/quantity
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, ok := h.ParseID(c, req.ProductID, "productId")
	if !ok {
		return
	}

	s, err := h.engine.UpdateQuantity(c.Request.Context(), productID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// ChangeUnit switches a line to another sale unit.
// PUT /api/v1/pos/cart/items/unit
func (h *CartHandler) ChangeUnit(c *gin.Context) {
	var req dto.ChangeUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}
	productID, ok := h.ParseID(c, req.ProductID, "productId")
	if !ok {
		return
	}

	unit := product.Unit(req.Unit)
	if !product.ValidUnit(unit) {
		h.Error(c, apperror.NewValidation("unknown sale unit").WithDetail("unit", req.Unit))
		return
	}

	s, err := h.engine.ChangeUnit(c.Request.Context(), productID, unit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// RemoveItem deletes a product line from the cart.
// DELETE /api/v1/pos/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.PathID(c, "productId")
	if !ok {
		return
	}
	s, err := h.engine.RemoveItem(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// RedeemPoints adds a redeemable-catalog entry to the cart at zero price.
// POST /api/v1/pos/cart/redeem
func (h *CartHandler) RedeemPoints(c *gin.Context) {
	var req dto.RedeemPointsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	redeemableID, ok := h.ParseID(c, req.RedeemableID, "redeemableId")
	if !ok {
		return
	}

	rd, err := h.loyalty.GetRedeemable(c.Request.Context(), redeemableID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if rd.Status != loyalty.RedeemableAvailable {
		h.Error(c, apperror.NewBusinessRule("REDEEMABLE_EXHAUSTED", "redeemable is out of stock").
			WithDetail("redeemableId", rd.ID.String()))
		return
	}

	s, err := h.engine.RedeemPoints(c.Request.Context(), sale.RedeemedItem{
		ID:         rd.ID,
		Name:       rd.Name,
		PointsCost: rd.PointsCost,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// RemoveRedeemed deletes a redeemed line from the cart.
// DELETE /api/v1/pos/cart/redeem/:redeemableId
func (h *CartHandler) RemoveRedeemed(c *gin.Context) {
	redeemableID, ok := h.PathID(c, "redeemableId")
	if !ok {
		return
	}
	s, err := h.engine.RemoveRedeemedItem(c.Request.Context(), redeemableID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// AttachClient binds the cart to a client, or detaches with a null id.
// PUT /api/v1/pos/cart/client
func (h *CartHandler) AttachClient(c *gin.Context) {
	var req dto.AttachClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var clientID *id.ID
	if req.ClientID != nil {
		parsed, ok := h.ParseID(c, *req.ClientID, "clientId")
		if !ok {
			return
		}
		clientID = &parsed
	}

	s, err := h.engine.AttachClient(c.Request.Context(), clientID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// SetDiscount applies a percent or fixed discount.
// PUT /api/v1/pos/cart/discount
func (h *CartHandler) SetDiscount(c *gin.Context) {
	var req dto.SetDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.engine.SetDiscount(c.Request.Context(), req.Percent, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewCartResponse(s))
}

// SetNote sets the receipt note.
// PUT /api/v1/pos/cart/note
func (h *CartHandler) SetNote(c *gin.Context) {
	var req dto.SetNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.engine.SetNote(c.Request.Context(), req.Note); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "note updated")
}

// Cancel voids the pending sale, returning all reserved stock.
// DELETE /api/v1/pos/cart
func (h *CartHandler) Cancel(c *gin.Context) {
	if err := h.engine.Cancel(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Finalize completes the pending sale.
// POST /api/v1/pos/cart/finalize
func (h *CartHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	method := sale.PaymentMethod(req.PaymentMethod)
	switch method {
	case sale.PayCash, sale.PayMobileWallet, sale.PayBankTransfer, sale.PayOther:
	default:
		h.Error(c, apperror.NewValidation("unknown payment method").
			WithDetail("paymentMethod", req.PaymentMethod))
		return
	}

	s, totals, err := h.engine.Finalize(c.Request.Context(), method, req.AmountTendered)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FinalizeResponse{Sale: s, Totals: totals})
}

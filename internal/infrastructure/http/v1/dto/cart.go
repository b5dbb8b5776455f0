package dto

import (
	"farmapos/internal/core/types"
	"farmapos/internal/domain/sale"
)

// AddItemRequest adds a product to the pending cart.
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
	Unit      string `json:"unit"`
}

// UpdateQuantityRequest replaces the quantity of a cart line.
type UpdateQuantityRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity"`
}

// ChangeUnitRequest switches a cart line to another sale unit.
type ChangeUnitRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Unit      string `json:"unit" binding:"required"`
}

// RedeemPointsRequest adds a redeemed item to the cart.
type RedeemPointsRequest struct {
	RedeemableID string `json:"redeemableId" binding:"required"`
}

// AttachClientRequest binds or detaches the cart's client.
// A null clientId detaches back to the walk-in sale.
type AttachClientRequest struct {
	ClientID *string `json:"clientId"`
}

// SetDiscountRequest sets a percent or fixed discount, mutually exclusive.
type SetDiscountRequest struct {
	Percent types.Money `json:"percent"`
	Amount  types.Money `json:"amount"`
}

// SetNoteRequest sets the receipt note.
type SetNoteRequest struct {
	Note string `json:"note"`
}

// FinalizeRequest completes the pending sale.
type FinalizeRequest struct {
	PaymentMethod  string      `json:"paymentMethod" binding:"required"`
	AmountTendered types.Money `json:"amountTendered"`
}

// CartResponse is the pending sale with computed totals.
type CartResponse struct {
	Sale   *sale.Sale  `json:"sale"`
	Totals sale.Totals `json:"totals"`
}

// NewCartResponse computes display totals for the current cart state.
func NewCartResponse(s *sale.Sale) CartResponse {
	return CartResponse{
		Sale:   s,
		Totals: sale.ComputeSaleTotals(s, types.Zero()),
	}
}

// FinalizeResponse is the completed sale with settlement totals.
type FinalizeResponse struct {
	Sale   *sale.Sale  `json:"sale"`
	Totals sale.Totals `json:"totals"`
}

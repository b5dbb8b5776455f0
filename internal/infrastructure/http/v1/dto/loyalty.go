package dto

import (
	"time"

	"farmapos/internal/core/types"
)

// CreatePromotionRequest creates a points promotion.
type CreatePromotionRequest struct {
	Name       string      `json:"name" binding:"required"`
	Multiplier types.Money `json:"multiplier" binding:"required"`
	ValidFrom  time.Time   `json:"validFrom" binding:"required"`
	ValidTo    time.Time   `json:"validTo" binding:"required"`
}

// CreateRedeemableRequest adds an entry to the redeemable catalog.
type CreateRedeemableRequest struct {
	PromotionID string         `json:"promotionId" binding:"required"`
	Name        string         `json:"name" binding:"required"`
	PointsCost  int64          `json:"pointsCost" binding:"required,min=1"`
	Stock       types.Quantity `json:"stock"`
}

// CreateCommissionRuleRequest binds a commission rule to a product.
type CreateCommissionRuleRequest struct {
	ProductID string      `json:"productId" binding:"required"`
	Type      string      `json:"type" binding:"required"`
	Value     types.Money `json:"value" binding:"required"`
	ValidFrom time.Time   `json:"validFrom" binding:"required"`
	ValidTo   time.Time   `json:"validTo" binding:"required"`
	Condition string      `json:"condition"`
}

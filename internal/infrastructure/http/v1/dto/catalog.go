package dto

import (
	"time"

	"farmapos/internal/core/types"
)

// TierRequest is one optional packaging tier on a product.
type TierRequest struct {
	Price  types.Money    `json:"price"`
	Factor types.Quantity `json:"factor"`
}

// CreateProductRequest for creating catalog entries.
type CreateProductRequest struct {
	Name     string         `json:"name" binding:"required"`
	Barcode  string         `json:"barcode"`
	Cost     types.Money    `json:"cost"`
	Price    types.Money    `json:"price" binding:"required"`
	Stock    types.Quantity `json:"stock"`
	MinStock types.Quantity `json:"minStock"`

	Blister *TierRequest `json:"blister"`
	Box     *TierRequest `json:"box"`
	Package *TierRequest `json:"package"`

	ExpiresAt *time.Time `json:"expiresAt"`
}

// UpdateProductRequest for updating catalog entries.
type UpdateProductRequest struct {
	Name     string         `json:"name" binding:"required"`
	Barcode  string         `json:"barcode"`
	Cost     types.Money    `json:"cost"`
	Price    types.Money    `json:"price" binding:"required"`
	MinStock types.Quantity `json:"minStock"`

	Blister *TierRequest `json:"blister"`
	Box     *TierRequest `json:"box"`
	Package *TierRequest `json:"package"`

	ExpiresAt *time.Time `json:"expiresAt"`
	Version   int        `json:"version" binding:"required,min=1"`
}

// CreateClientRequest for registering clients.
type CreateClientRequest struct {
	Name     string `json:"name" binding:"required"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

// UpdateClientRequest for updating clients.
type UpdateClientRequest struct {
	Name     string `json:"name" binding:"required"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
	Version  int    `json:"version" binding:"required,min=1"`
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/core/tenant"
	"farmapos/internal/core/types"
	"farmapos/internal/domain/product"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// ProductHandler provides catalog endpoints.
type ProductHandler struct {
	BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service *product.Service) *ProductHandler {
	return &ProductHandler{service: service}
}

// Create adds a product to the catalog.
// POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := tenant.Require(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	p := product.New(t, req.Name, req.Price)
	p.Barcode = req.Barcode
	p.Cost = req.Cost
	p.Stock = req.Stock
	p.MinStock = req.MinStock
	p.ExpiresAt = req.ExpiresAt
	applyTiers(p, req.Blister, req.Box, req.Package)

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID)
}

// Get returns one product.
// GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// GetByBarcode resolves a scanned barcode.
// GET /api/v1/products/barcode/:barcode
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	p, err := h.service.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update modifies a product. Stock is deliberately absent: it moves only
// through the cart engine.
// PUT /api/v1/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	p.Name = req.Name
	p.Barcode = req.Barcode
	p.Cost = req.Cost
	p.Price = req.Price
	p.MinStock = req.MinStock
	p.ExpiresAt = req.ExpiresAt
	p.Version = req.Version
	applyTiers(p, req.Blister, req.Box, req.Package)

	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Delete removes a product.
// DELETE /api/v1/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// List returns catalog entries.
// GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	products, err := h.service.List(c.Request.Context(), product.ListFilter{
		Search: q.Search,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: products, Limit: q.Limit, Offset: q.Offset})
}

// LowStock returns products at or below their minimum.
// GET /api/v1/products/low-stock
func (h *ProductHandler) LowStock(c *gin.Context) {
	products, err := h.service.FindLowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, products)
}

func applyTiers(p *product.Product, blister, box, pkg *dto.TierRequest) {
	setTier := func(price **types.Money, factor **types.Quantity, req *dto.TierRequest) {
		if req == nil {
			*price, *factor = nil, nil
			return
		}
		pr, f := req.Price, req.Factor
		*price, *factor = &pr, &f
	}
	setTier(&p.BlisterPrice, &p.BlisterFactor, blister)
	setTier(&p.BoxPrice, &p.BoxFactor, box)
	setTier(&p.PackagePrice, &p.PackageFactor, pkg)
}

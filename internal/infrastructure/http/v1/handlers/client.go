package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/core/tenant"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/loyalty"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// ClientHandler provides client catalog endpoints.
type ClientHandler struct {
	BaseHandler
	service *client.Service
	loyalty *loyalty.Service
}

// NewClientHandler creates a new client handler.
func NewClientHandler(service *client.Service, loyaltyService *loyalty.Service) *ClientHandler {
	return &ClientHandler{service: service, loyalty: loyaltyService}
}

// Create registers a client.
// POST /api/v1/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := tenant.Require(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	cl := client.New(t, req.Name)
	cl.Document = req.Document
	cl.Phone = req.Phone

	if err := h.service.Create(c.Request.Context(), cl); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cl.ID)
}

// Get returns one client.
// GET /api/v1/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	clientID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	cl, err := h.service.GetByID(c.Request.Context(), clientID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cl)
}

// Update modifies a client. The points balance is not editable here;
// it moves only through sale settlement.
// PUT /api/v1/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	clientID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cl, err := h.service.GetByID(c.Request.Context(), clientID)
	if err != nil {
		h.Error(c, err)
		return
	}

	cl.Name = req.Name
	cl.Document = req.Document
	cl.Phone = req.Phone
	cl.Version = req.Version

	if err := h.service.Update(c.Request.Context(), cl); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cl)
}

// List returns clients.
// GET /api/v1/clients
func (h *ClientHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	clients, err := h.service.List(c.Request.Context(), q.Search, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: clients, Limit: q.Limit, Offset: q.Offset})
}

// History returns the client's redemption history.
// GET /api/v1/clients/:id/redemptions
func (h *ClientHandler) History(c *gin.Context) {
	clientID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	entries, err := h.loyalty.ListHistoryByClient(c.Request.Context(), clientID, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: entries, Limit: q.Limit, Offset: q.Offset})
}

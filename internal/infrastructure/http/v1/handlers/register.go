package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/core/id"
	"farmapos/internal/domain/register"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// RegisterHandler provides cash register session endpoints.
type RegisterHandler struct {
	BaseHandler
	service *register.Service
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(service *register.Service) *RegisterHandler {
	return &RegisterHandler{service: service}
}

// Open starts a drawer session.
// POST /api/v1/register/open
func (h *RegisterHandler) Open(c *gin.Context) {
	var req dto.OpenRegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Open(c.Request.Context(), req.OpeningFloat)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, session.ID)
}

// Current returns the open session with its running summary.
// GET /api/v1/register/current
func (h *RegisterHandler) Current(c *gin.Context) {
	session, err := h.service.Current(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.ComputeSummary(c.Request.Context(), session)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.RegisterStatusResponse{Session: session, Summary: summary})
}

// Close reconciles and closes a session.
// POST /api/v1/register/:id/close
func (h *RegisterHandler) Close(c *gin.Context) {
	sessionID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseRegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Close(c.Request.Context(), sessionID, req.CountedCash)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, session)
}

// List returns past sessions.
// GET /api/v1/register/sessions
func (h *RegisterHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	var userID *id.ID
	if raw := c.Query("userId"); raw != "" {
		parsed, ok := h.ParseID(c, raw, "userId")
		if !ok {
			return
		}
		userID = &parsed
	}

	sessions, err := h.service.List(c.Request.Context(), userID, q.Limit, q.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: sessions, Limit: q.Limit, Offset: q.Offset})
}

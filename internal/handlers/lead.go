package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

type LeadHandler struct {
	leadService *services.LeadService
}

func NewLeadHandler(db *gorm.DB) *LeadHandler {
	return &LeadHandler{leadService: services.NewLeadService(db)}
}

// List returns a paginated lead list
// GET /api/leads
func (h *LeadHandler) List(c *gin.Context) {
	var req services.LeadListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.leadService.List(&req)
	if err != nil {
		response.ServerError(c, "failed to list leads: "+err.Error())
		return
	}

	response.Success(c, result)
}

// Get returns one lead
// GET /api/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	lead, err := h.leadService.Get(uint(id))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, lead)
}

// Create adds a new lead
// POST /api/leads
func (h *LeadHandler) Create(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.leadService.Create(&lead); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, lead)
}

// Update modifies a lead
// PUT /api/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// Immutable/managed fields
	delete(updates, "id")
	delete(updates, "created_at")

	if err := h.leadService.Update(uint(id), updates); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "lead updated"})
}

// Delete removes a lead and its outreach record
// DELETE /api/leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	if err := h.leadService.Delete(uint(id)); err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "lead deleted"})
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

type PromptHandler struct {
	promptService *services.PromptService
}

func NewPromptHandler(db *gorm.DB) *PromptHandler {
	return &PromptHandler{promptService: services.NewPromptService(db)}
}

// List returns all prompt templates, optionally filtered by channel
// GET /api/prompts
func (h *PromptHandler) List(c *gin.Context) {
	templates, err := h.promptService.GetTemplates(c.Query("channel"))
	if err != nil {
		response.ServerError(c, "failed to list templates: "+err.Error())
		return
	}

	response.Success(c, templates)
}

// Get returns one template
// GET /api/prompts/:id
func (h *PromptHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	template, err := h.promptService.GetTemplate(uint(id))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, template)
}

// Create adds a custom template
// POST /api/prompts
func (h *PromptHandler) Create(c *gin.Context) {
	var template models.PromptTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	template.ID = 0
	template.IsSystem = false

	if err := h.promptService.CreateTemplate(&template); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, template)
}

// Update modifies a template
// PUT /api/prompts/:id
func (h *PromptHandler) Update(c *gin.Context) {
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
	delete(updates, "id")
	delete(updates, "is_system")

	if err := h.promptService.UpdateTemplate(uint(id), updates); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "template updated"})
}

// Activate toggles a template's active flag
// POST /api/prompts/:id/activate
func (h *PromptHandler) Activate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.promptService.UpdateTemplate(uint(id), map[string]interface{}{"is_active": req.Active}); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "template updated", "is_active": req.Active})
}

// Delete removes a custom template
// DELETE /api/prompts/:id
func (h *PromptHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	if err := h.promptService.DeleteTemplate(uint(id)); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "template deleted"})
}

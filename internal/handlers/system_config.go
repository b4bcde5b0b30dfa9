package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{configService: services.NewSystemConfigService(db)}
}

// GetByGroup returns the config entries of one group
// GET /api/system/configs?group=retention
func (h *SystemConfigHandler) GetByGroup(c *gin.Context) {
	group := c.Query("group")
	if group == "" {
		response.BadRequest(c, "group is required")
		return
	}

	configs, err := h.configService.GetByGroup(group)
	if err != nil {
		response.ServerError(c, "failed to get configs: "+err.Error())
		return
	}

	response.Success(c, configs)
}

// Set updates one config value
// PUT /api/system/configs
func (h *SystemConfigHandler) Set(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.Set(req.Key, req.Value); err != nil {
		response.ServerError(c, "failed to set config: "+err.Error())
		return
	}

	response.Success(c, gin.H{"message": "config updated"})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

type SystemLogHandler struct {
	logService *services.SystemLogService
}

func NewSystemLogHandler(db *gorm.DB) *SystemLogHandler {
	return &SystemLogHandler{logService: services.NewSystemLogService(db)}
}

// List returns filtered system logs
// GET /api/system/logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.logService.List(&req)
	if err != nil {
		response.ServerError(c, "failed to list system logs: "+err.Error())
		return
	}

	response.Success(c, result)
}

// GetModules returns the distinct module names present in the logs
// GET /api/system/logs/modules
func (h *SystemLogHandler) GetModules(c *gin.Context) {
	modules, err := h.logService.GetModules()
	if err != nil {
		response.ServerError(c, "failed to get modules: "+err.Error())
		return
	}

	response.Success(c, modules)
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

// AIUsageHandler provides endpoints for AI cost and usage statistics.
type AIUsageHandler struct {
	callLogService *services.AICallLogService
}

func NewAIUsageHandler(db *gorm.DB) *AIUsageHandler {
	return &AIUsageHandler{
		callLogService: services.NewAICallLogService(db),
	}
}

// GetStats returns aggregated AI usage statistics.
// GET /api/ai-usage/stats
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	engine := c.Query("engine")

	stats, err := h.callLogService.GetStats(startDate, endDate, engine)
	if err != nil {
		response.ServerError(c, "failed to get AI usage stats: "+err.Error())
		return
	}

	response.Success(c, stats)
}

// GetDailyTrend returns daily AI usage data for charting.
// GET /api/ai-usage/trend
func (h *AIUsageHandler) GetDailyTrend(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	trend, err := h.callLogService.GetDailyTrend(startDate, endDate)
	if err != nil {
		response.ServerError(c, "failed to get AI usage trend: "+err.Error())
		return
	}

	response.Success(c, trend)
}

// GetProviderBreakdown returns AI usage grouped by provider/model.
// GET /api/ai-usage/providers
func (h *AIUsageHandler) GetProviderBreakdown(c *gin.Context) {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	providers, err := h.callLogService.GetProviderBreakdown(startDate, endDate)
	if err != nil {
		response.ServerError(c, "failed to get provider breakdown: "+err.Error())
		return
	}

	response.Success(c, providers)
}

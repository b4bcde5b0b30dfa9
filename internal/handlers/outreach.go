package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/outreachforge/backend/internal/services"
	"github.com/outreachforge/backend/pkg/response"
)

type OutreachHandler struct {
	outreachService *services.OutreachService
}

func NewOutreachHandler(outreachService *services.OutreachService) *OutreachHandler {
	return &OutreachHandler{outreachService: outreachService}
}

// StartBatch queues an outreach generation run
// POST /api/outreach/batches
func (h *OutreachHandler) StartBatch(c *gin.Context) {
	var opts services.BatchOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	queue := services.GetTaskQueue()
	if queue == nil {
		response.ServerError(c, "task queue not initialized")
		return
	}

	if err := queue.Enqueue(&services.OutreachTask{Options: opts}); err != nil {
		response.ServerError(c, "failed to enqueue batch: "+err.Error())
		return
	}

	mode := "sync"
	if queue.IsAsync() {
		mode = "async"
	}
	response.Accepted(c, gin.H{
		"message":    "batch queued",
		"queue_mode": mode,
	})
}

// GetBatch returns one batch summary
// GET /api/outreach/batches/:batch_id
func (h *OutreachHandler) GetBatch(c *gin.Context) {
	run, err := h.outreachService.GetBatchRun(c.Param("batch_id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, run)
}

// ListBatches returns recent batch summaries
// GET /api/outreach/batches
func (h *OutreachHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.outreachService.ListBatchRuns(limit)
	if err != nil {
		response.ServerError(c, "failed to list batches: "+err.Error())
		return
	}

	response.Success(c, runs)
}

// ListRecords returns generated outreach records
// GET /api/outreach/records
func (h *OutreachHandler) ListRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.outreachService.ListRecords(page, pageSize)
	if err != nil {
		response.ServerError(c, "failed to list records: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"items":     records,
	})
}

// GetRecord returns the outreach record for a lead
// GET /api/outreach/records/:lead_id
func (h *OutreachHandler) GetRecord(c *gin.Context) {
	leadID, err := strconv.ParseUint(c.Param("lead_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid lead id")
		return
	}

	record, err := h.outreachService.GetRecord(uint(leadID))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, record)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/pkg/logger"
)

// BatchOptions selects which leads a generation run covers.
type BatchOptions struct {
	// LeadIDs restricts the run to specific leads; empty means all leads.
	LeadIDs []uint `json:"lead_ids"`
	// Limit caps the number of leads when LeadIDs is empty.
	Limit int `json:"limit"`
	// ForceRegenerate replaces existing outreach rows instead of skipping.
	ForceRegenerate bool `json:"force_regenerate"`
}

// BatchError itemizes one failed lead in a batch summary.
type BatchError struct {
	LeadID uint   `json:"lead_id"`
	Error  string `json:"error"`
}

// BatchSummary is the completion report of one generation run. It is
// always produced, even when every lead failed.
type BatchSummary struct {
	BatchID      string       `json:"batch_id"`
	TotalLeads   int          `json:"total_leads"`
	Processed    int          `json:"processed"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	TotalCostUSD float64      `json:"total_cost_usd"`
	DurationMs   int64        `json:"duration_ms"`
	Errors       []BatchError `json:"errors,omitempty"`
}

// variantMeta is one entry of OutreachRecord.GenerationMeta, keyed by
// template name.
type variantMeta struct {
	Model            string  `json:"model"`
	CostUSD          float64 `json:"cost_usd"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	DurationMs       int64   `json:"duration_ms"`
	Error            string  `json:"error,omitempty"`
}

// OutreachService runs the per-lead outreach generation loop: twelve
// variants per lead (three emails, nine social messages), one template per
// variant, strictly sequential.
type OutreachService struct {
	db      *gorm.DB
	ai      Caller
	prompts *PromptService
	hub     *BatchHub
}

func NewOutreachService(db *gorm.DB, ai Caller, prompts *PromptService, hub *BatchHub) *OutreachService {
	return &OutreachService{db: db, ai: ai, prompts: prompts, hub: hub}
}

// GenerateBatch runs outreach generation for the selected leads. Only the
// lead/template fetch can fail the run as a whole; every per-lead and
// per-variant failure is recorded and the loop continues.
func (s *OutreachService) GenerateBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	start := time.Now()

	leads, err := s.fetchLeads(opts)
	if err != nil {
		return nil, fmt.Errorf("fetch leads: %w", err)
	}

	emailTemplates, err := s.prompts.ActiveTemplates(models.ChannelEmail)
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	socialTemplates, err := s.prompts.ActiveTemplates(models.ChannelSocial)
	if err != nil {
		return nil, fmt.Errorf("load social templates: %w", err)
	}

	batchID := uuid.New().String()
	summary := &BatchSummary{BatchID: batchID, TotalLeads: len(leads)}

	run := &models.BatchRun{
		BatchID:    batchID,
		Status:     "running",
		TotalLeads: len(leads),
		Forced:     opts.ForceRegenerate,
	}
	if err := s.db.Create(run).Error; err != nil {
		logger.Warnf("[Outreach] Failed to persist batch run %s: %v", batchID, err)
	}

	s.hub.Publish(BatchEvent{Type: EventBatchStarted, BatchID: batchID, Total: len(leads)})
	logger.Infof("[Outreach] Batch %s started: %d leads, force=%t", batchID, len(leads), opts.ForceRegenerate)

	for i := range leads {
		lead := &leads[i]

		var existing models.OutreachRecord
		found := s.db.Where("lead_id = ?", lead.ID).First(&existing).Error == nil
		if found && !opts.ForceRegenerate {
			summary.Skipped++
			s.hub.Publish(BatchEvent{
				Type: EventLeadSkipped, BatchID: batchID,
				LeadID: lead.ID, CompanyName: lead.CompanyName,
				Done: i + 1, Total: len(leads),
			})
			continue
		}
		if found {
			// Replace, never duplicate. Hard delete so the unique lead
			// index does not collide with a soft-deleted row.
			if err := s.db.Unscoped().Delete(&existing).Error; err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, BatchError{LeadID: lead.ID, Error: fmt.Sprintf("replace old record: %v", err)})
				s.publishLeadFailed(batchID, lead, i+1, len(leads), err)
				continue
			}
		}

		s.hub.Publish(BatchEvent{
			Type: EventLeadStarted, BatchID: batchID,
			LeadID: lead.ID, CompanyName: lead.CompanyName,
			Done: i, Total: len(leads),
		})

		record := s.generateLead(ctx, batchID, lead, emailTemplates, socialTemplates)

		if err := s.db.Create(record).Error; err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, BatchError{LeadID: lead.ID, Error: fmt.Sprintf("save record: %v", err)})
			s.publishLeadFailed(batchID, lead, i+1, len(leads), err)
			continue
		}

		summary.Processed++
		summary.TotalCostUSD += record.TotalCostUSD
		cost := record.TotalCostUSD
		s.hub.Publish(BatchEvent{
			Type: EventLeadCompleted, BatchID: batchID,
			LeadID: lead.ID, CompanyName: lead.CompanyName,
			Done: i + 1, Total: len(leads), CostUSD: &cost,
		})
	}

	summary.DurationMs = time.Since(start).Milliseconds()

	errorsJSON, _ := json.Marshal(summary.Errors)
	s.db.Model(&models.BatchRun{}).Where("batch_id = ?", batchID).Updates(map[string]interface{}{
		"status":         "completed",
		"processed":      summary.Processed,
		"skipped":        summary.Skipped,
		"failed":         summary.Failed,
		"total_cost_usd": summary.TotalCostUSD,
		"duration_ms":    summary.DurationMs,
		"errors":         string(errorsJSON),
	})

	totalCost := summary.TotalCostUSD
	s.hub.Publish(BatchEvent{
		Type: EventBatchCompleted, BatchID: batchID,
		Done: summary.Processed + summary.Skipped + summary.Failed, Total: len(leads),
		CostUSD: &totalCost,
	})
	logger.Infof("[Outreach] Batch %s completed: %d processed, %d skipped, %d failed, $%.4f, %dms",
		batchID, summary.Processed, summary.Skipped, summary.Failed, summary.TotalCostUSD, summary.DurationMs)

	return summary, nil
}

func (s *OutreachService) fetchLeads(opts BatchOptions) ([]models.Lead, error) {
	var leads []models.Lead
	query := s.db.Order("created_at DESC")
	if len(opts.LeadIDs) > 0 {
		query = query.Where("id IN ?", opts.LeadIDs)
	} else if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if err := query.Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

// generateLead runs all templates for one lead and assembles the record.
// A variant failure leaves its column NULL and never aborts the lead.
func (s *OutreachService) generateLead(ctx context.Context, batchID string, lead *models.Lead, emailTemplates, socialTemplates []models.PromptTemplate) *models.OutreachRecord {
	start := time.Now()
	record := &models.OutreachRecord{
		LeadID:  lead.ID,
		BatchID: batchID,
		Status:  "generating",
	}

	vars := buildLeadContext(lead)
	meta := make(map[string]variantMeta)

	for i := range emailTemplates {
		tmpl := &emailTemplates[i]
		resp, m := s.runVariant(ctx, batchID, lead, tmpl, vars, record)
		meta[tmpl.Name] = m
		if resp == nil {
			continue
		}
		subject, body := SplitSubject(resp.Content)
		if err := record.SetEmailVariant(tmpl.Slot, subject, body); err != nil {
			logger.Warnf("[Outreach] Template %q: %v", tmpl.Name, err)
			record.FailedVariants++
		}
	}

	for i := range socialTemplates {
		tmpl := &socialTemplates[i]
		resp, m := s.runVariant(ctx, batchID, lead, tmpl, vars, record)
		meta[tmpl.Name] = m
		if resp == nil {
			continue
		}
		if err := record.SetSocialVariant(tmpl.Slot, strings.TrimSpace(resp.Content)); err != nil {
			logger.Warnf("[Outreach] Template %q: %v", tmpl.Name, err)
			record.FailedVariants++
		}
	}

	if metaJSON, err := json.Marshal(meta); err == nil {
		record.GenerationMeta = string(metaJSON)
	}
	record.DurationMs = time.Since(start).Milliseconds()
	if record.PopulatedVariants() > 0 {
		record.Status = "ready"
	} else {
		record.Status = "failed"
	}
	return record
}

// runVariant fills one template and makes the AI call, updating the
// record's running totals. Returns a nil response on failure.
func (s *OutreachService) runVariant(ctx context.Context, batchID string, lead *models.Lead, tmpl *models.PromptTemplate, vars map[string]string, record *models.OutreachRecord) (*CallResponse, variantMeta) {
	s.hub.Publish(BatchEvent{
		Type: EventVariationStarted, BatchID: batchID,
		LeadID: lead.ID, Channel: tmpl.Channel, Slot: tmpl.Slot,
	})

	callStart := time.Now()
	resp, err := s.ai.Call(ctx, &CallRequest{
		Model:        tmpl.Model,
		SystemPrompt: tmpl.SystemPrompt,
		UserPrompt:   Fill(tmpl.UserPromptTemplate, vars),
		Temperature:  tmpl.Temperature,
		Engine:       "outreach",
		Module:       tmpl.Name,
		LeadID:       &lead.ID,
	})
	m := variantMeta{Model: tmpl.Model, DurationMs: time.Since(callStart).Milliseconds()}

	if err != nil {
		logger.Warnf("[Outreach] Lead %d template %q failed: %v", lead.ID, tmpl.Name, err)
		record.FailedVariants++
		m.Error = err.Error()
		s.hub.Publish(BatchEvent{
			Type: EventVariationFailed, BatchID: batchID,
			LeadID: lead.ID, Channel: tmpl.Channel, Slot: tmpl.Slot,
			Error: err.Error(),
		})
		return nil, m
	}

	m.CostUSD = resp.CostUSD
	m.PromptTokens = resp.Usage.Prompt
	m.CompletionTokens = resp.Usage.Completion
	record.TotalCostUSD += resp.CostUSD
	record.PromptTokens += resp.Usage.Prompt
	record.CompletionTokens += resp.Usage.Completion

	cost := resp.CostUSD
	s.hub.Publish(BatchEvent{
		Type: EventVariationCompleted, BatchID: batchID,
		LeadID: lead.ID, Channel: tmpl.Channel, Slot: tmpl.Slot,
		CostUSD: &cost,
	})
	return resp, m
}

func (s *OutreachService) publishLeadFailed(batchID string, lead *models.Lead, done, total int, err error) {
	s.hub.Publish(BatchEvent{
		Type: EventLeadFailed, BatchID: batchID,
		LeadID: lead.ID, CompanyName: lead.CompanyName,
		Done: done, Total: total, Error: err.Error(),
	})
}

// buildLeadContext flattens a lead and its analysis JSON into the
// template variable map. Scalar analysis fields override nothing; lead
// columns win on key collision.
func buildLeadContext(lead *models.Lead) map[string]string {
	vars := make(map[string]string)

	if lead.Analysis != "" {
		var analysis map[string]interface{}
		if err := json.Unmarshal([]byte(lead.Analysis), &analysis); err != nil {
			logger.Warnf("[Outreach] Lead %d has malformed analysis JSON: %v", lead.ID, err)
		} else {
			for key, value := range analysis {
				switch v := value.(type) {
				case string:
					vars[key] = v
				case float64:
					vars[key] = formatNumber(v)
				case bool:
					vars[key] = fmt.Sprintf("%t", v)
				}
				// Nested objects and arrays are not template material
			}
		}
	}

	vars["company_name"] = lead.CompanyName
	vars["website_url"] = lead.WebsiteURL
	vars["industry"] = lead.Industry
	contact := lead.ContactName
	if contact == "" {
		contact = "there"
	}
	vars["contact_name"] = contact

	return vars
}

// formatNumber renders a JSON number without a trailing ".000000" when it
// is integral.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// GetBatchRun returns one persisted batch summary by its public ID.
func (s *OutreachService) GetBatchRun(batchID string) (*models.BatchRun, error) {
	var run models.BatchRun
	if err := s.db.Where("batch_id = ?", batchID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %s not found", batchID)
		}
		return nil, err
	}
	return &run, nil
}

// ListBatchRuns returns recent batch summaries, newest first.
func (s *OutreachService) ListBatchRuns(limit int) ([]models.BatchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.BatchRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRecord returns the outreach record for a lead.
func (s *OutreachService) GetRecord(leadID uint) (*models.OutreachRecord, error) {
	var record models.OutreachRecord
	err := s.db.Preload("Lead").Where("lead_id = ?", leadID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no outreach record for lead %d", leadID)
		}
		return nil, err
	}
	return &record, nil
}

// ListRecords returns outreach records, newest first, with pagination.
func (s *OutreachService) ListRecords(page, pageSize int) ([]models.OutreachRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&models.OutreachRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.OutreachRecord
	err := s.db.Preload("Lead").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// RetryFailed regenerates records whose status is failed, up to maxRetries
// leads per invocation. Used by the scheduled retry job.
func (s *OutreachService) RetryFailed(ctx context.Context, maxLeads int) (*BatchSummary, error) {
	if maxLeads <= 0 {
		maxLeads = 10
	}
	var failed []models.OutreachRecord
	err := s.db.Where("status = ?", "failed").Limit(maxLeads).Find(&failed).Error
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(failed))
	for _, r := range failed {
		ids = append(ids, r.LeadID)
	}
	logger.Infof("[Outreach] Retrying %d failed leads", len(ids))
	return s.GenerateBatch(ctx, BatchOptions{LeadIDs: ids, ForceRegenerate: true})
}

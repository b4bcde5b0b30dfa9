package models

import "time"

// BatchRun persists the summary of one outreach-generation batch. A batch
// always completes with a summary, even when every lead in it failed.
type BatchRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BatchID      string    `gorm:"size:64;uniqueIndex;not null" json:"batch_id"`
	Status       string    `gorm:"size:50;default:running;index" json:"status"` // running, completed
	TotalLeads   int       `json:"total_leads"`
	Processed    int       `json:"processed"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	TotalCostUSD float64   `gorm:"type:decimal(10,6);default:0" json:"total_cost_usd"`
	DurationMs   int64     `json:"duration_ms"`
	Errors       string    `gorm:"type:text" json:"errors"` // JSON array of {lead_id, error}
	Forced       bool      `json:"forced"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (BatchRun) TableName() string { return "batch_runs" }

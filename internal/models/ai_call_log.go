package models

import "time"

// AICallLog records each LLM API call for cost and usage tracking.
// Rows are append-only and written best-effort.
type AICallLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	LeadID           *uint     `gorm:"index" json:"lead_id"`
	Engine           string    `gorm:"size:100;index" json:"engine"`
	Module           string    `gorm:"size:100;index" json:"module"`
	Provider         string    `gorm:"size:50" json:"provider"`
	Model            string    `gorm:"size:100" json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CostUSD          float64   `gorm:"type:decimal(10,6);default:0" json:"cost_usd"`
	PromptPreview    string    `gorm:"size:500" json:"prompt_preview"`
	ResponsePreview  string    `gorm:"size:500" json:"response_preview"`
	LatencyMs        int64     `json:"latency_ms"`
	Cached           bool      `json:"cached"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `gorm:"size:500" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (AICallLog) TableName() string { return "ai_call_logs" }

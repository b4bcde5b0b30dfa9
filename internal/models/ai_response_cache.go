package models

import "time"

// AIResponseCache stores prior LLM responses keyed by the request
// fingerprint (model, system prompt, user prompt, temperature, JSON mode).
// Vision requests are never cached because image bytes are not part of the
// fingerprint.
type AIResponseCache struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Fingerprint      string    `gorm:"size:64;uniqueIndex;not null" json:"fingerprint"`
	Model            string    `gorm:"size:100" json:"model"`
	Provider         string    `gorm:"size:50" json:"provider"`
	Content          string    `gorm:"type:text" json:"content"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `gorm:"type:decimal(10,6);default:0" json:"cost_usd"`
	ExpiresAt        time.Time `gorm:"index" json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func (AIResponseCache) TableName() string { return "ai_response_cache" }

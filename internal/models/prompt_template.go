package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChannelEmail  = "email"
	ChannelSocial = "social"
)

// PromptTemplate represents a versioned, named prompt configuration with
// {{variable}} placeholders filled from a per-lead context before being sent
// to a vendor (stored in database).
type PromptTemplate struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Version            int            `gorm:"default:1" json:"version"`
	Name               string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description        string         `gorm:"size:500" json:"description"`
	Channel            string         `gorm:"size:20;not null;index" json:"channel"` // email, social
	Slot               int            `gorm:"not null" json:"slot"`                  // target column: email 1-3, social 1-9
	Model              string         `gorm:"size:100" json:"model"`
	Temperature        float64        `gorm:"default:0.7" json:"temperature"`
	SystemPrompt       string         `gorm:"type:text" json:"system_prompt"`
	UserPromptTemplate string         `gorm:"type:text;not null" json:"user_prompt_template"`
	Variables          string         `gorm:"size:500" json:"variables"` // JSON array: ["company_name", "top_issue"]
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	IsSystem           bool           `gorm:"default:false" json:"is_system"` // System templates cannot be deleted
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PromptTemplate) TableName() string { return "prompt_templates" }

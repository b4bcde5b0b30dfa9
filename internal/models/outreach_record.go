package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OutreachRecord holds the generated outreach copy for one lead: three email
// variants and nine social variants plus generation metadata. One row per
// lead; existence of a row is the de-duplication signal for batch runs.
// Variant fields are pointers so an individual generation failure leaves that
// column NULL without affecting the others.
type OutreachRecord struct {
	ID     uint  `gorm:"primaryKey" json:"id"`
	LeadID uint  `gorm:"uniqueIndex;not null" json:"lead_id"`
	Lead   *Lead `gorm:"foreignKey:LeadID" json:"lead,omitempty"`

	EmailSubject1 *string `gorm:"size:500" json:"email_subject_1"`
	EmailBody1    *string `gorm:"type:text" json:"email_body_1"`
	EmailSubject2 *string `gorm:"size:500" json:"email_subject_2"`
	EmailBody2    *string `gorm:"type:text" json:"email_body_2"`
	EmailSubject3 *string `gorm:"size:500" json:"email_subject_3"`
	EmailBody3    *string `gorm:"type:text" json:"email_body_3"`

	Social1 *string `gorm:"type:text" json:"social_1"`
	Social2 *string `gorm:"type:text" json:"social_2"`
	Social3 *string `gorm:"type:text" json:"social_3"`
	Social4 *string `gorm:"type:text" json:"social_4"`
	Social5 *string `gorm:"type:text" json:"social_5"`
	Social6 *string `gorm:"type:text" json:"social_6"`
	Social7 *string `gorm:"type:text" json:"social_7"`
	Social8 *string `gorm:"type:text" json:"social_8"`
	Social9 *string `gorm:"type:text" json:"social_9"`

	// GenerationMeta is a JSON object keyed by template name with per-variant
	// cost, duration and token counts.
	GenerationMeta   string  `gorm:"type:text" json:"generation_meta"`
	Status           string  `gorm:"size:50;default:pending;index" json:"status"` // pending, generating, ready, skipped, failed
	BatchID          string  `gorm:"size:64;index" json:"batch_id"`
	TotalCostUSD     float64 `gorm:"type:decimal(10,6);default:0" json:"total_cost_usd"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	DurationMs       int64   `json:"duration_ms"`
	FailedVariants   int     `json:"failed_variants"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OutreachRecord) TableName() string { return "outreach_records" }

// SetEmailVariant stores a generated email into the given slot (1-3).
func (r *OutreachRecord) SetEmailVariant(slot int, subject, body string) error {
	switch slot {
	case 1:
		r.EmailSubject1, r.EmailBody1 = &subject, &body
	case 2:
		r.EmailSubject2, r.EmailBody2 = &subject, &body
	case 3:
		r.EmailSubject3, r.EmailBody3 = &subject, &body
	default:
		return fmt.Errorf("invalid email slot %d", slot)
	}
	return nil
}

// SetSocialVariant stores a generated social message into the given slot (1-9).
func (r *OutreachRecord) SetSocialVariant(slot int, text string) error {
	switch slot {
	case 1:
		r.Social1 = &text
	case 2:
		r.Social2 = &text
	case 3:
		r.Social3 = &text
	case 4:
		r.Social4 = &text
	case 5:
		r.Social5 = &text
	case 6:
		r.Social6 = &text
	case 7:
		r.Social7 = &text
	case 8:
		r.Social8 = &text
	case 9:
		r.Social9 = &text
	default:
		return fmt.Errorf("invalid social slot %d", slot)
	}
	return nil
}

// PopulatedVariants counts the non-null variant fields.
func (r *OutreachRecord) PopulatedVariants() int {
	count := 0
	for _, p := range []*string{
		r.EmailBody1, r.EmailBody2, r.EmailBody3,
		r.Social1, r.Social2, r.Social3, r.Social4, r.Social5,
		r.Social6, r.Social7, r.Social8, r.Social9,
	} {
		if p != nil {
			count++
		}
	}
	return count
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead represents a business record produced by website analysis. It is the
// subject of one outreach-generation run.
type Lead struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CompanyName  string `gorm:"size:200;not null" json:"company_name"`
	WebsiteURL   string `gorm:"size:500;index" json:"website_url"`
	ContactName  string `gorm:"size:200" json:"contact_name"`
	ContactEmail string `gorm:"size:255" json:"contact_email"`
	Industry     string `gorm:"size:100" json:"industry"`
	// Analysis holds the website-analysis result fields as a JSON object;
	// it is flattened into the personalization context at generation time.
	Analysis      string         `gorm:"type:text" json:"analysis"`
	ScreenshotURL string         `gorm:"size:500" json:"screenshot_url"`
	Status        string         `gorm:"size:50;default:new;index" json:"status"` // new, analyzed, contacted
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Lead) TableName() string { return "leads" }

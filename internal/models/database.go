package models

import (
	"fmt"

	"github.com/outreachforge/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Lead{},
		&OutreachRecord{},
		&BatchRun{},
		&PromptTemplate{},
		&AICallLog{},
		&AIResponseCache{},
		&SystemConfig{},
		&SystemLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the system prompt templates and default configs if
// they do not exist yet.
func SeedDefaultData() error {
	var templateCount int64
	DB.Model(&PromptTemplate{}).Where("is_system = ?", true).Count(&templateCount)
	if templateCount == 0 {
		for _, tpl := range systemTemplates() {
			if err := DB.Create(&tpl).Error; err != nil {
				return err
			}
		}
	}

	defaultConfigs := []SystemConfig{
		{Key: "ai_call_log_retention_days", Value: "90", Type: "int", Group: "retention", Label: "AI Call Log Retention Days"},
		{Key: "system_log_retention_days", Value: "30", Type: "int", Group: "retention", Label: "System Log Retention Days"},
		{Key: "outreach_retry_enabled", Value: "true", Type: "bool", Group: "outreach", Label: "Retry Failed Outreach Records"},
		{Key: "outreach_retry_max", Value: "3", Type: "int", Group: "outreach", Label: "Max Outreach Retry Attempts"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("`key` = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

const outreachVariables = `["company_name", "website_url", "contact_name", "industry", "top_issue", "performance_score"]`

// systemTemplates returns the seeded template set: three email variants and
// nine social variants, one per outreach record column.
func systemTemplates() []PromptTemplate {
	emailSystem := "You are an expert cold-email copywriter for a web agency. " +
		"Write concise, personal outreach grounded in the website analysis you are given. " +
		"Start your reply with a single line `Subject: ...`, then a blank line, then the body. " +
		"Never use placeholder brackets in the output."

	socialSystem := "You are an expert at short, casual social outreach for a web agency. " +
		"Write a single direct message under 500 characters. No hashtags, no emojis overload, no subject line."

	templates := []PromptTemplate{
		{
			Name: "problem-first-urgent", Channel: "email", Slot: 1,
			Description:  "Leads with the most pressing site issue",
			SystemPrompt: emailSystem,
			UserPromptTemplate: "Write a cold email to {{contact_name}} at {{company_name}} ({{website_url}}).\n" +
				"Their most pressing website issue: {{top_issue}}.\n" +
				"Open with the problem, quantify the impact for a {{industry}} business, and close with a soft ask for a 15-minute call.",
			Temperature: 0.7,
		},
		{
			Name: "compliment-then-pitch", Channel: "email", Slot: 2,
			Description:  "Opens with genuine praise before the pitch",
			SystemPrompt: emailSystem,
			UserPromptTemplate: "Write a cold email to {{contact_name}} at {{company_name}}.\n" +
				"Start with a specific, genuine compliment about {{website_url}}, then pivot to the one improvement that matters most: {{top_issue}}.\n" +
				"Keep it under 120 words.",
			Temperature: 0.8,
		},
		{
			Name: "data-driven-audit", Channel: "email", Slot: 3,
			Description:  "Leads with the audit score",
			SystemPrompt: emailSystem,
			UserPromptTemplate: "Write a cold email to {{company_name}}.\n" +
				"We audited {{website_url}} and it scored {{performance_score}}/100.\n" +
				"Reference the score, name {{top_issue}} as the main driver, and offer to share the full report.",
			Temperature: 0.6,
		},
	}

	socialAngles := []struct {
		name, angle string
	}{
		{"linkedin-problem", "LinkedIn DM leading with {{top_issue}} on {{website_url}}"},
		{"linkedin-compliment", "LinkedIn DM opening with praise for {{company_name}}'s work, then one suggestion"},
		{"linkedin-question", "LinkedIn DM asking a curious question about how {{company_name}} handles their online presence"},
		{"twitter-short", "Very short X/Twitter DM about {{top_issue}}, casual tone"},
		{"twitter-value", "X/Twitter DM offering one free specific tip for {{website_url}}"},
		{"twitter-social-proof", "X/Twitter DM mentioning results we got for another {{industry}} business"},
		{"instagram-visual", "Instagram DM referencing the look and feel of {{website_url}}"},
		{"instagram-local", "Instagram DM with a friendly local-business angle for {{company_name}}"},
		{"facebook-direct", "Facebook message, plain-spoken, naming {{top_issue}} and a simple fix"},
	}

	for i, s := range socialAngles {
		templates = append(templates, PromptTemplate{
			Name: s.name, Channel: "social", Slot: i + 1,
			Description:        "Social outreach variant",
			SystemPrompt:       socialSystem,
			UserPromptTemplate: "Write the message for: " + s.angle + ". Contact: {{contact_name}}.",
			Temperature:        0.9,
		})
	}

	for i := range templates {
		templates[i].Version = 1
		if templates[i].Model == "" {
			templates[i].Model = "gpt-4o-mini"
		}
		templates[i].Variables = outreachVariables
		templates[i].IsActive = true
		templates[i].IsSystem = true
	}

	return templates
}

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/pkg/logger"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// PromptService manages outreach prompt templates and their rendering.
type PromptService struct {
	db *gorm.DB
}

func NewPromptService(db *gorm.DB) *PromptService {
	return &PromptService{db: db}
}

func (s *PromptService) GetTemplates(channel string) ([]models.PromptTemplate, error) {
	var templates []models.PromptTemplate
	query := s.db.Order("channel, slot")
	if channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if err := query.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *PromptService) GetTemplate(id uint) (*models.PromptTemplate, error) {
	var template models.PromptTemplate
	if err := s.db.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("template %d not found", id)
		}
		return nil, err
	}
	return &template, nil
}

// ActiveTemplates returns the active template for each slot of a channel,
// ordered by slot. Each slot contributes at most one template.
func (s *PromptService) ActiveTemplates(channel string) ([]models.PromptTemplate, error) {
	var templates []models.PromptTemplate
	err := s.db.Where("channel = ? AND is_active = ?", channel, true).
		Order("slot").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *PromptService) CreateTemplate(template *models.PromptTemplate) error {
	if template.Channel != models.ChannelEmail && template.Channel != models.ChannelSocial {
		return fmt.Errorf("invalid channel %q", template.Channel)
	}
	if template.Slot < 1 {
		return fmt.Errorf("slot must be positive, got %d", template.Slot)
	}
	if _, err := CapsForModel(template.Model); err != nil {
		return err
	}
	return s.db.Create(template).Error
}

func (s *PromptService) UpdateTemplate(id uint, updates map[string]interface{}) error {
	template, err := s.GetTemplate(id)
	if err != nil {
		return err
	}
	if model, ok := updates["model"].(string); ok {
		if _, err := CapsForModel(model); err != nil {
			return err
		}
	}
	return s.db.Model(template).Updates(updates).Error
}

// DeleteTemplate removes a custom template. Seeded system templates can be
// deactivated but not deleted.
func (s *PromptService) DeleteTemplate(id uint) error {
	template, err := s.GetTemplate(id)
	if err != nil {
		return err
	}
	if template.IsSystem {
		return fmt.Errorf("system template %q cannot be deleted", template.Name)
	}
	return s.db.Delete(template).Error
}

// Fill substitutes {{variable}} placeholders in a template string.
// Unknown placeholders are logged and left literal so a broken template
// is visible in the generated copy rather than silently blanked.
func Fill(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			logger.Warnf("[Prompt] Template references unknown variable %q", name)
			return match
		}
		return value
	})
}

// TemplateVariables decodes the JSON variable list stored on a template.
func TemplateVariables(template *models.PromptTemplate) []string {
	if template.Variables == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(template.Variables), &names); err != nil {
		logger.Warnf("[Prompt] Template %q has malformed variables list: %v", template.Name, err)
		return nil
	}
	return names
}

// SplitSubject separates an email draft into subject and body. Models are
// asked to lead with a "Subject:" line; when that line is missing the whole
// draft becomes the body and the subject stays empty.
func SplitSubject(draft string) (subject, body string) {
	trimmed := strings.TrimSpace(draft)
	lines := strings.SplitN(trimmed, "\n", 2)

	const prefix = "subject:"
	first := strings.TrimSpace(lines[0])
	if len(first) >= len(prefix) && strings.EqualFold(first[:len(prefix)], prefix) {
		subject = strings.TrimSpace(first[len(prefix):])
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}
		return subject, body
	}
	return "", trimmed
}

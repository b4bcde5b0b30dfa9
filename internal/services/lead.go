package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/outreachforge/backend/internal/models"
)

// LeadService manages the lead records that outreach generation consumes.
type LeadService struct {
	db *gorm.DB
}

func NewLeadService(db *gorm.DB) *LeadService {
	return &LeadService{db: db}
}

type LeadListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	Industry string `form:"industry"`
	Search   string `form:"search"`
}

type LeadListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.Lead `json:"items"`
}

func (s *LeadService) List(req *LeadListRequest) (*LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Lead{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Industry != "" {
		query = query.Where("industry = ?", req.Industry)
	}
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("company_name LIKE ? OR website_url LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var leads []models.Lead
	err := query.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&leads).Error
	if err != nil {
		return nil, err
	}

	return &LeadListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    leads,
	}, nil
}

func (s *LeadService) Get(id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lead %d not found", id)
		}
		return nil, err
	}
	return &lead, nil
}

func (s *LeadService) Create(lead *models.Lead) error {
	if lead.CompanyName == "" {
		return errors.New("company name is required")
	}
	if lead.Status == "" {
		lead.Status = "new"
	}
	return s.db.Create(lead).Error
}

func (s *LeadService) Update(id uint, updates map[string]interface{}) error {
	lead, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Model(lead).Updates(updates).Error
}

// Delete removes a lead and its outreach record.
func (s *LeadService) Delete(id uint) error {
	lead, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&models.OutreachRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(lead).Error
	})
}

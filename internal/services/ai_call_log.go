package services

import (
	"time"
	"unicode/utf8"

	"github.com/outreachforge/backend/internal/models"
	"github.com/outreachforge/backend/pkg/logger"
	"gorm.io/gorm"
)

// AICallLogService maintains the append-only audit trail of LLM calls.
type AICallLogService struct {
	db *gorm.DB
}

func NewAICallLogService(db *gorm.DB) *AICallLogService {
	return &AICallLogService{db: db}
}

// Record saves a call log entry asynchronously. Logging never affects the
// caller's result; failures are demoted to warnings.
func (s *AICallLogService) Record(log *models.AICallLog) {
	go func() {
		if err := s.db.Create(log).Error; err != nil {
			logger.Warnf("[AICallLog] Failed to record call: %v", err)
		}
	}()
}

// UsageStats holds aggregated AI usage statistics.
type UsageStats struct {
	TotalCalls       int64   `json:"total_calls"`
	TotalTokens      int64   `json:"total_tokens"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	SuccessRate      float64 `json:"success_rate"`
	SuccessCount     int64   `json:"success_count"`
	FailureCount     int64   `json:"failure_count"`
	CachedCount      int64   `json:"cached_count"`
}

// GetStats returns aggregated usage statistics for the given time range.
func (s *AICallLogService) GetStats(startDate, endDate string, engine string) (*UsageStats, error) {
	query := s.db.Model(&models.AICallLog{})
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}
	if engine != "" {
		query = query.Where("engine = ?", engine)
	}

	var stats UsageStats
	err := query.Select(
		"COUNT(*) as total_calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(prompt_tokens), 0) as prompt_tokens, " +
			"COALESCE(SUM(completion_tokens), 0) as completion_tokens, " +
			"COALESCE(SUM(cost_usd), 0) as total_cost_usd, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as failure_count, " +
			"COALESCE(SUM(CASE WHEN cached = 1 THEN 1 ELSE 0 END), 0) as cached_count",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCalls) * 100
		stats.CacheHitRate = float64(stats.CachedCount) / float64(stats.TotalCalls) * 100
	}
	return &stats, nil
}

// DailyUsage holds usage data for a single day.
type DailyUsage struct {
	Date         string  `json:"date"`
	Calls        int     `json:"calls"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgLatencyMs int     `json:"avg_latency_ms"`
}

// GetDailyTrend returns daily aggregated usage for charting.
func (s *AICallLogService) GetDailyTrend(startDate, endDate string) ([]DailyUsage, error) {
	query := s.db.Model(&models.AICallLog{})
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}

	var results []DailyUsage
	err := query.Select(
		"DATE(created_at) as date, " +
			"COUNT(*) as calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(cost_usd), 0) as total_cost_usd, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms",
	).Group("DATE(created_at)").Order("date ASC").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []DailyUsage{}
	}
	return results, nil
}

// ProviderUsage holds usage data grouped by provider and model.
type ProviderUsage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}

// GetProviderBreakdown returns usage grouped by provider and model.
func (s *AICallLogService) GetProviderBreakdown(startDate, endDate string) ([]ProviderUsage, error) {
	query := s.db.Model(&models.AICallLog{})
	if startDate != "" {
		query = query.Where("created_at >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("created_at <= ?", endDate+" 23:59:59")
	}

	var results []ProviderUsage
	err := query.Select(
		"provider, model, " +
			"COUNT(*) as calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(SUM(cost_usd), 0) as total_cost_usd, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(AVG(CASE WHEN success = 1 THEN 100.0 ELSE 0.0 END), 0) as success_rate",
	).Group("provider, model").Order("calls DESC").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []ProviderUsage{}
	}
	return results, nil
}

// CleanupBefore deletes call logs older than the given time.
func (s *AICallLogService) CleanupBefore(before time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", before).Delete(&models.AICallLog{})
	return result.RowsAffected, result.Error
}

// truncatePreview shortens prompt/response text for audit rows, cutting on
// a rune boundary so multi-byte text is never split mid-sequence.
func truncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/outreachforge/backend/internal/models"
)

// stubCaller implements Caller for tests without touching any vendor.
type stubCaller struct {
	fn func(req *CallRequest) (*CallResponse, error)
}

func (c *stubCaller) Call(_ context.Context, req *CallRequest) (*CallResponse, error) {
	return c.fn(req)
}

func testTemplates() (email, social []models.PromptTemplate) {
	for slot := 1; slot <= 3; slot++ {
		email = append(email, models.PromptTemplate{
			Name:               "email-" + string(rune('0'+slot)),
			Channel:            models.ChannelEmail,
			Slot:               slot,
			Model:              "gpt-4o-mini",
			Temperature:        0.7,
			UserPromptTemplate: "Write to {{company_name}}",
		})
	}
	for slot := 1; slot <= 9; slot++ {
		social = append(social, models.PromptTemplate{
			Name:               "social-" + string(rune('0'+slot)),
			Channel:            models.ChannelSocial,
			Slot:               slot,
			Model:              "gpt-4o-mini",
			Temperature:        0.9,
			UserPromptTemplate: "Post about {{company_name}}",
		})
	}
	return email, social
}

func TestGenerateLeadAllVariantsSucceed(t *testing.T) {
	ai := &stubCaller{fn: func(req *CallRequest) (*CallResponse, error) {
		content := "generated copy"
		if strings.Contains(req.Module, "email") {
			content = "Subject: Hello Acme\n\nBody paragraph."
		}
		return &CallResponse{
			Content: content,
			Usage:   TokenUsage{Prompt: 100, Completion: 50},
			CostUSD: 0.001,
			Model:   req.Model,
		}, nil
	}}
	svc := NewOutreachService(nil, ai, nil, NewBatchHub())

	lead := &models.Lead{ID: 1, CompanyName: "Acme Co"}
	email, social := testTemplates()

	record := svc.generateLead(context.Background(), "batch-1", lead, email, social)

	if record.Status != "ready" {
		t.Errorf("status = %q, expected ready", record.Status)
	}
	if got := record.PopulatedVariants(); got != 12 {
		t.Errorf("populated variants = %d, expected 12", got)
	}
	if record.FailedVariants != 0 {
		t.Errorf("failed variants = %d, expected 0", record.FailedVariants)
	}
	if record.EmailSubject1 == nil || *record.EmailSubject1 != "Hello Acme" {
		t.Errorf("email subject 1 = %v, expected %q", record.EmailSubject1, "Hello Acme")
	}
	if record.EmailBody1 == nil || *record.EmailBody1 != "Body paragraph." {
		t.Errorf("email body 1 = %v", record.EmailBody1)
	}
	if record.Social9 == nil || *record.Social9 != "generated copy" {
		t.Errorf("social 9 = %v", record.Social9)
	}
	if record.TotalCostUSD < 0.0119 || record.TotalCostUSD > 0.0121 {
		t.Errorf("total cost = %f, expected ~0.012", record.TotalCostUSD)
	}
	if record.PromptTokens != 1200 || record.CompletionTokens != 600 {
		t.Errorf("tokens = %d/%d, expected 1200/600", record.PromptTokens, record.CompletionTokens)
	}
}

func TestGenerateLeadPartialFailure(t *testing.T) {
	// One social variant fails; the lead must still produce a ready record
	// with 11 populated columns and the failure recorded in the metadata.
	ai := &stubCaller{fn: func(req *CallRequest) (*CallResponse, error) {
		if req.Module == "social-5" {
			return nil, errors.New("rate limited")
		}
		return &CallResponse{Content: "ok", CostUSD: 0.002}, nil
	}}
	svc := NewOutreachService(nil, ai, nil, NewBatchHub())

	lead := &models.Lead{ID: 2, CompanyName: "Acme Co"}
	email, social := testTemplates()

	record := svc.generateLead(context.Background(), "batch-2", lead, email, social)

	if record.Status != "ready" {
		t.Errorf("status = %q, expected ready despite one failure", record.Status)
	}
	if got := record.PopulatedVariants(); got != 11 {
		t.Errorf("populated variants = %d, expected 11", got)
	}
	if record.FailedVariants != 1 {
		t.Errorf("failed variants = %d, expected 1", record.FailedVariants)
	}
	if record.Social5 != nil {
		t.Errorf("social 5 should be nil, got %q", *record.Social5)
	}

	var meta map[string]variantMeta
	if err := json.Unmarshal([]byte(record.GenerationMeta), &meta); err != nil {
		t.Fatalf("metadata should be valid JSON: %v", err)
	}
	if meta["social-5"].Error == "" {
		t.Error("failed variant should carry its error in metadata")
	}
	if meta["email-1"].Error != "" {
		t.Errorf("successful variant should not carry an error, got %q", meta["email-1"].Error)
	}
}

func TestGenerateLeadAllVariantsFail(t *testing.T) {
	ai := &stubCaller{fn: func(req *CallRequest) (*CallResponse, error) {
		return nil, errors.New("provider down")
	}}
	svc := NewOutreachService(nil, ai, nil, NewBatchHub())

	lead := &models.Lead{ID: 3, CompanyName: "Acme Co"}
	email, social := testTemplates()

	record := svc.generateLead(context.Background(), "batch-3", lead, email, social)

	if record.Status != "failed" {
		t.Errorf("status = %q, expected failed when nothing was generated", record.Status)
	}
	if got := record.PopulatedVariants(); got != 0 {
		t.Errorf("populated variants = %d, expected 0", got)
	}
	if record.FailedVariants != 12 {
		t.Errorf("failed variants = %d, expected 12", record.FailedVariants)
	}
}

func TestGenerateLeadFillsTemplateVariables(t *testing.T) {
	var prompts []string
	ai := &stubCaller{fn: func(req *CallRequest) (*CallResponse, error) {
		prompts = append(prompts, req.UserPrompt)
		return &CallResponse{Content: "ok"}, nil
	}}
	svc := NewOutreachService(nil, ai, nil, NewBatchHub())

	lead := &models.Lead{ID: 4, CompanyName: "Acme Co"}
	email, _ := testTemplates()

	svc.generateLead(context.Background(), "batch-4", lead, email[:1], nil)

	if len(prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(prompts))
	}
	if prompts[0] != "Write to Acme Co" {
		t.Errorf("prompt = %q, variables were not filled", prompts[0])
	}
}

func TestBuildLeadContext(t *testing.T) {
	lead := &models.Lead{
		ID:          1,
		CompanyName: "Acme Co",
		WebsiteURL:  "https://acme.example",
		Industry:    "plumbing",
		ContactName: "Jordan",
		Analysis:    `{"top_issue": "slow page loads", "performance_score": 42, "mobile_friendly": false, "details": {"nested": true}}`,
	}

	vars := buildLeadContext(lead)

	if vars["company_name"] != "Acme Co" {
		t.Errorf("company_name = %q", vars["company_name"])
	}
	if vars["top_issue"] != "slow page loads" {
		t.Errorf("top_issue = %q", vars["top_issue"])
	}
	if vars["performance_score"] != "42" {
		t.Errorf("performance_score = %q, expected %q", vars["performance_score"], "42")
	}
	if vars["mobile_friendly"] != "false" {
		t.Errorf("mobile_friendly = %q", vars["mobile_friendly"])
	}
	if _, ok := vars["details"]; ok {
		t.Error("nested objects must not become template variables")
	}
}

func TestBuildLeadContextFallbacks(t *testing.T) {
	lead := &models.Lead{ID: 2, CompanyName: "Acme Co", Analysis: "not json"}

	vars := buildLeadContext(lead)

	if vars["contact_name"] != "there" {
		t.Errorf("contact_name fallback = %q, expected %q", vars["contact_name"], "there")
	}
	if vars["company_name"] != "Acme Co" {
		t.Errorf("malformed analysis must not lose lead columns, company_name = %q", vars["company_name"])
	}
}

func TestBuildLeadContextLeadColumnsWin(t *testing.T) {
	lead := &models.Lead{
		ID:          3,
		CompanyName: "Real Name",
		Analysis:    `{"company_name": "Scraped Name"}`,
	}

	vars := buildLeadContext(lead)
	if vars["company_name"] != "Real Name" {
		t.Errorf("lead column should win over analysis key, got %q", vars["company_name"])
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42, "42"},
		{42.5, "42.5"},
		{0, "0"},
		{-3, "-3"},
		{0.25, "0.25"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Lead{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestFetchLeadsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"oldest", "middle", "newest"} {
		lead := models.Lead{CompanyName: name, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.Create(&lead).Error; err != nil {
			t.Fatalf("create lead: %v", err)
		}
	}

	svc := &OutreachService{db: db}
	leads, err := svc.fetchLeads(BatchOptions{})
	if err != nil {
		t.Fatalf("fetchLeads() error = %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("got %d leads, want 3", len(leads))
	}
	for i, want := range []string{"newest", "middle", "oldest"} {
		if leads[i].CompanyName != want {
			t.Errorf("leads[%d] = %q, want %q", i, leads[i].CompanyName, want)
		}
	}
}

func TestFetchLeadsLimitKeepsMostRecent(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		lead := models.Lead{CompanyName: "lead", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.Create(&lead).Error; err != nil {
			t.Fatalf("create lead: %v", err)
		}
	}

	svc := &OutreachService{db: db}
	leads, err := svc.fetchLeads(BatchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("fetchLeads() error = %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("got %d leads, want 2", len(leads))
	}
	if !leads[0].CreatedAt.After(leads[1].CreatedAt) {
		t.Error("limited fetch should keep the most recent leads first")
	}
}

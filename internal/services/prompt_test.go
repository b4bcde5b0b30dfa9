package services

import (
	"testing"

	"github.com/outreachforge/backend/internal/models"
)

func TestFill(t *testing.T) {
	vars := map[string]string{
		"company_name": "Acme Co",
		"top_issue":    "slow page loads",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "single variable",
			template: "Hi {{company_name}} team!",
			want:     "Hi Acme Co team!",
		},
		{
			name:     "multiple variables",
			template: "{{company_name}} suffers from {{top_issue}}.",
			want:     "Acme Co suffers from slow page loads.",
		},
		{
			name:     "whitespace inside braces",
			template: "Hi {{ company_name }}!",
			want:     "Hi Acme Co!",
		},
		{
			name:     "unknown variable stays literal",
			template: "Dear {{contact_name}}, about {{company_name}}",
			want:     "Dear {{contact_name}}, about Acme Co",
		},
		{
			name:     "repeated variable",
			template: "{{company_name}} and {{company_name}}",
			want:     "Acme Co and Acme Co",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			want:     "plain text",
		},
		{
			name:     "single braces are left alone",
			template: "JSON like {\"a\": 1} stays",
			want:     "JSON like {\"a\": 1} stays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fill(tt.template, vars); got != tt.want {
				t.Errorf("Fill() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSubject(t *testing.T) {
	tests := []struct {
		name        string
		draft       string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "subject line plus body",
			draft:       "Subject: Quick question about Acme Co's site\n\nHi there,\nI noticed your homepage takes 8 seconds to load.",
			wantSubject: "Quick question about Acme Co's site",
			wantBody:    "Hi there,\nI noticed your homepage takes 8 seconds to load.",
		},
		{
			name:        "lowercase prefix accepted",
			draft:       "subject: hello\nbody text",
			wantSubject: "hello",
			wantBody:    "body text",
		},
		{
			name:        "no subject line",
			draft:       "Hi there, just the body paragraph.",
			wantSubject: "",
			wantBody:    "Hi there, just the body paragraph.",
		},
		{
			name:        "subject mid-text is not a subject",
			draft:       "Hello.\nSubject: not really",
			wantSubject: "",
			wantBody:    "Hello.\nSubject: not really",
		},
		{
			name:        "leading whitespace before subject",
			draft:       "\n\nSubject: Trimmed\nBody here",
			wantSubject: "Trimmed",
			wantBody:    "Body here",
		},
		{
			name:        "subject only",
			draft:       "Subject: Lone subject",
			wantSubject: "Lone subject",
			wantBody:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := SplitSubject(tt.draft)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestTemplateVariables(t *testing.T) {
	tmpl := &models.PromptTemplate{Variables: `["company_name", "top_issue"]`}
	got := TemplateVariables(tmpl)
	if len(got) != 2 || got[0] != "company_name" || got[1] != "top_issue" {
		t.Errorf("unexpected variables: %v", got)
	}

	if vars := TemplateVariables(&models.PromptTemplate{}); vars != nil {
		t.Errorf("empty list should decode to nil, got %v", vars)
	}

	if vars := TemplateVariables(&models.PromptTemplate{Variables: "not json"}); vars != nil {
		t.Errorf("malformed list should decode to nil, got %v", vars)
	}
}

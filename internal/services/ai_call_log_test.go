package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short string untouched", in: "hello", max: 10, want: "hello"},
		{name: "exact length untouched", in: "hello", max: 5, want: "hello"},
		{name: "long string truncated", in: "hello world", max: 5, want: "hello..."},
		{name: "empty string", in: "", max: 5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncatePreview(tt.in, tt.max); got != tt.want {
				t.Errorf("truncatePreview(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncatePreviewKeepsRunesWhole(t *testing.T) {
	// 世 and 界 are 3 bytes each; cutting at 4 bytes lands mid-rune.
	in := "世界" + strings.Repeat("x", 10)

	got := truncatePreview(in, 4)
	if got != "世..." {
		t.Errorf("truncatePreview() = %q, want %q", got, "世...")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated preview is not valid UTF-8: %q", got)
	}
}

package styles_test

import (
	"errors"
	"strings"
	"testing"

	"counselweb/internal/styles"
)

func TestParse(t *testing.T) {
	tests := []struct {
		tag     string
		want    styles.Style
		wantErr bool
	}{
		{"", styles.StyleCounselor, false},
		{"counselor", styles.StyleCounselor, false},
		{"simple", styles.StyleSimple, false},
		{"plain", styles.StylePlain, false},
		{"verbose", "", true},
		{"Counselor", "", true},
	}

	for _, tt := range tests {
		got, err := styles.Parse(tt.tag)
		if tt.wantErr {
			if !errors.Is(err, styles.ErrUnknownStyle) {
				t.Errorf("Parse(%q): expected ErrUnknownStyle, got %v", tt.tag, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.tag, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q): expected %q, got %q", tt.tag, tt.want, got)
		}
	}
}

func TestLookupCounselor(t *testing.T) {
	cfg, err := styles.Lookup(styles.StyleCounselor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(cfg.SystemPrompt, "college application counselor") {
		t.Error("expected the counselor prompt")
	}
	if !strings.Contains(cfg.SystemPrompt, "examples of the conversation style") {
		t.Error("expected the example exchanges appended to the prompt")
	}
	if cfg.Params.Temperature != 0.7 || cfg.Params.MaxTokens != 350 {
		t.Errorf("unexpected sampling parameters: %+v", cfg.Params)
	}
}

func TestLookupSimple(t *testing.T) {
	cfg, err := styles.Lookup(styles.StyleSimple)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(cfg.SystemPrompt, "ONE question") {
		t.Error("expected the simple prompt")
	}
	if cfg.Params.Temperature != 0.3 || cfg.Params.MaxTokens != 300 || cfg.Params.FrequencyPenalty != 0.5 {
		t.Errorf("unexpected sampling parameters: %+v", cfg.Params)
	}
}

func TestLookupPlain(t *testing.T) {
	cfg, err := styles.Lookup(styles.StylePlain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SystemPrompt != "" {
		t.Errorf("expected no system prompt, got %q", cfg.SystemPrompt)
	}
}

func TestLookupRejectsUnknownStyle(t *testing.T) {
	if _, err := styles.Lookup(styles.Style("verbose")); !errors.Is(err, styles.ErrUnknownStyle) {
		t.Errorf("expected ErrUnknownStyle, got %v", err)
	}
}

package auth

import (
	"net/http"
	"strings"
	"testing"
)

func TestSecretMatches(t *testing.T) {
	tests := []struct {
		expected, presented string
		want                bool
	}{
		{"S3cret", "S3cret", true},
		{"S3cret", "s3cret", false},
		{"S3cret", "S3cre", false},
		{"S3cret", "", false},
		{"S3cret", "S3cret ", false},
	}
	for _, tt := range tests {
		if got := SecretMatches(tt.expected, tt.presented); got != tt.want {
			t.Errorf("SecretMatches(%q, %q) = %v, want %v", tt.expected, tt.presented, got, tt.want)
		}
	}
}

func TestHeaderSecret(t *testing.T) {
	h := http.Header{}
	h.Set(SecretHeader, "abc")
	if got := HeaderSecret(h); got != "abc" {
		t.Errorf("canonical header = %q, want abc", got)
	}

	raw := http.Header{"x-telegram-bot-api-secret-token": {"lower"}}
	if got := HeaderSecret(raw); got != "lower" {
		t.Errorf("lowercase header = %q, want lower", got)
	}

	if got := HeaderSecret(http.Header{}); got != "" {
		t.Errorf("missing header = %q, want empty", got)
	}
	if got := HeaderSecret(nil); got != "" {
		t.Errorf("nil headers = %q, want empty", got)
	}
}

func TestValidateSecret(t *testing.T) {
	valid := []string{"a", "abc_DEF-123", strings.Repeat("x", 256)}
	for _, s := range valid {
		if err := ValidateSecret(s); err != nil {
			t.Errorf("ValidateSecret(%q): %v", s, err)
		}
	}

	invalid := []string{"", "has space", "semi;colon", strings.Repeat("x", 257), "ünicode"}
	for _, s := range invalid {
		if err := ValidateSecret(s); err == nil {
			t.Errorf("ValidateSecret(%q) = nil, want error", s)
		}
	}
}

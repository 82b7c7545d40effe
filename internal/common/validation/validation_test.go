package validation

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		wantError bool
	}{
		{"Valid email", "user@example.com", false},
		{"Valid with subdomain", "user@mail.example.com", false},
		{"Valid with plus", "user+tag@example.com", false},
		{"Leading whitespace trimmed", "  user@example.com", false},
		{"Empty", "", true},
		{"Missing at sign", "userexample.com", true},
		{"Missing local part", "@example.com", true},
		{"Missing domain", "user@", true},
		{"Double at sign", "user@@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantError && err == nil {
				t.Errorf("ValidateEmail(%q) expected error, got nil", tt.email)
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidateEmail(%q) unexpected error: %v", tt.email, err)
			}
		})
	}
}

func TestValidateEmails(t *testing.T) {
	if err := ValidateEmails([]string{"a@b.com", "c@d.com"}, "recipients"); err != nil {
		t.Errorf("ValidateEmails() unexpected error: %v", err)
	}

	err := ValidateEmails([]string{"a@b.com", "bad"}, "recipients")
	if err == nil {
		t.Fatal("ValidateEmails() expected error for invalid entry, got nil")
	}
	if !strings.Contains(err.Error(), "recipients") {
		t.Errorf("ValidateEmails() error %q does not name the field", err)
	}
}

func TestValidateGUID(t *testing.T) {
	tests := []struct {
		name      string
		guid      string
		wantError bool
	}{
		{"Valid GUID", "12345678-1234-1234-1234-123456789012", false},
		{"Valid GUID with hex", "a1b2c3d4-e5f6-7890-abcd-ef1234567890", false},
		{"Empty", "", true},
		{"Too short", "12345678-1234", true},
		{"Too long", "12345678-1234-1234-1234-1234567890123", true},
		{"Wrong dash position", "123456781-234-1234-1234-123456789012", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGUID(tt.guid, "tenant ID")
			if tt.wantError && err == nil {
				t.Errorf("ValidateGUID(%q) expected error, got nil", tt.guid)
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidateGUID(%q) unexpected error: %v", tt.guid, err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		name      string
		port      int
		wantError bool
	}{
		{"Port 1", 1, false},
		{"Port 25", 25, false},
		{"Port 587", 587, false},
		{"Port 65535", 65535, false},
		{"Port 0", 0, true},
		{"Negative port", -1, true},
		{"Port too large", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePort(tt.port)
			if tt.wantError && err == nil {
				t.Errorf("ValidatePort(%d) expected error, got nil", tt.port)
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidatePort(%d) unexpected error: %v", tt.port, err)
			}
		})
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantError bool
	}{
		{"Empty is allowed", "", false},
		{"Valid https", "https://outlook.office.com/webhook/abc", false},
		{"Valid http", "http://localhost:8080/hook", false},
		{"Missing scheme", "outlook.office.com/webhook", true},
		{"Wrong scheme", "ftp://example.com/hook", true},
		{"Scheme only", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWebhookURL(tt.url)
			if tt.wantError && err == nil {
				t.Errorf("ValidateWebhookURL(%q) expected error, got nil", tt.url)
			}
			if !tt.wantError && err != nil {
				t.Errorf("ValidateWebhookURL(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}

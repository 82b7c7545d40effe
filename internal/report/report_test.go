package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appregwatch/internal/directory"
	"appregwatch/internal/expiry"
)

func days(d int) *int { return &d }

func sampleReport() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC),
		Apps: []directory.AppRegistration{
			{
				DisplayName: "App1",
				Credentials: []directory.Credential{
					{EndDateTime: "2026-06-06T00:00:00Z", DaysToExpiry: days(5), ExpiryDate: "2026-06-06T00:00:00Z", Bucket: expiry.BucketOrange},
				},
				Owners:       []directory.Owner{{UserPrincipalName: "owner1@example.com"}},
				DaysToExpiry: days(5),
				ExpiryDate:   "2026-06-06T00:00:00Z",
				Bucket:       expiry.BucketOrange,
			},
			{
				DisplayName: "App2", // No credentials, must not produce a row
				Bucket:      expiry.BucketBlue,
			},
		},
	}
}

func TestRenderHTML_RowsAndBuckets(t *testing.T) {
	html, err := RenderHTML(sampleReport())
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	if !strings.Contains(html, "App1") {
		t.Error("report does not contain App1 row")
	}
	if !strings.Contains(html, `<tr class="orange">`) {
		t.Error("App1 row is not colored orange")
	}
	if !strings.Contains(html, "owner1@example.com") {
		t.Error("App1 owners not rendered")
	}
	if !strings.Contains(html, "2026-06-06") {
		t.Error("expiry date not rendered as date")
	}

	// App2 has no renderable credential and must be skipped
	if strings.Contains(html, "App2") {
		t.Error("credential-less App2 must not appear in the HTML table")
	}

	// Fixed preamble and legend
	for _, fragment := range []string{
		"Why am I receiving this?",
		"Required Actions:",
		"Color Coding:",
		"Exported on: 2026-06-01 09:30:00",
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("report missing preamble fragment %q", fragment)
		}
	}
}

func TestRenderHTML_NoOwnersPlaceholder(t *testing.T) {
	r := sampleReport()
	r.Apps[0].Owners = nil

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	if !strings.Contains(html, "No owners") {
		t.Error("empty owner list must render the literal 'No owners'")
	}
}

func TestRenderHTML_ExpiredAndUnparseable(t *testing.T) {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Apps: []directory.AppRegistration{
			{
				DisplayName: "Expired",
				Credentials: []directory.Credential{
					{DaysToExpiry: days(-4), Bucket: expiry.BucketRed},
				},
				DaysToExpiry: days(-4),
				ExpiryDate:   "2026-01-01T00:00:00Z",
				Bucket:       expiry.BucketRed,
			},
			{
				DisplayName: "Broken",
				Credentials: []directory.Credential{
					{EndDateTime: "junk", Bucket: expiry.BucketRed},
				},
				Bucket: expiry.BucketRed,
			},
		},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	if !strings.Contains(html, "EXPIRED") {
		t.Error("expired credential must render as EXPIRED")
	}
	// Unparseable expiry surfaces red rather than being dropped
	if !strings.Contains(html, "Broken") {
		t.Error("registration with unparseable expiry must still appear")
	}
	if got := strings.Count(html, `<tr class="red">`); got != 2 {
		t.Errorf("red rows = %d, want 2", got)
	}
}

func TestRenderHTML_RowPerCredential(t *testing.T) {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Apps: []directory.AppRegistration{
			{
				DisplayName: "Rotating App",
				Credentials: []directory.Credential{
					{DisplayName: "current", DaysToExpiry: days(40), ExpiryDate: "2026-07-11T00:00:00Z", Bucket: expiry.BucketGreen},
					{DisplayName: "legacy", DaysToExpiry: days(5), ExpiryDate: "2026-06-06T00:00:00Z", Bucket: expiry.BucketOrange},
				},
				Owners:       []directory.Owner{{Mail: "owner@example.com"}},
				DaysToExpiry: days(5),
				Bucket:       expiry.BucketOrange,
			},
		},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	// Each credential gets its own row under the registration's name
	if got := strings.Count(html, "Rotating App"); got != 2 {
		t.Errorf("registration name appears %d times, want 2 (one row per credential)", got)
	}
	if !strings.Contains(html, `<tr class="green">`) {
		t.Error("40-day credential must render as its own green row")
	}
	if !strings.Contains(html, `<tr class="orange">`) {
		t.Error("5-day credential must render as its own orange row")
	}
	for _, fragment := range []string{"Secret Name", "current", "legacy", "2026-07-11", "2026-06-06"} {
		if !strings.Contains(html, fragment) {
			t.Errorf("report missing credential fragment %q", fragment)
		}
	}
}

func TestRenderHTML_AccountsTable(t *testing.T) {
	r := sampleReport()
	r.Accounts = []directory.UserAccount{
		{
			DisplayName:       "Backup Service",
			UserPrincipalName: "svc-backup@example.com",
			DaysToExpiry:      days(12),
			ExpiryDate:        "2026-06-13T00:00:00Z",
			Bucket:            expiry.BucketYellow,
		},
		{
			DisplayName:       "Static Service",
			UserPrincipalName: "svc-static@example.com",
			Bucket:            expiry.BucketBlue,
		},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	if !strings.Contains(html, "Monitored Accounts") {
		t.Error("accounts table heading missing")
	}
	if !strings.Contains(html, "svc-backup@example.com") {
		t.Error("account principal name missing")
	}
	if !strings.Contains(html, `<tr class="blue">`) {
		t.Error("no-expiry account must be blue")
	}
}

func TestRenderHTML_AccountGuestEmail(t *testing.T) {
	r := sampleReport()
	r.Accounts = []directory.UserAccount{
		{
			DisplayName:       "Jane Doe",
			UserPrincipalName: "jdoe_example.com#EXT#@tenant.onmicrosoft.com",
			DaysToExpiry:      days(12),
			Bucket:            expiry.BucketYellow,
		},
		{
			DisplayName:       "John Smith",
			UserPrincipalName: "jsmith_example.com#EXT#@tenant.onmicrosoft.com",
			Mail:              "john.smith@example.com",
			DaysToExpiry:      days(12),
			Bucket:            expiry.BucketYellow,
		},
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}

	// Guest without a mail attribute shows the demangled address
	if !strings.Contains(html, "jdoe@example.com") {
		t.Error("guest account without mail must render the demangled address")
	}
	if strings.Contains(html, "jdoe_example.com#EXT#") {
		t.Error("mangled guest principal name must not be rendered")
	}
	// The mail attribute wins when present
	if !strings.Contains(html, "john.smith@example.com") {
		t.Error("account with a mail attribute must render that address")
	}
}

func TestRenderHTML_NoAccountsOmitsTable(t *testing.T) {
	html, err := RenderHTML(sampleReport())
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	if strings.Contains(html, "Monitored Accounts") {
		t.Error("accounts table must be omitted when no accounts are monitored")
	}
}

func TestRenderCredentialAlert(t *testing.T) {
	tests := []struct {
		name      string
		days      int
		wantColor string
		wantText  string
	}{
		{"Far out is green", 45, "#28a745", "45"},
		{"Mid range is yellow", 20, "#ffc107", "20"},
		{"Close is orange", 3, "#ff9800", "3"},
		{"Today is red", 0, "#dc3545", "EXPIRED"},
		{"Past is red", -10, "#dc3545", "EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderCredentialAlert("MyApp", tt.days, "2026-06-06T00:00:00Z")
			if !strings.Contains(got, tt.wantColor) {
				t.Errorf("alert missing color %s:\n%s", tt.wantColor, got)
			}
			if !strings.Contains(got, tt.wantText) {
				t.Errorf("alert missing text %q", tt.wantText)
			}
			if !strings.Contains(got, "MyApp") {
				t.Error("alert missing app name")
			}
		})
	}
}

func TestWriteJSON_ContainsAllRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteJSON(path, sampleReport()); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}

	// The JSON dump keeps credential-less registrations the HTML omits
	if len(decoded.Apps) != 2 {
		t.Errorf("dump contains %d registrations, want 2", len(decoded.Apps))
	}
	if decoded.Apps[0].DaysToExpiry == nil || *decoded.Apps[0].DaysToExpiry != 5 {
		t.Errorf("App1 days in dump = %v, want 5", decoded.Apps[0].DaysToExpiry)
	}
}

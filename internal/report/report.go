// Package report renders the classified collection into the HTML report
// and the mirrored JSON audit dump.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"appregwatch/internal/directory"
)

// Report is the full classified, sorted output of one run.
type Report struct {
	GeneratedAt time.Time                   `json:"generatedAt"`
	Apps        []directory.AppRegistration `json:"appRegistrations"`
	Accounts    []directory.UserAccount     `json:"monitoredAccounts,omitempty"`
}

// WriteJSON writes the full report as indented JSON for audit/debugging.
// Unlike the HTML table, the dump contains every fetched record, including
// registrations without credentials.
func WriteJSON(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

package logger

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"
)

func TestCSVLogger_WritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()

	l, err := NewCSVLogger(dir)
	if err != nil {
		t.Fatalf("NewCSVLogger() error: %v", err)
	}

	if err := l.WriteRow([]string{"email", "ok", "secops@example.com", "digest"}); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	if err := l.WriteRow([]string{"webhook", "error", "App1", "webhook returned 500"}); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(l.Path())
	if err != nil {
		t.Fatalf("opening audit file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading audit file: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("audit file has %d records, want header plus 2 rows", len(records))
	}
	wantHeader := append([]string{"Timestamp"}, AuditColumns...)
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][1] != "email" || records[2][2] != "error" {
		t.Errorf("rows = %v", records[1:])
	}
	if records[1][0] == "" {
		t.Error("timestamp column is empty")
	}
}

func TestCSVLogger_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewCSVLogger(dir)
	if err != nil {
		t.Fatalf("NewCSVLogger() error: %v", err)
	}
	if err := l.WriteRow([]string{"email", "ok", "a@example.com", ""}); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	l.Close()

	// Reopening the same day's file must not duplicate the header.
	l2, err := NewCSVLogger(dir)
	if err != nil {
		t.Fatalf("NewCSVLogger() reopen error: %v", err)
	}
	if err := l2.WriteRow([]string{"email", "ok", "b@example.com", ""}); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	l2.Close()

	data, err := os.ReadFile(l2.Path())
	if err != nil {
		t.Fatalf("reading audit file: %v", err)
	}
	if got := strings.Count(string(data), "Timestamp,Stage"); got != 1 {
		t.Errorf("header appears %d times, want 1", got)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Errorf("audit file has %d lines, want 3", got)
	}
}

package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AuditColumns is the header row for the per-run delivery audit file.
// Every sink-delivery outcome is appended as one row.
var AuditColumns = []string{"Stage", "Status", "Target", "Detail"}

// CSVLogger appends delivery-audit rows to a per-day CSV file.
// Filename pattern: <dir>/_appregwatch_audit_<date>.csv
type CSVLogger struct {
	writer     *csv.Writer
	file       *os.File
	rowCount   int
	lastFlush  time.Time
	flushEvery int
}

// NewCSVLogger opens (or creates) today's audit file in dir.
// If dir is empty the system temp directory is used.
func NewCSVLogger(dir string) (*CSVLogger, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	dateStr := time.Now().Format("2006-01-02")
	fileName := fmt.Sprintf("_appregwatch_audit_%s.csv", dateStr)
	filePath := filepath.Join(dir, fileName)

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create audit log file: %w", err)
	}

	l := &CSVLogger{
		writer:     csv.NewWriter(file),
		file:       file,
		lastFlush:  time.Now(),
		flushEvery: 10, // Flush every 10 rows or on close
	}

	if isNew, err := l.isEmpty(); err == nil && isNew {
		if err := l.writeHeader(AuditColumns); err != nil {
			file.Close()
			return nil, err
		}
	}

	return l, nil
}

// writeHeader writes the CSV header with a Timestamp column prepended.
func (l *CSVLogger) writeHeader(columns []string) error {
	header := append([]string{"Timestamp"}, columns...)
	if err := l.writer.Write(header); err != nil {
		return fmt.Errorf("failed to write audit header: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// WriteRow appends one audit row with the current timestamp prepended.
// Rows are flushed every N rows or every 5 seconds.
func (l *CSVLogger) WriteRow(row []string) error {
	if l.writer == nil {
		return fmt.Errorf("audit writer is not initialized")
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fullRow := append([]string{timestamp}, row...)

	if err := l.writer.Write(fullRow); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}

	l.rowCount++

	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		l.writer.Flush()
		l.lastFlush = time.Now()
		if err := l.writer.Error(); err != nil {
			return fmt.Errorf("failed to flush audit log: %w", err)
		}
	}

	return nil
}

// Close flushes buffered rows and closes the file.
func (l *CSVLogger) Close() error {
	if l.writer != nil {
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			return fmt.Errorf("error flushing audit log on close: %w", err)
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the audit file location.
func (l *CSVLogger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *CSVLogger) isEmpty() (bool, error) {
	fileInfo, err := l.file.Stat()
	if err != nil {
		return false, fmt.Errorf("could not stat audit file: %w", err)
	}
	return fileInfo.Size() == 0, nil
}

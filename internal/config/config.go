// Package config loads and validates the immutable runtime configuration.
// Every recognized option is an explicit field; components receive the
// loaded Config at construction instead of reading the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"appregwatch/internal/common/validation"
)

// Notification policy constants. "exact" fires only when days-to-expiry
// equals a configured milestone (or is negative); "window" fires for any
// credential at or below the largest milestone.
const (
	PolicyExact  = "exact"
	PolicyWindow = "window"
)

// Email delivery modes. "digest" sends one report email per run; "milestone"
// sends one email per credential that matches the notification policy;
// "both" does both.
const (
	EmailDigest    = "digest"
	EmailMilestone = "milestone"
	EmailBoth      = "both"
)

const (
	defaultSMTPPort       = 587
	defaultMaxPasswordAge = 365
	defaultNotifyPolicy   = PolicyExact
)

// DefaultMilestones are the day counts at which per-credential
// notifications fire under the exact policy.
var DefaultMilestones = []int{60, 30, 7, 1}

// Config holds all appregwatch configuration.
type Config struct {
	// Directory credentials
	TenantID     string
	ClientID     string
	ClientSecret string
	PfxPath      string // PFX certificate auth, alternative to ClientSecret
	PfxPassword  string

	// SMTP delivery
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	ToEmail      string
	AdminEmail   string

	// Teams webhook delivery
	TeamsWebhookURL string

	// SharePoint workbook mirror
	SharePointSiteID  string
	SharePointDriveID string
	ExcelFileID       string

	// Monitored user accounts (UPNs) and password policy
	WatchedAccounts    []string
	MaxPasswordAgeDays int

	// Notification behaviour
	Milestones    []int
	NotifyPolicy  string
	EmailMode     string
	SendRateLimit float64 // per-credential sends per second, 0 = unlimited

	// Self-monitoring: fixed expiry date of the tool's own client secret
	ClientSecretExpiry string // YYYY-MM-DD, empty disables the check

	// Runtime
	OutputDir   string
	LogLevel    string
	VerboseMode bool
}

// Load reads the optional .env file plus the process environment and
// returns a validated Config. An unparseable numeric or malformed required
// setting is an error; the caller is expected to treat it as fatal.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		// A missing default .env is fine; anything else is not.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	cfg := &Config{
		TenantID:           os.Getenv("AZURE_TENANT_ID"),
		ClientID:           os.Getenv("AZURE_CLIENT_ID"),
		ClientSecret:       os.Getenv("AZURE_CLIENT_SECRET"),
		PfxPath:            os.Getenv("AZURE_PFX_PATH"),
		PfxPassword:        os.Getenv("AZURE_PFX_PASSWORD"),
		SMTPHost:           os.Getenv("SMTP_SERVER"),
		SMTPPort:           defaultSMTPPort,
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		FromEmail:          os.Getenv("FROM_EMAIL"),
		FromName:           getenvDefault("FROM_NAME", "App Registration Watch"),
		ToEmail:            os.Getenv("TO_EMAIL"),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		TeamsWebhookURL:    os.Getenv("TEAMS_WEBHOOK_URL"),
		SharePointSiteID:   os.Getenv("SHAREPOINT_SITE_ID"),
		SharePointDriveID:  os.Getenv("SHAREPOINT_DRIVE_ID"),
		ExcelFileID:        os.Getenv("EXCEL_FILE_ID"),
		MaxPasswordAgeDays: defaultMaxPasswordAge,
		Milestones:         DefaultMilestones,
		NotifyPolicy:       getenvDefault("NOTIFY_POLICY", defaultNotifyPolicy),
		EmailMode:          getenvDefault("EMAIL_MODE", EmailDigest),
		ClientSecretExpiry: os.Getenv("CLIENT_ID_EXPIRY_DATE"),
		OutputDir:          getenvDefault("OUTPUT_DIR", "."),
		LogLevel:           getenvDefault("LOG_LEVEL", "INFO"),
	}

	if v := os.Getenv("WATCHED_ACCOUNTS"); v != "" {
		cfg.WatchedAccounts = splitAndTrim(v)
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT is not a number: %w", err)
		}
		cfg.SMTPPort = port
	}

	if v := os.Getenv("MAX_PASSWORD_AGE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_PASSWORD_AGE_DAYS is not a number: %w", err)
		}
		cfg.MaxPasswordAgeDays = days
	}

	if v := os.Getenv("NOTIFY_MILESTONES"); v != "" {
		milestones, err := parseMilestones(v)
		if err != nil {
			return nil, err
		}
		cfg.Milestones = milestones
	}

	if v := os.Getenv("SEND_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("SEND_RATE_LIMIT is not a number: %w", err)
		}
		cfg.SendRateLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if err := validation.ValidateGUID(c.TenantID, "AZURE_TENANT_ID"); err != nil {
		return err
	}
	if err := validation.ValidateGUID(c.ClientID, "AZURE_CLIENT_ID"); err != nil {
		return err
	}
	if c.ClientSecret == "" && c.PfxPath == "" {
		return fmt.Errorf("no directory credential configured (set AZURE_CLIENT_SECRET or AZURE_PFX_PATH)")
	}

	if c.EmailEnabled() {
		if err := validation.ValidatePort(c.SMTPPort); err != nil {
			return fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		if err := validation.ValidateEmail(c.FromEmail); err != nil {
			return fmt.Errorf("invalid FROM_EMAIL: %w", err)
		}
		if err := validation.ValidateEmail(c.ToEmail); err != nil {
			return fmt.Errorf("invalid TO_EMAIL: %w", err)
		}
	}
	if c.AdminEmail != "" {
		if err := validation.ValidateEmail(c.AdminEmail); err != nil {
			return fmt.Errorf("invalid ADMIN_EMAIL: %w", err)
		}
	}

	if err := validation.ValidateEmails(c.WatchedAccounts, "WATCHED_ACCOUNTS"); err != nil {
		return err
	}

	if err := validation.ValidateWebhookURL(c.TeamsWebhookURL); err != nil {
		return err
	}

	switch c.NotifyPolicy {
	case PolicyExact, PolicyWindow:
	default:
		return fmt.Errorf("invalid NOTIFY_POLICY %q (must be %q or %q)", c.NotifyPolicy, PolicyExact, PolicyWindow)
	}

	switch c.EmailMode {
	case EmailDigest, EmailMilestone, EmailBoth:
	default:
		return fmt.Errorf("invalid EMAIL_MODE %q (must be %q, %q or %q)", c.EmailMode, EmailDigest, EmailMilestone, EmailBoth)
	}

	if len(c.Milestones) == 0 {
		return fmt.Errorf("NOTIFY_MILESTONES must contain at least one day count")
	}

	if c.ClientSecretExpiry != "" {
		if _, err := time.Parse("2006-01-02", c.ClientSecretExpiry); err != nil {
			return fmt.Errorf("invalid CLIENT_ID_EXPIRY_DATE (expected YYYY-MM-DD): %w", err)
		}
	}

	// Workbook settings are all-or-nothing.
	set := 0
	for _, v := range []string{c.SharePointSiteID, c.SharePointDriveID, c.ExcelFileID} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("workbook sink requires all of SHAREPOINT_SITE_ID, SHAREPOINT_DRIVE_ID and EXCEL_FILE_ID")
	}

	return nil
}

// EmailEnabled reports whether the SMTP sink is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.ToEmail != ""
}

// DigestEmailEnabled reports whether the per-run report email should be sent.
func (c *Config) DigestEmailEnabled() bool {
	return c.EmailEnabled() && c.EmailMode != EmailMilestone
}

// MilestoneEmailEnabled reports whether per-credential alert emails should be sent.
func (c *Config) MilestoneEmailEnabled() bool {
	return c.EmailEnabled() && c.EmailMode != EmailDigest
}

// WebhookEnabled reports whether the Teams webhook sink is configured.
func (c *Config) WebhookEnabled() bool {
	return c.TeamsWebhookURL != ""
}

// WorkbookEnabled reports whether the SharePoint workbook sink is configured.
func (c *Config) WorkbookEnabled() bool {
	return c.SharePointSiteID != "" && c.SharePointDriveID != "" && c.ExcelFileID != ""
}

// WatchAccountsEnabled reports whether monitored user accounts are configured.
func (c *Config) WatchAccountsEnabled() bool {
	return len(c.WatchedAccounts) > 0
}

// MaxMilestone returns the largest configured milestone day count.
func (c *Config) MaxMilestone() int {
	max := 0
	for _, m := range c.Milestones {
		if m > max {
			max = m
		}
	}
	return max
}

func parseMilestones(v string) ([]int, error) {
	var milestones []int
	for _, part := range splitAndTrim(v) {
		days, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("NOTIFY_MILESTONES contains %q which is not a number", part)
		}
		if days < 0 {
			return nil, fmt.Errorf("NOTIFY_MILESTONES contains negative day count %d", days)
		}
		milestones = append(milestones, days)
	}
	return milestones, nil
}

func splitAndTrim(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

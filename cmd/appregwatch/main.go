//go:build !integration
// +build !integration

// Package main runs one pass of the credential-expiry report: it fetches
// application registrations (and optionally a watched set of user
// accounts) from Microsoft Graph, classifies every credential by days
// left to expiry, writes the JSON and HTML report files, and delivers
// the report through the configured sinks (SMTP email, Teams webhook,
// SharePoint workbook).
//
// The tool is designed to be invoked periodically by an external
// scheduler (cron, scheduled task, pipeline); it performs a single run
// and exits.
//
// Example usage:
//
//	appregwatch -envfile /etc/appregwatch/.env -verbose
//
// Version information is embedded from the VERSION file at compile time
// using go:embed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"appregwatch/internal/common/logger"
	"appregwatch/internal/common/version"
	"appregwatch/internal/config"
	"appregwatch/internal/directory"
	"appregwatch/internal/expiry"
	"appregwatch/internal/notify"
	"appregwatch/internal/report"
	"appregwatch/internal/sharepoint"
)

const (
	jsonReportName = "app_registrations.json"
	htmlReportName = "app_registrations.html"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// setupSignalHandling configures graceful shutdown on interrupt signals.
// Returns a cancellable context for use throughout the application.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

// run is the main application entry point that orchestrates one report run:
//  1. Sets up graceful shutdown handling for interrupt signals
//  2. Loads and validates configuration from the environment
//  3. Initializes structured logging and the delivery audit log
//  4. Fetches application registrations and watched accounts from Graph
//  5. Classifies and sorts everything by days to expiry
//  6. Writes the JSON dump and the HTML report
//  7. Delivers the report through the configured sinks
//  8. Checks the tool's own client secret for imminent expiry
func run() error {
	// 1. Setup signal handling for graceful shutdown
	ctx, cancel := setupSignalHandling()
	defer cancel()

	// 2. Parse command-line flags
	showVersion := flag.Bool("version", false, "Print version and exit")
	verboseMode := flag.Bool("verbose", false, "Enable verbose (DEBUG) logging")
	logLevel := flag.String("loglevel", "", "Log level override: DEBUG, INFO, WARN, ERROR")
	envFile := flag.String("envfile", "", "Path to an env file (default: .env in the working directory, if present)")
	dryRun := flag.Bool("dry-run", false, "Fetch, classify and write report files but skip all delivery")
	flag.Parse()

	if *showVersion {
		fmt.Printf("App Registration Expiry Watcher - Version %s\n", version.Get())
		return nil
	}

	// 3. Load and validate configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.VerboseMode = cfg.VerboseMode || *verboseMode

	// 4. Setup structured logger and the delivery audit log
	slogger := logger.SetupLogger(cfg.VerboseMode, cfg.LogLevel)
	logger.LogInfo(slogger, "Application starting", "version", version.Get())

	auditLog, err := logger.NewCSVLogger(cfg.OutputDir)
	if err != nil {
		log.Printf("Warning: Could not initialize audit logging: %v", err)
		auditLog = nil // Continue without audit log
	}
	if auditLog != nil {
		defer auditLog.Close()
	}

	// 5. Setup Graph client and fetch
	client, err := directory.NewClient(ctx, cfg, slogger)
	if err != nil {
		return err
	}

	apps := client.FetchApplications(ctx)

	var accounts []directory.UserAccount
	if cfg.WatchAccountsEnabled() {
		accounts = client.FetchAccounts(ctx, cfg.WatchedAccounts)
	}

	// 6. Classify and sort
	now := time.Now().UTC()
	expiry.ClassifyApps(apps, now, func(app, raw string, err error) {
		logger.LogError(slogger, "Unparseable credential expiry", "app", app, "value", raw, "error", err)
	})
	expiry.ClassifyAccounts(accounts, now, cfg.MaxPasswordAgeDays, func(account, raw string, err error) {
		logger.LogError(slogger, "Unparseable password change date", "account", account, "value", raw, "error", err)
	})
	expiry.SortApps(apps)
	expiry.SortAccounts(accounts)

	rep := &report.Report{GeneratedAt: now, Apps: apps, Accounts: accounts}

	// 7. Write report files
	jsonPath := filepath.Join(cfg.OutputDir, jsonReportName)
	if err := report.WriteJSON(jsonPath, rep); err != nil {
		return err
	}
	logger.LogInfo(slogger, "Wrote JSON report", "path", jsonPath)

	htmlContent, err := report.RenderHTML(rep)
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(cfg.OutputDir, htmlReportName)
	if err := os.WriteFile(htmlPath, []byte(htmlContent), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}
	logger.LogInfo(slogger, "Wrote HTML report", "path", htmlPath)

	if *dryRun {
		logger.LogInfo(slogger, "Dry run: skipping delivery and self-check")
		return nil
	}

	// 8. Deliver through the configured sinks
	var emailSink *notify.EmailSink
	if cfg.EmailEnabled() {
		emailSink = notify.NewEmailSink(cfg, slogger)
	}
	var webhookSink *notify.WebhookSink
	if cfg.WebhookEnabled() {
		webhookSink = notify.NewWebhookSink(cfg.TeamsWebhookURL, slogger)
	}
	var workbook *sharepoint.Client
	if cfg.WorkbookEnabled() {
		workbook = sharepoint.NewClient(client.Credential(), cfg.SharePointSiteID, cfg.SharePointDriveID, cfg.ExcelFileID, slogger)
	}

	notifier := notify.New(cfg, emailSink, webhookSink, workbook, auditLog, slogger)
	notifier.Run(ctx, rep, htmlContent)

	// 9. Self-check: warn the admin when our own secret is about to expire
	if err := notify.CheckClientSecretExpiry(cfg, emailSink, now, slogger); err != nil {
		logger.LogError(slogger, "Client secret self-check failed", "error", err)
	}

	logger.LogInfo(slogger, "Run complete")
	return nil
}

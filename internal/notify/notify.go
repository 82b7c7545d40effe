package notify

import (
	"context"
	"log/slog"

	"appregwatch/internal/common/logger"
	"appregwatch/internal/common/ratelimit"
	"appregwatch/internal/config"
	"appregwatch/internal/directory"
	"appregwatch/internal/report"
	"appregwatch/internal/sharepoint"
)

const digestSubject = "App Registration Expiry Notification"

// Notifier fans the rendered report out to the configured sinks.
// Sinks left nil are skipped.
type Notifier struct {
	cfg        *config.Config
	milestones Milestones
	email      *EmailSink
	webhook    *WebhookSink
	workbook   *sharepoint.Client
	limiter    *ratelimit.Limiter
	auditLog   *logger.CSVLogger
	logger     *slog.Logger
}

// New wires a Notifier from the configuration and the already-constructed
// sinks.
func New(cfg *config.Config, email *EmailSink, webhook *WebhookSink, workbook *sharepoint.Client, auditLog *logger.CSVLogger, log *slog.Logger) *Notifier {
	return &Notifier{
		cfg:        cfg,
		milestones: NewMilestones(cfg.Milestones, cfg.NotifyPolicy),
		email:      email,
		webhook:    webhook,
		workbook:   workbook,
		limiter:    ratelimit.New(cfg.SendRateLimit),
		auditLog:   auditLog,
		logger:     log,
	}
}

// Run delivers the report through every configured sink. Failures are
// logged and audited per sink, never returned; one broken sink must not
// silence the others.
func (n *Notifier) Run(ctx context.Context, rep *report.Report, htmlContent string) {
	if n.email != nil && n.cfg.DigestEmailEnabled() {
		n.sendDigest(rep, htmlContent)
	}
	if (n.email != nil && n.cfg.MilestoneEmailEnabled()) || n.webhook != nil {
		n.sendMilestoneAlerts(ctx, rep, htmlContent)
	}
	if n.workbook != nil {
		n.updateWorkbook(ctx, rep)
	}
}

func (n *Notifier) sendDigest(rep *report.Report, htmlContent string) {
	cc := ownerUnion(rep.Apps)
	if err := n.email.Send(digestSubject, htmlContent, cc); err != nil {
		n.logger.Error("Digest email failed", "error", err)
		n.auditRow("email", "error", n.cfg.ToEmail, err.Error())
		return
	}
	n.logger.Info("Digest email sent", "to", n.cfg.ToEmail, "cc", len(cc))
	n.auditRow("email", "ok", n.cfg.ToEmail, "digest")
}

func (n *Notifier) sendMilestoneAlerts(ctx context.Context, rep *report.Report, htmlContent string) {
	for _, app := range rep.Apps {
		for _, cred := range app.Credentials {
			if cred.DaysToExpiry == nil {
				continue
			}
			days := *cred.DaysToExpiry
			if !n.milestones.Match(days) {
				continue
			}
			if err := n.limiter.Wait(ctx); err != nil {
				n.logger.Warn("Alert delivery interrupted", "error", err)
				return
			}

			subject := digestSubject + ": " + app.DisplayName
			body := report.RenderCredentialAlert(app.DisplayName, days, cred.ExpiryDate) + htmlContent

			if n.email != nil && n.cfg.MilestoneEmailEnabled() {
				if err := n.email.Send(subject, body, app.OwnerEmails()); err != nil {
					n.logger.Error("Alert email failed", "app", app.DisplayName, "error", err)
					n.auditRow("email", "error", app.DisplayName, err.Error())
				} else {
					n.logger.Info("Alert email sent", "app", app.DisplayName, "days", days)
					n.auditRow("email", "ok", app.DisplayName, cred.Label())
				}
			}

			if n.webhook != nil {
				if err := n.webhook.Post(ctx, subject, body); err != nil {
					n.logger.Error("Webhook card failed", "app", app.DisplayName, "error", err)
					n.auditRow("webhook", "error", app.DisplayName, err.Error())
				} else {
					n.logger.Info("Webhook card sent", "app", app.DisplayName, "days", days)
					n.auditRow("webhook", "ok", app.DisplayName, cred.Label())
				}
			}
		}
	}
}

func (n *Notifier) updateWorkbook(ctx context.Context, rep *report.Report) {
	rows := sharepoint.ProjectRows(rep.Apps)
	if err := n.workbook.OverwriteRows(ctx, rows); err != nil {
		n.logger.Error("Workbook update failed", "error", err)
		n.auditRow("workbook", "error", n.cfg.ExcelFileID, err.Error())
		return
	}
	n.auditRow("workbook", "ok", n.cfg.ExcelFileID, "")
}

func (n *Notifier) auditRow(stage, status, target, detail string) {
	if n.auditLog == nil {
		return
	}
	if err := n.auditLog.WriteRow([]string{stage, status, target, detail}); err != nil {
		n.logger.Warn("Audit log write failed", "error", err)
	}
}

// ownerUnion collects the display emails of every owner across all
// registrations, deduplicated, in first-seen order.
func ownerUnion(apps []directory.AppRegistration) []string {
	seen := make(map[string]bool)
	var emails []string
	for _, app := range apps {
		for _, email := range app.OwnerEmails() {
			if seen[email] {
				continue
			}
			seen[email] = true
			emails = append(emails, email)
		}
	}
	return emails
}

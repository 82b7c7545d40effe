package notify

import (
	"fmt"
	"log/slog"
	"time"

	"appregwatch/internal/config"
	"appregwatch/internal/expiry"
)

const selfCheckThresholdDays = 30

// CheckClientSecretExpiry warns the administrator by email when the
// tool's own client secret, whose expiry date is pinned in the
// configuration, has 30 days or less left. An empty configured date
// disables the check.
func CheckClientSecretExpiry(cfg *config.Config, email *EmailSink, now time.Time, log *slog.Logger) error {
	if cfg.ClientSecretExpiry == "" {
		return nil
	}

	expiryDate, err := time.Parse("2006-01-02", cfg.ClientSecretExpiry)
	if err != nil {
		return fmt.Errorf("parsing CLIENT_ID_EXPIRY_DATE: %w", err)
	}

	days := expiry.DaysUntil(expiryDate, now)
	if days > selfCheckThresholdDays {
		log.Debug("Client secret self-check passed", "days", days)
		return nil
	}

	log.Warn("Own client secret close to expiry", "days", days, "expires", cfg.ClientSecretExpiry)
	if email == nil || cfg.AdminEmail == "" {
		return nil
	}

	subject := "Warning: Azure Client ID Expiry Notification"
	body := fmt.Sprintf(`
        <html>
        <body>
            <p>The Azure Client ID <strong>%s</strong> is set to expire in
            <span style="color: red; font-weight: bold;">%d days</span>
            on <strong>%s</strong>.</p>
            <p>Please take the necessary actions to renew the client ID before it expires.</p>
        </body>
        </html>
        `, cfg.ClientID, days, expiryDate.Format("2006-01-02"))

	if err := email.SendTo(cfg.AdminEmail, subject, body); err != nil {
		return fmt.Errorf("sending client secret warning: %w", err)
	}
	log.Info("Client secret expiry warning sent", "to", cfg.AdminEmail, "days", days)
	return nil
}

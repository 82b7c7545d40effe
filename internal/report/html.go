package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"appregwatch/internal/directory"
	"appregwatch/internal/expiry"
)

// noOwners is the placeholder rendered when a registration has no owner
// principals.
const noOwners = "No owners"

// row is the view model for one table row; all defensive field handling
// happens before the template runs.
type row struct {
	Name   string
	Secret string
	Expiry string
	Days   string
	Owners string
	Class  string
}

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<head>
    <title>App Registrations</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 20px;
            color: #333;
        }
        .intro {
            margin-bottom: 20px;
            line-height: 1.5;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        th, td {
            border: 1px solid black;
            padding: 8px;
            text-align: left;
        }
        th {
            background-color: #f2f2f2;
        }
        .green {
            background-color: #d4edda;
        }
        .yellow {
            background-color: #fff3cd;
        }
        .orange {
            background-color: #ffeeba;
        }
        .red {
            background-color: #f8d7da;
        }
        .blue {
            background-color: #d1ecf1;
        }
    </style>
</head>
<body>
    <div class="intro">
        <h2>Azure App Registration Expiry Notification</h2>
        <p>This is an automated notification regarding expiring Azure App Registrations that you own or manage.</p>

        <p><strong>Why am I receiving this?</strong><br>
        You are receiving this email because you are listed as an owner of one or more Azure App Registrations that are approaching their expiration date or have already expired.</p>

        <p><strong>Required Actions:</strong></p>
        <ul>
            <li>Review the list of app registrations below</li>
            <li>For any expiring or expired registrations:
                <ul>
                    <li>Verify if the app registration is still needed</li>
                    <li>If needed, renew the credentials before they expire</li>
                    <li>If not needed, consider removing the app registration</li>
                </ul>
            </li>
        </ul>

        <p><strong>Color Coding:</strong></p>
        <ul>
            <li style="background-color: #d4edda; padding: 3px;">Green: More than 30 days until expiry</li>
            <li style="background-color: #fff3cd; padding: 3px;">Yellow: Between 8-30 days until expiry</li>
            <li style="background-color: #ffeeba; padding: 3px;">Orange: 7 days or less until expiry</li>
            <li style="background-color: #f8d7da; padding: 3px;">Red: Expired</li>
            <li style="background-color: #d1ecf1; padding: 3px;">Blue: No expiry configured</li>
        </ul>

        <p>If you need assistance, please contact the IT Support team.</p>
    </div>

    <h1>App Registrations</h1>
    <p>Exported on: {{.GeneratedAt}}</p>
    <table>
        <tr>
            <th>Display Name</th>
            <th>Secret Name</th>
            <th>Expiry Date</th>
            <th>Days to Expiry</th>
            <th>Owners</th>
        </tr>
{{- range .AppRows}}
        <tr class="{{.Class}}">
            <td>{{.Name}}</td>
            <td>{{.Secret}}</td>
            <td>{{.Expiry}}</td>
            <td>{{.Days}}</td>
            <td>{{.Owners}}</td>
        </tr>
{{- end}}
    </table>
{{- if .AccountRows}}

    <h1>Monitored Accounts</h1>
    <table>
        <tr>
            <th>Display Name</th>
            <th>Principal Name</th>
            <th>Password Expiry</th>
            <th>Days to Expiry</th>
        </tr>
{{- range .AccountRows}}
        <tr class="{{.Class}}">
            <td>{{.Name}}</td>
            <td>{{.Owners}}</td>
            <td>{{.Expiry}}</td>
            <td>{{.Days}}</td>
        </tr>
{{- end}}
    </table>
{{- end}}
</body>
</html>
`))

// RenderHTML produces the styled report: fixed preamble, the registrations
// table with one row per classified credential, and the monitored-accounts
// table when accounts are present. Registrations without any credential are
// omitted from the table (they remain in the JSON dump). Missing optional
// fields degrade to placeholder text; rendering never fails on absent data.
func RenderHTML(r *Report) (string, error) {
	data := struct {
		GeneratedAt string
		AppRows     []row
		AccountRows []row
	}{
		GeneratedAt: r.GeneratedAt.UTC().Format("2006-01-02 15:04:05"),
	}

	for _, app := range r.Apps {
		owners := noOwners
		if emails := app.OwnerEmails(); len(emails) > 0 {
			owners = strings.Join(emails, ", ")
		}
		for _, cred := range app.Credentials {
			data.AppRows = append(data.AppRows, credentialRow(app.DisplayName, owners, cred))
		}
	}

	for _, account := range r.Accounts {
		data.AccountRows = append(data.AccountRows, accountRow(account))
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

func credentialRow(appName, owners string, cred directory.Credential) row {
	return row{
		Name:   appName,
		Secret: cred.Label(),
		Expiry: formatExpiryDate(cred.ExpiryDate),
		Days:   formatDays(cred.DaysToExpiry, cred.Bucket),
		Owners: owners,
		Class:  rowClass(cred.Bucket),
	}
}

func accountRow(account directory.UserAccount) row {
	return row{
		Name:   account.DisplayName,
		Owners: account.DisplayEmail(),
		Expiry: formatExpiryDate(account.ExpiryDate),
		Days:   formatDays(account.DaysToExpiry, account.Bucket),
		Class:  rowClass(account.Bucket),
	}
}

// formatDays renders the days-to-expiry cell. Expired and unparseable
// records show the literal EXPIRED; records without an expiry show N/A.
func formatDays(days *int, bucket string) string {
	if days == nil {
		if bucket == expiry.BucketRed {
			return "EXPIRED"
		}
		return "N/A"
	}
	if *days <= 0 {
		return "EXPIRED"
	}
	return fmt.Sprintf("%d", *days)
}

// formatExpiryDate shortens an RFC 3339 expiry to its date part.
func formatExpiryDate(expiryDate string) string {
	if expiryDate == "" {
		return "N/A"
	}
	if len(expiryDate) >= 10 {
		return expiryDate[:10]
	}
	return expiryDate
}

func rowClass(bucket string) string {
	switch bucket {
	case expiry.BucketGreen, expiry.BucketYellow, expiry.BucketOrange, expiry.BucketRed, expiry.BucketBlue:
		return bucket
	default:
		return expiry.BucketBlue
	}
}

// RenderCredentialAlert produces the headline snippet for per-credential
// notifications, colored by urgency.
func RenderCredentialAlert(appName string, days int, expiryDate string) string {
	var color string
	display := fmt.Sprintf("%d", days)
	switch {
	case days > 30:
		color = "#28a745" // green
	case days > 7:
		color = "#ffc107" // yellow
	case days > 0:
		color = "#ff9800" // orange
	default:
		color = "#dc3545" // red
		display = "EXPIRED"
	}

	return fmt.Sprintf(`
    <div style="font-size: 26px; margin-bottom: 20px;">
        <p>The app registration <strong>%s</strong> is set to expire in
        <span style="color: %s; font-weight: bold; font-size: 28px;">
            %s
        </span>
        days on <strong>%s</strong></p>
    </div>
    `, template.HTMLEscapeString(appName), color, display, formatExpiryDate(expiryDate))
}

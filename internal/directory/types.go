// Package directory fetches application registrations and monitored user
// accounts from Microsoft Entra ID and defines the records the rest of the
// pipeline operates on.
package directory

import "strings"

// guestMarker is the infix Entra ID inserts into guest-account UPNs,
// e.g. jdoe_example.com#EXT#@tenant.onmicrosoft.com
const guestMarker = "#EXT#"

// Owner is a directory principal associated with an application
// registration, used as a notification-routing target.
type Owner struct {
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	Mail              string `json:"mail,omitempty"`
}

// DisplayEmail returns the best-effort address for an owner: the mail
// attribute when present, otherwise the UPN with guest-account mangling
// undone. If demangling fails the raw UPN is returned unchanged.
func (o Owner) DisplayEmail() string {
	if o.Mail != "" {
		return o.Mail
	}
	return DemangleGuestUPN(o.UserPrincipalName)
}

// DemangleGuestUPN converts a guest-account principal name of the form
// local_domain.com#EXT#@tenant... back to local@domain.com. Non-guest UPNs
// and UPNs that cannot be demangled are returned as-is.
func DemangleGuestUPN(upn string) string {
	idx := strings.Index(upn, guestMarker)
	if idx < 0 {
		return upn
	}
	local := upn[:idx]
	// The original @ was replaced with the last underscore.
	sep := strings.LastIndex(local, "_")
	if sep <= 0 || sep == len(local)-1 {
		return upn
	}
	return local[:sep] + "@" + local[sep+1:]
}

// Credential is a time-bounded client secret attached to an application
// registration. EndDateTime carries the raw directory timestamp; the
// derived fields are filled by the classifier.
type Credential struct {
	KeyID       string `json:"keyId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	EndDateTime string `json:"endDateTime,omitempty"`

	// Derived by the classifier, absent in the source record.
	DaysToExpiry *int   `json:"days_to_expiry"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
}

// Label derives a human-readable name for the credential.
func (c Credential) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.KeyID != "" {
		short := c.KeyID
		if len(short) > 8 {
			short = short[:8]
		}
		return "secret " + short
	}
	return "client secret"
}

// AppRegistration is a registered client application with zero or more
// secret credentials and zero or more owners. Records are rebuilt from the
// directory on every run and never persisted locally.
type AppRegistration struct {
	ID          string       `json:"id,omitempty"`
	AppID       string       `json:"appId,omitempty"`
	DisplayName string       `json:"displayName"`
	Credentials []Credential `json:"passwordCredentials"`
	Owners      []Owner      `json:"owners,omitempty"`

	// Derived by the classifier from the most urgent credential.
	DaysToExpiry *int   `json:"days_to_expiry"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
}

// OwnerEmails returns the display emails of all owners, in order.
func (a AppRegistration) OwnerEmails() []string {
	var emails []string
	for _, o := range a.Owners {
		if e := o.DisplayEmail(); e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

// UserAccount is a monitored directory account with password-expiry
// metadata. LastPasswordChange carries the raw directory timestamp.
type UserAccount struct {
	ID                 string `json:"id,omitempty"`
	DisplayName        string `json:"displayName"`
	UserPrincipalName  string `json:"userPrincipalName"`
	Mail               string `json:"mail,omitempty"`
	PasswordPolicies   string `json:"passwordPolicies,omitempty"`
	LastPasswordChange string `json:"lastPasswordChangeDateTime,omitempty"`

	// Derived by the classifier.
	DaysToExpiry *int   `json:"days_to_expiry"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
}

// DisplayEmail returns the account's best display address: the mail
// attribute when present, otherwise the principal name with guest-account
// mangling undone.
func (u UserAccount) DisplayEmail() string {
	if u.Mail != "" {
		return u.Mail
	}
	return DemangleGuestUPN(u.UserPrincipalName)
}

// PasswordExpirationDisabled reports whether the account's password policy
// flags disable expiration entirely.
func (u UserAccount) PasswordExpirationDisabled() bool {
	for _, policy := range strings.Split(u.PasswordPolicies, ",") {
		if strings.EqualFold(strings.TrimSpace(policy), "DisablePasswordExpiration") {
			return true
		}
	}
	return false
}

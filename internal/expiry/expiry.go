// Package expiry classifies credential and password expiry timestamps into
// severity buckets and orders records by urgency.
//
// The directory serializes timestamps inconsistently: zero to seven
// fractional-second digits, and occasionally a doubled UTC marker ("ZZ")
// from upstream malformation. Normalization reduces every variant to a
// canonical six-digit form before parsing.
package expiry

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"appregwatch/internal/directory"
)

// Severity buckets, from least to most urgent. Blue is the out-of-band
// bucket for records without an expiry (no credential, or password
// expiration disabled by policy).
const (
	BucketGreen  = "green"  // more than 30 days until expiry
	BucketYellow = "yellow" // 8-30 days
	BucketOrange = "orange" // 1-7 days
	BucketRed    = "red"    // expired, expiring today, or unparseable
	BucketBlue   = "blue"   // no expiry
)

// Timestamp layouts tried in order: fractional first, whole-second fallback.
const (
	fracLayout  = "2006-01-02T15:04:05.000000Z"
	wholeLayout = "2006-01-02T15:04:05Z"
)

// State of a parsed expiry timestamp.
type State int

const (
	StateOK State = iota
	StateNone
	StateParseError
)

// ParsedExpiry is the typed result of parsing a raw expiry string, replacing
// exception-style control flow at each call site.
type ParsedExpiry struct {
	State State
	Time  time.Time // valid only when State == StateOK
	Raw   string
	Err   error // set only when State == StateParseError
}

// NormalizeTimestamp reduces a directory timestamp to canonical form:
// a doubled trailing Z loses one character, fractional seconds are
// truncated to six digits, and whole-second inputs are padded to .000000.
func NormalizeTimestamp(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "ZZ") {
		s = s[:len(s)-1]
	}
	s = strings.TrimSuffix(s, "Z")

	if dot := strings.Index(s, "."); dot >= 0 {
		frac := s[dot+1:]
		if len(frac) > 6 {
			frac = frac[:6]
		}
		for len(frac) < 6 {
			frac += "0"
		}
		s = s[:dot+1] + frac
	} else {
		s += ".000000"
	}

	return s + "Z"
}

// ParseTimestamp parses a raw directory expiry string. An empty string is
// StateNone; a string neither layout accepts is StateParseError.
func ParseTimestamp(raw string) ParsedExpiry {
	if strings.TrimSpace(raw) == "" {
		return ParsedExpiry{State: StateNone, Raw: raw}
	}

	normalized := NormalizeTimestamp(raw)
	if t, err := time.Parse(fracLayout, normalized); err == nil {
		return ParsedExpiry{State: StateOK, Time: t.UTC(), Raw: raw}
	}

	cleaned := strings.TrimSpace(raw)
	if strings.HasSuffix(cleaned, "ZZ") {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if t, err := time.Parse(wholeLayout, cleaned); err == nil {
		return ParsedExpiry{State: StateOK, Time: t.UTC(), Raw: raw}
	}

	return ParsedExpiry{
		State: StateParseError,
		Raw:   raw,
		Err:   fmt.Errorf("unrecognized expiry timestamp %q", raw),
	}
}

// DaysUntil computes the signed whole-day difference between expiry and
// now, flooring so an expiry one hour in the past counts as -1.
func DaysUntil(expiry, now time.Time) int {
	return int(math.Floor(expiry.Sub(now).Hours() / 24))
}

// BucketFor maps days-to-expiry onto a severity bucket.
func BucketFor(days int) string {
	switch {
	case days > 30:
		return BucketGreen
	case days > 7:
		return BucketYellow
	case days >= 1:
		return BucketOrange
	default:
		return BucketRed
	}
}

// ClassifyApps fills the derived expiry fields of every credential and
// registration. Each credential ends up with exactly one bucket:
//
//   - parseable expiry: bucket from days-to-expiry
//   - unparseable expiry: red, surfaced as expired (and the parse failure
//     is reported through onParseError)
//   - no credentials at all: the registration is blue with nil days
//
// The registration-level derived fields mirror its most urgent credential.
func ClassifyApps(apps []directory.AppRegistration, now time.Time, onParseError func(app, raw string, err error)) {
	for i := range apps {
		app := &apps[i]

		for j := range app.Credentials {
			cred := &app.Credentials[j]
			classifyCredential(cred, now, func(raw string, err error) {
				if onParseError != nil {
					onParseError(app.DisplayName, raw, err)
				}
			})
		}

		app.DaysToExpiry = nil
		app.ExpiryDate = ""
		app.Bucket = BucketBlue
		for _, cred := range app.Credentials {
			if cred.DaysToExpiry == nil {
				continue
			}
			if app.DaysToExpiry == nil || *cred.DaysToExpiry < *app.DaysToExpiry {
				days := *cred.DaysToExpiry
				app.DaysToExpiry = &days
				app.ExpiryDate = cred.ExpiryDate
				app.Bucket = cred.Bucket
			}
		}
		if app.DaysToExpiry == nil {
			// A registration whose only credentials failed to parse still
			// surfaces as red rather than no-expiry.
			for _, cred := range app.Credentials {
				if cred.Bucket == BucketRed {
					app.Bucket = BucketRed
					break
				}
			}
		}
	}
}

func classifyCredential(cred *directory.Credential, now time.Time, onParseError func(raw string, err error)) {
	parsed := ParseTimestamp(cred.EndDateTime)
	switch parsed.State {
	case StateOK:
		days := DaysUntil(parsed.Time, now)
		cred.DaysToExpiry = &days
		cred.ExpiryDate = parsed.Time.Format(time.RFC3339)
		cred.Bucket = BucketFor(days)
	case StateNone:
		cred.DaysToExpiry = nil
		cred.ExpiryDate = ""
		cred.Bucket = BucketBlue
	case StateParseError:
		// Surface as expired rather than silently dropping the record.
		cred.DaysToExpiry = nil
		cred.ExpiryDate = ""
		cred.Bucket = BucketRed
		onParseError(parsed.Raw, parsed.Err)
	}
}

// ClassifyAccounts fills the derived expiry fields of monitored accounts.
// The password expiry instant is the last password change plus the tenant's
// maximum password age. Accounts whose policy disables expiration, or with
// no recorded password change, are blue.
func ClassifyAccounts(accounts []directory.UserAccount, now time.Time, maxAgeDays int, onParseError func(account, raw string, err error)) {
	for i := range accounts {
		account := &accounts[i]

		account.DaysToExpiry = nil
		account.ExpiryDate = ""
		account.Bucket = BucketBlue

		if account.PasswordExpirationDisabled() {
			continue
		}

		parsed := ParseTimestamp(account.LastPasswordChange)
		switch parsed.State {
		case StateOK:
			expiresAt := parsed.Time.Add(time.Duration(maxAgeDays) * 24 * time.Hour)
			days := DaysUntil(expiresAt, now)
			account.DaysToExpiry = &days
			account.ExpiryDate = expiresAt.Format(time.RFC3339)
			account.Bucket = BucketFor(days)
		case StateNone:
			// No password change on record, nothing to age out.
		case StateParseError:
			account.Bucket = BucketRed
			if onParseError != nil {
				onParseError(account.UserPrincipalName, parsed.Raw, parsed.Err)
			}
		}
	}
}

// SortApps stably orders registrations soonest-expiring first. A
// registration's key is its minimum credential days-to-expiry; records
// without any expiry sort after all records that have one.
func SortApps(apps []directory.AppRegistration) {
	sort.SliceStable(apps, func(i, j int) bool {
		return lessByDays(apps[i].DaysToExpiry, apps[j].DaysToExpiry)
	})
}

// SortAccounts stably orders monitored accounts soonest-expiring first,
// no-expiry accounts last.
func SortAccounts(accounts []directory.UserAccount) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return lessByDays(accounts[i].DaysToExpiry, accounts[j].DaysToExpiry)
	})
}

func lessByDays(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

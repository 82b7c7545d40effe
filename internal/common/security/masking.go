// Package security provides helpers for masking sensitive configuration
// values before they reach logs or audit output.
package security

import "strings"

// MaskGUID masks a tenant or client identifier, showing only the first
// and last 4 characters.
func MaskGUID(guid string) string {
	if len(guid) <= 8 {
		return "****"
	}
	return guid[:4] + "****-****-****-****" + guid[len(guid)-4:]
}

// MaskSecret masks a client secret or SMTP password. Shows first 2 and
// last 2 characters with **** in between; short secrets are fully
// masked, empty secrets stay empty.
func MaskSecret(secret string) string {
	if len(secret) == 0 {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}

// MaskEmail masks the local part of an email address, keeping the
// domain readable. Addresses without an @ are treated as opaque secrets.
func MaskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return MaskSecret(addr)
	}
	local := addr[:at]
	if len(local) <= 2 {
		return "**" + addr[at:]
	}
	return local[:2] + "****" + addr[at:]
}

// MaskAccessToken masks a bearer token for logging. Long tokens show
// first 8 and last 4 characters; shorter ones show half on each side.
func MaskAccessToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 16 {
		return token[:len(token)/2] + "..." + token[len(token)/2:]
	}
	return token[:8] + "..." + token[len(token)-4:]
}

// Package identity bridges usernames to the external auth system, which
// only knows email identities, and issues the bearer tokens the HTTP API
// accepts.
package identity

import (
	"errors"
	"strings"
)

// DefaultDomain is the synthetic email domain used when none is configured.
const DefaultDomain = "kinesis.local"

// ErrForeignEmail is returned when an email is not on the synthetic domain.
var ErrForeignEmail = errors.New("email is not a synthetic identity")

// SyntheticEmail maps a username to the identity the external auth system
// stores: "{username}@{domain}", lowercased.
func SyntheticEmail(username, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return strings.ToLower(strings.TrimSpace(username)) + "@" + strings.ToLower(domain)
}

// UsernameFromEmail is the inverse of SyntheticEmail.
func UsernameFromEmail(email, domain string) (string, error) {
	if domain == "" {
		domain = DefaultDomain
	}
	email = strings.ToLower(strings.TrimSpace(email))
	local, host, ok := strings.Cut(email, "@")
	if !ok || local == "" || host != strings.ToLower(domain) {
		return "", ErrForeignEmail
	}
	return local, nil
}

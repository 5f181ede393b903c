package common

import (
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

// AMQPSettings represents the settings that we require in order to connect to the AMQP exchange.
type AMQPSettings struct {
	URI          string
	ExchangeName string
	ExchangeType string
}

// NormalizeRole prepares a single role string for comparison: leading and
// trailing whitespace is removed and the remainder is lowercased.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// NormalizeRoles normalizes every role in the list, dropping empty strings and
// duplicates while preserving the order of first appearance.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		role = NormalizeRole(role)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		normalized = append(normalized, role)
	}
	return normalized
}

// ValidateEmailAddress returns an error if the format of an email address is invalid.
func ValidateEmailAddress(emailAddress string) error {
	_, err := emailaddress.Parse(emailAddress)
	return err
}

// NormalizeEmailAddress prepares an email address for the owner-match comparison
// used by the update and delete endpoints.
func NormalizeEmailAddress(emailAddress string) string {
	return strings.ToLower(strings.TrimSpace(emailAddress))
}

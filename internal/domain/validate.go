package domain

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateNewUser reports the first problem with u, or "" when it is acceptable.
func ValidateNewUser(u NewUser) string {
	if strings.TrimSpace(u.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(u.Email) == "" {
		return "email is required"
	}
	if !emailRe.MatchString(u.Email) {
		return "email is invalid"
	}
	return ""
}

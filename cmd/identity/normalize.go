package identity

import "strings"

// NormalizeUsername is the case-insensitive key usernames are unique under.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

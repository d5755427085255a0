package core

import (
	"regexp"
	"strings"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify derives a URL-safe slug from a display name: lowercase, every run of
// characters outside [a-z0-9] collapsed to one hyphen, hyphens trimmed from
// both ends. "Acme Collective" becomes "acme-collective".
func Slugify(name string) string {
	s := slugSeparator.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// IsValidSlug reports whether s is already in slug form.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

package utils

import (
	"strings"
)

// MaxSlugLength caps generated slugs to keep URLs and index keys short
const MaxSlugLength = 80

// Slugify converts arbitrary text into a URL-safe slug: ASCII letters and
// digits are kept lowercased, every other run of characters collapses
// into a single hyphen
// Example: "Senior Go Engineer (Remote)" -> "senior-go-engineer-remote"
func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	lastHyphen := false
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		default:
			// Collapse separator runs into one hyphen, never leading
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

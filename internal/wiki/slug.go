package wiki

import "strings"

// Slugify derives a URL-safe page slug from a title: lowercase, alphanumeric
// runs joined by single dashes, everything else dropped.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

package content

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugAllowed = regexp.MustCompile(`^[a-z0-9\-]+$`)
	dashRuns    = regexp.MustCompile(`-+`)
)

// NormalizeSlug turns raw input into a canonical post slug.
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if strings.ContainsAny(trimmed, "/\\?&:#'\"") || strings.Contains(trimmed, "..") {
		return "", errors.New("slug contains invalid path characters")
	}

	trimmed = stripDiacritics(trimmed)
	trimmed = strings.ReplaceAll(trimmed, "%20", "-")
	trimmed = normalizeUnicode(trimmed)

	// collapse consecutive dashes
	trimmed = dashRuns.ReplaceAllString(trimmed, "-")
	trimmed = strings.Trim(trimmed, "-")

	if trimmed == "" {
		return "", errors.New("empty slug")
	}
	if !slugAllowed.MatchString(trimmed) {
		return "", errors.New("slug contains invalid characters")
	}
	return trimmed, nil
}

func normalizeUnicode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_' || unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			// skip everything else
		}
	}
	return b.String()
}

// SlugTitle converts a slug into a human-friendly title.
func SlugTitle(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return stripped
}

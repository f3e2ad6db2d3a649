// Package match pairs product titles with cover images by normalized-name containment.
package match

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	jpegSuffix = regexp.MustCompile(`\.jpe?g$`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]`)
)

// Normalize lowercases name, drops a trailing .jpg/.jpeg, turns every character outside
// [a-z0-9] into a space and collapses runs of whitespace.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = jpegSuffix.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Matches reports whether the normalized form of one name contains the other.
// An empty normalized name never matches.
func Matches(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// FirstMatch returns the first image, in the given order, whose stem matches title.
// It is not a best-match search.
func FirstMatch(title string, images []string) (string, bool) {
	if Normalize(title) == "" {
		return "", false
	}
	for _, img := range images {
		base := filepath.Base(img)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if Matches(title, stem) {
			return img, true
		}
	}
	return "", false
}

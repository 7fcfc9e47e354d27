// Package ident generates the public identifiers and URL slugs used to address
// posts and comments.
package ident

import (
	"regexp"
	"strings"

	"github.com/lucsky/cuid"
)

const maxSlugLength = 80

var (
	nonSlugChars  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	repeatedUnder = regexp.MustCompile(`_+`)
)

// New returns a short collision-resistant identifier.
func New() string {
	return cuid.Slug()
}

// Slugify lowercases title and joins its words with underscores.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlugChars.ReplaceAllString(s, "_")
	s = repeatedUnder.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len([]rune(s)) > maxSlugLength {
		s = strings.TrimRight(string([]rune(s)[:maxSlugLength]), "_")
	}
	if s == "" {
		return "post"
	}
	return s
}

// Package validation holds the input rules shared by the services and the
// HTTP request decoders.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

var reservedSubNames = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"all":      {},
	"popular":  {},
	"sub":      {},
	"subs":     {},
	"posts":    {},
	"comments": {},
	"votes":    {},
	"ws":       {},
	"swagger":  {},
	"metrics":  {},
	"login":    {},
	"register": {},
}

// ValidateSubName checks a community name for format and reserved words.
// Reserved names are matched case-insensitively.
func ValidateSubName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !subNameRegex.MatchString(name) {
		return fmt.Errorf("name must be 3-21 characters and contain only letters, numbers, and underscores")
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return fmt.Errorf("name cannot start or end with an underscore")
	}
	if _, reserved := reservedSubNames[strings.ToLower(name)]; reserved {
		return fmt.Errorf("name is reserved")
	}
	return nil
}

// ValidateSubTitle requires a non-blank title of at most 100 characters.
func ValidateSubTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}
	if len([]rune(title)) > 100 {
		return fmt.Errorf("title must not exceed 100 characters")
	}
	return nil
}

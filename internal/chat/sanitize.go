package chat

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from user-supplied text.
type Sanitizer interface {
	Sanitize(raw string) string
}

// HTMLSanitizer trims input and removes every HTML element from it.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer returns a sanitizer using bluemonday's strict policy.
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns raw with surrounding whitespace and markup removed.
func (s *HTMLSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(raw)))
}

// Package htmlsanitize strips markup from user-authored text before it is
// stored. Claim messages, admin notes, and review comments are plain text;
// any HTML a visitor types is removed, not escaped.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// PlainText removes all tags and trims surrounding whitespace. Entities that
// bluemonday escapes on output are unescaped again, so "Tom & Jerry's" is
// stored as typed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := strictPolicy().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(out))
}

// OptionalPlainText is PlainText for optional fields: nil or blank input
// yields nil.
func OptionalPlainText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := PlainText(*s)
	if clean == "" {
		return nil
	}
	return &clean
}

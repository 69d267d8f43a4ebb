// Package normalize canonicalises user-entered strings before they are stored
// or compared.
package normalize

import "strings"

// Email lowercases and trims an address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name trims a display name and preserves case.
func Name(s string) string { return strings.TrimSpace(s) }

// Status lowercases and trims a record status.
func Status(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Role lowercases and trims a role.
func Role(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ID lowercases and trims a hex object id so equal ids compare equal.
func ID(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// QueryParam trims a raw query-string value.
func QueryParam(s string) string { return strings.TrimSpace(s) }

// StatusFilter normalises a ?status= filter. "all" and blank mean no filter.
func StatusFilter(s string) string {
	s = Status(s)
	if s == "all" {
		return ""
	}
	return s
}

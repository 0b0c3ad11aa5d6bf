// internal/app/system/normalize/normalize.go

// Package normalize provides input normalization for values arriving from
// forms, JSON bodies, and query strings. Normalization happens once, at the
// edge, so stores can assume clean values.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name collapses runs of whitespace to single spaces, preserving case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a free-form query or form value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value from a signup form.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClassLetter uppercases and trims the letter part of a class key ("a" → "A").
func ClassLetter(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

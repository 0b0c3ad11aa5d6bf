// internal/app/system/search/search.go

// Package search filters a materialized member list by a free-text query.
//
// Filtering is pure and deterministic: no I/O, same inputs produce the same
// output, and callers may re-run it on every keystroke against whatever
// snapshot they currently hold. Matching is a case-insensitive substring
// test over the name fields and the denormalized group label, using the
// same folding as the *_ci fields in the stores.
package search

import (
	"strings"

	"maktabhub/internal/domain/models"

	"github.com/dalemusser/waffle/pantry/text"
)

// FilterMembers returns the members whose first name, last name, or group
// label contains query as a case-insensitive substring. An empty or
// whitespace query returns the input unchanged.
func FilterMembers(members []models.Member, query string) []models.Member {
	q := text.Fold(strings.TrimSpace(query))
	if q == "" {
		return members
	}

	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if Matches(m, q) {
			out = append(out, m)
		}
	}
	return out
}

// Matches reports whether a member matches an already-folded query.
func Matches(m models.Member, foldedQuery string) bool {
	return strings.Contains(text.Fold(m.FirstName), foldedQuery) ||
		strings.Contains(text.Fold(m.LastName), foldedQuery) ||
		strings.Contains(text.Fold(m.GroupLabel), foldedQuery)
}

// Package normalize canonicalizes company names before they are compared.
package normalize

import (
	"regexp"
	"strings"
)

// parenthetical matches one innermost "(...)" group together with the
// whitespace in front of it.
var parenthetical = regexp.MustCompile(`\s*\([^()]*\)`)

// Name removes parenthesized groups, collapses whitespace runs to a single
// space and trims the result. It is total and idempotent:
// Name(Name(s)) == Name(s) for every s.
//
// Groups are removed innermost first until none remain, so nested groups such
// as "Acme (Holdings (UK)) Ltd" reduce to "Acme Ltd" instead of leaving a
// dangling half.
func Name(name string) string {
	for {
		stripped := parenthetical.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	return strings.Join(strings.Fields(name), " ")
}

// Names normalizes every element of names, preserving order.
func Names(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Name(n)
	}
	return out
}

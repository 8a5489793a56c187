// Package tags maintains the canonical tag directory. Every tag a user
// types resolves to exactly one record, keyed by an aggressively
// normalized form of the text, while the first spelling seen is kept
// for display.
package tags

import (
	"regexp"
	"strings"
)

var (
	// Matches runs of whitespace (for display cleanup).
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Matches non-word characters (stripped entirely for the key).
	nonWordRe = regexp.MustCompile(`\W`)
)

// Display cleans user input for presentation: trims and collapses
// internal whitespace, preserving case.
//
// Examples:
//
//	"  New   Tag  " → "New Tag"
//	"Fundraising"   → "Fundraising"
func Display(input string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(input), " ")
}

// Key converts user input to a canonical tag key. The key is the
// source of truth for tag identity.
//
// Normalization rules:
//  1. Lowercase
//  2. Strip every non-word character, including spaces and dashes
//
// Examples:
//
//	"Aerospace"   → "aerospace"
//	" AEROSPACE " → "aerospace"
//	"New  Tag"    → "newtag"
//	"slow-burn"   → "slowburn"
func Key(input string) string {
	return nonWordRe.ReplaceAllString(strings.ToLower(input), "")
}

// Package sanitize provides text sanitization utilities to prevent XSS attacks.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strict drops every tag; text comes back HTML-escaped.
	strict = bluemonday.StrictPolicy()
	// rich keeps user-generated-content markup: headings, lists, emphasis,
	// links, images and tables.
	rich = bluemonday.UGCPolicy()

	spaceRun    = regexp.MustCompile(`\s+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	listItem    = regexp.MustCompile(`(?i)<li[^>]*>`)
	blockBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|tr|ul|ol|table)>`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
// Text that only looks like markup ("a < b and c > d") is kept as typed.
func StripHTML(s string) string {
	result := html.UnescapeString(strict.Sanitize(s))
	// A second pass catches tags that were entity-encoded in the input.
	result = html.UnescapeString(strict.Sanitize(result))
	return strings.TrimSpace(result)
}

// Text sanitizes a string for safe text storage by stripping HTML.
// Line breaks are preserved. Use for remarks, notes and reasons.
func Text(s string) string {
	return StripHTML(s)
}

// Line sanitizes a single-line value such as a person or company name:
// HTML is stripped and every whitespace run collapses to one space.
func Line(s string) string {
	return spaceRun.ReplaceAllString(StripHTML(s), " ")
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// RichText keeps safe formatting markup and removes scripts, event handlers
// and unsafe URLs. Use for content that is rendered as HTML, such as
// itineraries.
func RichText(s string) string {
	return strings.TrimSpace(rich.Sanitize(s))
}

// HTMLToText flattens rich text for plain-text channels. Block elements
// become line breaks and list items get a "- " bullet.
func HTMLToText(s string) string {
	s = listItem.ReplaceAllString(s, "- ")
	s = blockBreaks.ReplaceAllString(s, "\n")
	s = StripHTML(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}

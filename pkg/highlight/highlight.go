// Package highlight marks occurrences of a search term inside display text.
//
// Matching is case-insensitive and literal: regex metacharacters in the term
// are quoted, so "a.k.a" or "[x]" match themselves only.
package highlight

import (
	"html"
	"regexp"
)

// MarkClass is the CSS class used by HTML.
const MarkClass = "bg-yellow-200 px-1 rounded"

func compile(term string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
}

// Spans returns the byte ranges [start, end) of every non-overlapping match
// of term in text, left to right.
func Spans(text, term string) [][2]int {
	if text == "" || term == "" {
		return nil
	}
	locs := compile(term).FindAllStringIndex(text, -1)
	spans := make([][2]int, 0, len(locs))
	for _, l := range locs {
		spans = append(spans, [2]int{l[0], l[1]})
	}
	return spans
}

// Apply wraps each match of term in text with wrap, keeping the original
// casing of the matched text. Empty text or term returns text unchanged.
func Apply(text, term string, wrap func(string) string) string {
	if text == "" || term == "" || wrap == nil {
		return text
	}
	return compile(term).ReplaceAllStringFunc(text, wrap)
}

// HTML wraps each match in a <mark> element. Unmatched text is not escaped,
// callers that render untrusted text should use HTMLEscaped.
func HTML(text, term string) string {
	return Apply(text, term, markup)
}

// HTMLEscaped escapes text for HTML and then marks matches of term. Matching
// runs on the raw text, so escaping never splits a match.
func HTMLEscaped(text, term string) string {
	spans := Spans(text, term)
	if len(spans) == 0 {
		return html.EscapeString(text)
	}
	var out []byte
	last := 0
	for _, s := range spans {
		out = append(out, html.EscapeString(text[last:s[0]])...)
		out = append(out, markup(html.EscapeString(text[s[0]:s[1]]))...)
		last = s[1]
	}
	out = append(out, html.EscapeString(text[last:])...)
	return string(out)
}

func markup(s string) string {
	return `<mark class="` + MarkClass + `">` + s + `</mark>`
}

// Package textclean normalizes raw review text before it is grouped.
package textclean

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Options toggles the optional cleaning steps.
type Options struct {
	RemoveNewLines bool // replace line breaks with a single space
	CollapseSpaces bool // replace runs of spaces with one space
}

// Func cleans a single text value. Clean is the default implementation.
type Func func(text string, opts Options) string

// Clean unescapes HTML entities, applies NFKC normalization, drops control
// characters and trims the result. Line breaks and repeated spaces are
// rewritten only when the matching option is set.
func Clean(text string, opts Options) string {
	text = html.UnescapeString(text)
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\r':
			continue
		case r == '\n':
			if !opts.RemoveNewLines {
				b.WriteRune(r)
				prevSpace = false
				continue
			}
			r = ' '
		case r == '\t' || unicode.IsSpace(r):
			r = ' '
		case unicode.IsControl(r):
			continue
		}

		if r == ' ' {
			if opts.CollapseSpaces && prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

package tree

import "regexp"

const (
	markOpen  = "<mark>"
	markClose = "</mark>"
)

// HighlightMatches wraps every match of term in title with <mark> tags.
func HighlightMatches(title, term string, mode FilterMode) string {
	return HighlightMatchesFunc(title, term, mode, func(s string) string {
		return markOpen + s + markClose
	})
}

// HighlightMatchesFunc replaces every match of term in title with wrap(match).
// In ModeSimple the term is matched literally; in ModePattern it is used as
// the pattern. A blank term or a pattern that does not compile returns title
// unchanged.
func HighlightMatchesFunc(title, term string, mode FilterMode, wrap func(string) string) string {
	if isBlank(term) || wrap == nil {
		return title
	}
	pattern := term
	if mode != ModePattern {
		pattern = regexp.QuoteMeta(term)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return title
	}
	return re.ReplaceAllStringFunc(title, func(m string) string {
		if m == "" {
			return m
		}
		return wrap(m)
	})
}

package profile

import "regexp"

var markdownSpecial = regexp.MustCompile(`([|*>])`)

// OutputFilter post-processes profile output for chat clients that render
// markdown.
type OutputFilter struct {
	// MarkdownFence wraps the text in backticks. It wins over MarkdownEscape.
	MarkdownFence bool
	// MarkdownEscape backslash-escapes |, * and >.
	MarkdownEscape bool
}

// Apply filters s.
func (f OutputFilter) Apply(s string) string {
	switch {
	case f.MarkdownFence:
		return "`" + s + "`"
	case f.MarkdownEscape:
		return markdownSpecial.ReplaceAllString(s, `\$1`)
	default:
		return s
	}
}

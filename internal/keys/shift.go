package keys

import "unicode"

// usShift maps unshifted US-layout characters to their shifted form.
var usShift = map[rune]rune{
	'`': '~', '1': '!', '2': '@', '3': '#', '4': '$', '5': '%',
	'6': '^', '7': '&', '8': '*', '9': '(', '0': ')', '-': '_',
	'=': '+', '[': '{', ']': '}', '\\': '|', ';': ':', '\'': '"',
	',': '<', '.': '>', '/': '?',
}

// Shifted returns the character typed by r with shift held on a US layout.
// Letters are upper-cased; characters without a shifted form are returned
// unchanged.
func Shifted(r rune) rune {
	if s, ok := usShift[r]; ok {
		return s
	}
	return unicode.ToUpper(r)
}

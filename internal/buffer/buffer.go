// Package buffer holds the characters typed during a capture session.
package buffer

// CharBuffer is an ordered, append-only-at-the-end sequence of characters.
// It is owned by a single capture session and not safe for concurrent use.
type CharBuffer struct {
	chars []rune
}

// New returns an empty buffer.
func New() *CharBuffer {
	return &CharBuffer{}
}

// Append adds one character at the end.
func (b *CharBuffer) Append(ch rune) {
	b.chars = append(b.chars, ch)
}

// PopLast removes the most recent character. It returns false and leaves
// the buffer untouched when there is nothing to remove.
func (b *CharBuffer) PopLast() bool {
	if len(b.chars) == 0 {
		return false
	}
	b.chars = b.chars[:len(b.chars)-1]
	return true
}

// Clear removes all content.
func (b *CharBuffer) Clear() {
	b.chars = b.chars[:0]
}

// Len returns the number of characters held.
func (b *CharBuffer) Len() int {
	return len(b.chars)
}

// String returns the characters in insertion order.
func (b *CharBuffer) String() string {
	return string(b.chars)
}

package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segment is either literal text or a reference to a capture group.
type segment struct {
	literal string
	group   int // -1 for literal segments
}

// template is a parsed replacement string bound to one pattern.
type template []segment

// parseTemplate parses repl against re. Group references use the
// backslash forms \1, \g<1> and \g<name>; a dollar sign is plain text.
// Every reference must name a group that exists in re.
func parseTemplate(repl string, re *regexp.Regexp) (template, error) {
	var (
		out template
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, segment{literal: lit.String(), group: -1})
			lit.Reset()
		}
	}
	ref := func(g int) {
		flush()
		out = append(out, segment{group: g})
	}

	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch c {
		case '\\':
			if i+1 >= len(repl) {
				return nil, fmt.Errorf("bad escape (end of replacement)")
			}
			i++
			n := repl[i]
			switch {
			case n >= '0' && n <= '9':
				j := i + 1
				if j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
					j++
				}
				g, err := resolveGroup(repl[i:j], re)
				if err != nil {
					return nil, err
				}
				ref(g)
				i = j - 1
			case n == 'g':
				if i+1 >= len(repl) || repl[i+1] != '<' {
					return nil, fmt.Errorf("missing < after \\g at position %d", i-1)
				}
				end := strings.IndexByte(repl[i+2:], '>')
				if end < 0 {
					return nil, fmt.Errorf("missing > in group reference at position %d", i-1)
				}
				g, err := resolveGroup(repl[i+2:i+2+end], re)
				if err != nil {
					return nil, err
				}
				ref(g)
				i = i + 2 + end
			default:
				esc, ok := escapes[n]
				switch {
				case ok:
					lit.WriteByte(esc)
				case isASCIILetter(n):
					return nil, fmt.Errorf("bad escape \\%c at position %d", n, i-1)
				default:
					lit.WriteByte('\\')
					lit.WriteByte(n)
				}
			}
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return out, nil
}

var escapes = map[byte]byte{
	'\\': '\\',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'f':  '\f',
	'v':  '\v',
	'a':  '\a',
	'b':  '\b',
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// resolveGroup maps a group number or name onto its index in re.
func resolveGroup(ref string, re *regexp.Regexp) (int, error) {
	if ref == "" {
		return 0, fmt.Errorf("empty group reference")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n > re.NumSubexp() {
			return 0, fmt.Errorf("invalid group reference %d", n)
		}
		return n, nil
	}
	if i := re.SubexpIndex(ref); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("unknown group name %q", ref)
}

// expand writes the template for one match; m is a submatch index slice
// as returned by FindAllStringSubmatchIndex. Unmatched groups expand to "".
func (t template) expand(b *strings.Builder, src string, m []int) {
	for _, s := range t {
		if s.group < 0 {
			b.WriteString(s.literal)
			continue
		}
		start, end := m[2*s.group], m[2*s.group+1]
		if start >= 0 {
			b.WriteString(src[start:end])
		}
	}
}

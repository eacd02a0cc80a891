package keys

import (
	"fmt"
	"strings"
)

// Combo is a hotkey: zero or more modifiers plus one main key.
type Combo struct {
	Modifiers []string
	Key       string
}

// ParseCombo parses strings such as "ctrl+space", "ctrl+shift+q" or "f12".
func ParseCombo(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("empty hotkey")
	}
	if s == "+" {
		return Combo{Key: "+"}, nil
	}

	parts := strings.Split(s, "+")
	// "ctrl++" means ctrl and the plus key
	if strings.HasSuffix(s, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}

	var c Combo
	for i, p := range parts {
		name := strings.ToLower(Normalize(p))
		if name == "" {
			return Combo{}, fmt.Errorf("hotkey %q: empty key name", s)
		}
		if i == len(parts)-1 {
			c.Key = name
			break
		}
		if !IsModifier(name) {
			return Combo{}, fmt.Errorf("hotkey %q: %q is not a modifier", s, p)
		}
		c.Modifiers = append(c.Modifiers, name)
	}
	return c, nil
}

// MustParseCombo is ParseCombo that panics on error; for constants and tests.
func MustParseCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the combo in the same form ParseCombo accepts.
func (c Combo) String() string {
	if len(c.Modifiers) == 0 {
		return c.Key
	}
	return strings.Join(c.Modifiers, "+") + "+" + c.Key
}

// IsZero reports whether c is the zero Combo.
func (c Combo) IsZero() bool {
	return c.Key == "" && len(c.Modifiers) == 0
}

// Holder reports whether a key is held down. *Pressed implements it.
type Holder interface {
	Holds(name string) bool
}

// Matches reports whether a key-down of name, with the given held keys,
// triggers the combo.
func (c Combo) Matches(name string, held Holder) bool {
	if !sameKey(c.Key, name) {
		return false
	}
	for _, m := range c.Modifiers {
		if !held.Holds(m) {
			return false
		}
	}
	return true
}

// Held reports whether every key of the combo is currently down.
func (c Combo) Held(held Holder) bool {
	if c.IsZero() || !held.Holds(c.Key) {
		return false
	}
	for _, m := range c.Modifiers {
		if !held.Holds(m) {
			return false
		}
	}
	return true
}

func sameKey(want, got string) bool {
	got = strings.ToLower(Normalize(got))
	if want == got {
		return true
	}
	if f := Family(want); f != "" && f == want {
		return Family(got) == f
	}
	return false
}

// Package keys names keyboard keys and tracks which of them are held.
//
// Key names are lower-case strings: single characters ("a", "7", "/") for
// printable keys and words ("enter", "space", "shift") for everything else.
package keys

import (
	"strings"
	"unicode/utf8"
)

// Action is the direction of a key event.
type Action uint8

const (
	Down Action = iota + 1
	Up
)

func (a Action) String() string {
	switch a {
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// Event is one raw key transition delivered by the interceptor.
type Event struct {
	Name   string
	Action Action
}

// Named keys the capture session interprets.
const (
	Space     = "space"
	Backspace = "backspace"
	Enter     = "enter"
	Esc       = "esc"
	Tab       = "tab"
)

// aliases maps synonyms onto canonical names.
var aliases = map[string]string{
	"escape":      "esc",
	"return":      "enter",
	"control":     "ctrl",
	"lcontrol":    "lctrl",
	"rcontrol":    "rctrl",
	"left ctrl":   "lctrl",
	"right ctrl":  "rctrl",
	"left shift":  "lshift",
	"right shift": "rshift",
	"left alt":    "lalt",
	"right alt":   "ralt",
	"alt gr":      "altgr",
	"option":      "alt",
	"command":     "cmd",
	"windows":     "cmd",
	"win":         "cmd",
	"super":       "cmd",
	"meta":        "cmd",
	"lcommand":    "lcmd",
	"rcommand":    "rcmd",
	"pos1":        "home",
	"del":         "delete",
	"spacebar":    "space",
	"back":        "backspace",
}

// modifierFamily maps every modifier name to its generic family name.
var modifierFamily = map[string]string{
	"shift":  "shift",
	"lshift": "shift",
	"rshift": "shift",
	"ctrl":   "ctrl",
	"lctrl":  "ctrl",
	"rctrl":  "ctrl",
	"alt":    "alt",
	"lalt":   "alt",
	"ralt":   "alt",
	"altgr":  "alt",
	"cmd":    "cmd",
	"lcmd":   "cmd",
	"rcmd":   "cmd",
}

// Normalize lower-cases a key name and resolves synonyms.
func Normalize(name string) string {
	if name == " " {
		return Space
	}
	n := strings.TrimSpace(name)
	// single characters keep their case
	if utf8.RuneCountInString(n) == 1 {
		return n
	}
	n = strings.ToLower(n)
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// IsModifier reports whether name is a modifier key.
func IsModifier(name string) bool {
	_, ok := modifierFamily[Normalize(name)]
	return ok
}

// Family returns the generic modifier family of name ("lshift" -> "shift"),
// or "" when name is not a modifier.
func Family(name string) string {
	return modifierFamily[Normalize(name)]
}

// IsShift reports whether name belongs to the shift family.
func IsShift(name string) bool {
	return Family(name) == "shift"
}

// IsChar reports whether name denotes a single printable character.
func IsChar(name string) bool {
	return utf8.RuneCountInString(name) == 1
}

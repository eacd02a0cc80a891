package main

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-vgo/robotgo"
	"github.com/micmonay/keybd_event"

	"github.com/taglme/quirk/internal/keys"
)

// keyLauncher is the part of keybd_event.KeyBonding the emitter drives.
type keyLauncher interface {
	SetKeys(keys ...int)
	HasSHIFT(shift bool)
	Launching() error
}

type keySet struct {
	code  int
	shift bool
}

// names maps runes typed through keybd_event. Anything else goes through
// robotgo, which handles layouts and non-ASCII text.
var names = func() map[rune]keySet {
	letters := []int{
		keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
		keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
		keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
		keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
		keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
		keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
		keybd_event.VK_Y, keybd_event.VK_Z,
	}
	digits := []int{
		keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
		keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
		keybd_event.VK_8, keybd_event.VK_9,
	}

	m := map[rune]keySet{
		' ':  {code: keybd_event.VK_SPACE},
		'\n': {code: keybd_event.VK_ENTER},
		'\t': {code: keybd_event.VK_TAB},
	}
	for i, code := range letters {
		m['a'+rune(i)] = keySet{code: code}
		m['A'+rune(i)] = keySet{code: code, shift: true}
	}
	for i, code := range digits {
		m['0'+rune(i)] = keySet{code: code}
	}
	return m
}()

// namedKeys are the keys TapKey presses through keybd_event.
var namedKeys = map[string]int{
	keys.Enter:     keybd_event.VK_ENTER,
	keys.Space:     keybd_event.VK_SPACE,
	keys.Tab:       keybd_event.VK_TAB,
	keys.Backspace: keybd_event.VK_BACKSPACE,
	keys.Esc:       keybd_event.VK_ESC,
}

// stroke is one step of typing: a key press, or a run of text handed to
// robotgo.
type stroke struct {
	key  keySet
	text string
}

// plan splits text into strokes. Runs of runes without a key code are
// grouped into one text stroke.
func plan(text string) []stroke {
	var (
		out []stroke
		run strings.Builder
	)
	flush := func() {
		if run.Len() > 0 {
			out = append(out, stroke{text: run.String()})
			run.Reset()
		}
	}
	for _, r := range text {
		if r == '\r' {
			continue
		}
		if ks, ok := names[r]; ok {
			flush()
			out = append(out, stroke{key: ks})
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		run.WriteRune(r)
	}
	flush()
	return out
}

// KeyboardEmitter types text into the focused application with CAPS Lock
// protection.
type KeyboardEmitter struct {
	mu      sync.Mutex
	kb      keyLauncher
	caps    *CapsLockManager
	typeStr func(string)
	tapKey  func(string) error
}

// NewKeyboardEmitter initialises the keyboard binding.
func NewKeyboardEmitter() (*KeyboardEmitter, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	return newKeyboardEmitter(&kb), nil
}

func newKeyboardEmitter(kb keyLauncher) *KeyboardEmitter {
	return &KeyboardEmitter{
		kb:      kb,
		caps:    NewCapsLockManager(kb),
		typeStr: func(s string) { robotgo.TypeStr(s) },
		tapKey:  func(name string) error { return robotgo.KeyTap(name) },
	}
}

// InjectText types text. Held modifiers are not restored afterwards.
func (e *KeyboardEmitter) InjectText(text string) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.caps.DisableCapsLock(); err != nil {
		return fmt.Errorf("disable caps lock: %w", err)
	}
	defer func() {
		if rerr := e.caps.RestoreCapsLock(); rerr != nil && err == nil {
			err = fmt.Errorf("restore caps lock: %w", rerr)
		}
	}()

	for _, s := range plan(text) {
		if s.text != "" {
			e.typeStr(s.text)
			continue
		}
		if err := e.press(s.key); err != nil {
			return err
		}
	}
	return nil
}

// TapKey presses and releases one named key.
func (e *KeyboardEmitter) TapKey(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.ToLower(keys.Normalize(name))
	if code, ok := namedKeys[name]; ok {
		return e.press(keySet{code: code})
	}
	if err := e.tapKey(name); err != nil {
		return fmt.Errorf("tap %s: %w", name, err)
	}
	return nil
}

// Erase sends n backspaces.
func (e *KeyboardEmitter) Erase(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := e.press(keySet{code: keybd_event.VK_BACKSPACE}); err != nil {
			return err
		}
	}
	return nil
}

func (e *KeyboardEmitter) press(ks keySet) error {
	e.kb.SetKeys(ks.code)
	e.kb.HasSHIFT(ks.shift)
	return e.kb.Launching()
}

package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/micmonay/keybd_event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	keys     []int
	shift    bool
	log      []string
	err      error
	onLaunch func(keys []int)
}

func (f *fakeLauncher) SetKeys(keys ...int) { f.keys = keys }
func (f *fakeLauncher) HasSHIFT(s bool)     { f.shift = s }
func (f *fakeLauncher) Launching() error {
	f.log = append(f.log, fmt.Sprintf("%v/%t", f.keys, f.shift))
	if f.onLaunch != nil {
		f.onLaunch(f.keys)
	}
	return f.err
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []stroke
	}{
		{"empty", "", nil},
		{"letters", "aB", []stroke{
			{key: keySet{code: keybd_event.VK_A}},
			{key: keySet{code: keybd_event.VK_B, shift: true}},
		}},
		{"digits and space", "6 9", []stroke{
			{key: keySet{code: keybd_event.VK_6}},
			{key: keySet{code: keybd_event.VK_SPACE}},
			{key: keySet{code: keybd_event.VK_9}},
		}},
		{"runs of other runes", "é!a`", []stroke{
			{text: "é!"},
			{key: keySet{code: keybd_event.VK_A}},
			{text: "`"},
		}},
		{"newline and carriage return", "a\r\n", []stroke{
			{key: keySet{code: keybd_event.VK_A}},
			{key: keySet{code: keybd_event.VK_ENTER}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plan(tt.in))
		})
	}
}

func newTestEmitter() (*KeyboardEmitter, *fakeLauncher, *[]string) {
	kb := &fakeLauncher{}
	e := newKeyboardEmitter(kb)
	e.caps.query = func() bool { return false }
	var typed []string
	e.typeStr = func(s string) { typed = append(typed, s) }
	e.tapKey = func(name string) error {
		typed = append(typed, "tap:"+name)
		return nil
	}
	return e, kb, &typed
}

func TestInjectText(t *testing.T) {
	e, kb, typed := newTestEmitter()

	require.NoError(t, e.InjectText("Hé"))
	assert.Equal(t, []string{fmt.Sprintf("[%d]/true", keybd_event.VK_H)}, kb.log)
	assert.Equal(t, []string{"é"}, *typed)
}

func TestInjectTextRestoresCapsLock(t *testing.T) {
	e, kb, _ := newTestEmitter()
	on := true
	e.caps.query = func() bool { return on }
	// any key but a is the caps key here
	kb.onLaunch = func(keys []int) {
		if keys[0] != keybd_event.VK_A {
			on = !on
		}
	}

	require.NoError(t, e.InjectText("a"))
	assert.Len(t, kb.log, 3, "caps off, a, caps on")
	assert.Equal(t, kb.log[0], kb.log[2])
	assert.True(t, on)
}

func TestTapKeyAndErase(t *testing.T) {
	e, kb, typed := newTestEmitter()

	require.NoError(t, e.TapKey("Return"))
	require.NoError(t, e.TapKey("f5"))
	require.NoError(t, e.Erase(2))

	bs := fmt.Sprintf("[%d]/false", keybd_event.VK_BACKSPACE)
	assert.Equal(t, []string{fmt.Sprintf("[%d]/false", keybd_event.VK_ENTER), bs, bs}, kb.log)
	assert.Equal(t, []string{"tap:f5"}, *typed)
}

func TestInjectTextStopsOnError(t *testing.T) {
	e, kb, _ := newTestEmitter()
	kb.err = errors.New("uinput closed")

	err := e.InjectText("ab")
	require.Error(t, err)
	assert.Len(t, kb.log, 1)
}

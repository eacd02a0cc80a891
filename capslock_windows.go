package main

import (
	"syscall"

	"github.com/micmonay/keybd_event"
)

var (
	user32      = syscall.NewLazyDLL("user32.dll")
	getKeyState = user32.NewProc("GetKeyState")
)

// CapsLockManager turns CAPS Lock off while text is typed and puts it back
// afterwards.
type CapsLockManager struct {
	originalState bool
	kb            keyLauncher
	query         func() bool
}

// NewCapsLockManager creates a new CAPS Lock manager
func NewCapsLockManager(kb keyLauncher) *CapsLockManager {
	return &CapsLockManager{
		kb:    kb,
		query: capsLockToggled,
	}
}

func capsLockToggled() bool {
	// VK_CAPITAL; the low-order bit is the toggle state
	ret, _, _ := getKeyState.Call(uintptr(0x14))
	return ret&0x0001 != 0
}

// IsCapsLockOn reports the current CAPS Lock state.
func (c *CapsLockManager) IsCapsLockOn() bool {
	return c.query()
}

// DisableCapsLock disables CAPS Lock and saves the original state
func (c *CapsLockManager) DisableCapsLock() error {
	c.originalState = c.IsCapsLockOn()
	if c.originalState {
		return c.toggle()
	}
	return nil
}

// RestoreCapsLock restores the original CAPS Lock state
func (c *CapsLockManager) RestoreCapsLock() error {
	if c.IsCapsLockOn() != c.originalState {
		return c.toggle()
	}
	return nil
}

func (c *CapsLockManager) toggle() error {
	c.kb.SetKeys(keybd_event.VK_CAPSLOCK)
	c.kb.HasSHIFT(false)
	return c.kb.Launching()
}

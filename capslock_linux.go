package main

// CapsLockManager turns CAPS Lock off while text is typed and puts it back
// afterwards (Linux: state is not queried, typing assumes it is off).
type CapsLockManager struct {
	originalState bool
	kb            keyLauncher
	query         func() bool
}

// NewCapsLockManager creates a new CAPS Lock manager
func NewCapsLockManager(kb keyLauncher) *CapsLockManager {
	return &CapsLockManager{
		kb:    kb,
		query: func() bool { return false },
	}
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
	c.kb.SetKeys(58) // KEY_CAPSLOCK
	c.kb.HasSHIFT(false)
	return c.kb.Launching()
}

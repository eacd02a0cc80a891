package keys

import "strings"

// Pressed tracks the keys currently held down, fed from raw key events.
// It is not safe for concurrent use; the gate owns it.
type Pressed struct {
	down map[string]struct{}
}

// NewPressed returns an empty tracker.
func NewPressed() *Pressed {
	return &Pressed{down: make(map[string]struct{})}
}

// Observe updates the tracker with one event.
func (p *Pressed) Observe(ev Event) {
	name := strings.ToLower(Normalize(ev.Name))
	switch ev.Action {
	case Down:
		p.down[name] = struct{}{}
	case Up:
		delete(p.down, name)
	}
}

// Holds reports whether name is held. A generic modifier name ("shift")
// is satisfied by any key of its family ("lshift", "rshift").
func (p *Pressed) Holds(name string) bool {
	name = strings.ToLower(Normalize(name))
	if _, ok := p.down[name]; ok {
		return true
	}
	if Family(name) != name {
		return false
	}
	for k := range p.down {
		if Family(k) == name {
			return true
		}
	}
	return false
}

// ShiftHeld reports whether any shift-family key is held.
func (p *Pressed) ShiftHeld() bool {
	return p.Holds("shift")
}

// Reset forgets every held key.
func (p *Pressed) Reset() {
	clear(p.down)
}

package session

import "github.com/taglme/quirk/internal/profile"

// Observer is the presentation boundary. Calls arrive on the event-callback
// goroutine and must return promptly; front-ends hand the values to their
// own goroutine.
type Observer interface {
	profile.Listener
	BufferChanged(text, preview string)
	SessionStarted(id string)
	SessionEnded(id string, reason EndReason, output string)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ProfilesChanged([]string)               {}
func (NopObserver) ProfileSelected(string, string)         {}
func (NopObserver) BufferChanged(string, string)           {}
func (NopObserver) SessionStarted(string)                  {}
func (NopObserver) SessionEnded(string, EndReason, string) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) ProfilesChanged(names []string) {
	for _, ob := range o {
		ob.ProfilesChanged(names)
	}
}

func (o Observers) ProfileSelected(name, rules string) {
	for _, ob := range o {
		ob.ProfileSelected(name, rules)
	}
}

func (o Observers) BufferChanged(text, preview string) {
	for _, ob := range o {
		ob.BufferChanged(text, preview)
	}
}

func (o Observers) SessionStarted(id string) {
	for _, ob := range o {
		ob.SessionStarted(id)
	}
}

func (o Observers) SessionEnded(id string, reason EndReason, output string) {
	for _, ob := range o {
		ob.SessionEnded(id, reason, output)
	}
}

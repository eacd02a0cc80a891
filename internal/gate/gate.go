// Package gate sits between the global keyboard interceptor and the capture
// session. It owns the single toggle binding, tracks held keys and decides
// for every raw event whether it is withheld from other applications.
package gate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/keys"
	"github.com/taglme/quirk/internal/session"
)

// Verdict is the interceptor's answer for one event.
type Verdict struct {
	Suppress bool
}

var (
	Pass     = Verdict{}
	Suppress = Verdict{Suppress: true}
)

// Interceptor delivers every raw key event to a handler and, when it can,
// withholds the events the handler suppresses.
type Interceptor interface {
	Watch(handler func(keys.Event) Verdict) error
	Stop()
	CanSuppress() bool
}

// Capturer is the part of the capture session the gate drives.
type Capturer interface {
	Active() bool
	OnToggle() error
	HandleKey(ev keys.Event) error
	Discard()
	SetToggle(c keys.Combo)
}

type binding struct {
	combo keys.Combo
	id    string
}

// Gate forwards key events to the session while it is capturing.
type Gate struct {
	mu      sync.Mutex
	sess    Capturer
	held    *keys.Pressed
	binding *binding
	// key-downs that were withheld; their releases are withheld too
	swallowed map[string]struct{}
	log       zerolog.Logger

	// OnError, when set, receives emitter and internal failures. It runs
	// under the gate lock and must not block.
	OnError func(error)
}

// New binds toggle and returns a gate for sess. held must be the same
// tracker the session reads shift state from.
func New(sess Capturer, held *keys.Pressed, toggle keys.Combo, log zerolog.Logger) *Gate {
	g := &Gate{
		sess:      sess,
		held:      held,
		swallowed: make(map[string]struct{}),
		log:       log.With().Str("component", "gate").Logger(),
	}
	g.bind(toggle)
	return g
}

// Toggle returns the bound toggle combination.
func (g *Gate) Toggle() keys.Combo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.binding.combo
}

// SetToggleCombo releases the current binding and installs c in one step.
// An active session is discarded without emitting.
func (g *Gate) SetToggleCombo(c keys.Combo) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sess.Active() {
		g.sess.Discard()
	}
	old := g.binding
	g.bind(c)
	g.log.Info().
		Str("old", old.combo.String()).Str("old_id", old.id).
		Str("new", c.String()).Str("new_id", g.binding.id).
		Msg("Toggle hotkey rebound")
}

func (g *Gate) bind(c keys.Combo) {
	g.binding = &binding{combo: c, id: ulid.Make().String()}
	g.sess.SetToggle(c)
}

// Attach registers the gate as ic's handler.
func (g *Gate) Attach(ic Interceptor) error {
	if err := ic.Watch(g.Handle); err != nil {
		return fmt.Errorf("attach interceptor: %w", err)
	}
	return nil
}

// Handle is the interceptor callback. It never panics and never blocks on
// anything but the gate lock.
func (g *Gate) Handle(ev keys.Event) (v Verdict) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Str("key", ev.Name).Msg("Recovered in key handler")
			g.fail(fmt.Errorf("key handler panic: %v", r))
			v = Pass
			if g.sess.Active() {
				v = Suppress
			}
		}
	}()

	name := strings.ToLower(keys.Normalize(ev.Name))
	g.held.Observe(ev)

	if ev.Action == keys.Up {
		if _, ok := g.swallowed[name]; ok {
			delete(g.swallowed, name)
			return Suppress
		}
		return Pass
	}

	if !g.sess.Active() {
		if !g.binding.combo.Matches(ev.Name, g.held) {
			return Pass
		}
		g.swallowed[name] = struct{}{}
		g.report(ev, g.sess.OnToggle())
		return Suppress
	}

	g.swallowed[name] = struct{}{}
	g.report(ev, g.sess.HandleKey(ev))
	return Suppress
}

func (g *Gate) report(ev keys.Event, err error) {
	if err == nil {
		return
	}
	var uk *session.UnrecognizedKeyError
	if errors.As(err, &uk) {
		g.log.Warn().Str("key", uk.Name).Msg("Ignoring key")
		return
	}
	g.log.Error().Err(err).Str("key", ev.Name).Msg("Key handling failed")
	g.fail(err)
}

func (g *Gate) fail(err error) {
	if g.OnError != nil {
		g.OnError(err)
	}
}

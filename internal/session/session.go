// Package session implements the capture session: the state machine that
// turns raw key events into an editable buffer and, when the session ends,
// rewrites the buffer through the selected rule profile and types it out.
//
// A Session is driven from a single event-callback context and is not safe
// for concurrent use. Nothing in it blocks on I/O.
package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/buffer"
	"github.com/taglme/quirk/internal/keys"
	"github.com/taglme/quirk/internal/profile"
)

// State is the capture session state.
type State int

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// EndReason says why a session ended.
type EndReason int

const (
	ReasonToggle EndReason = iota + 1
	ReasonCancel
	ReasonCommit
	// ReasonDiscard ends a session without emitting anything.
	ReasonDiscard
)

func (r EndReason) String() string {
	switch r {
	case ReasonToggle:
		return "toggle"
	case ReasonCancel:
		return "cancel"
	case ReasonCommit:
		return "commit"
	case ReasonDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Emitter types synthetic keystrokes into the focused application.
type Emitter interface {
	// InjectText types text. Held modifiers are not restored afterwards.
	InjectText(text string) error
	// TapKey presses and releases one named key.
	TapKey(name string) error
	// Erase sends n backspaces.
	Erase(n int) error
}

// KeyState answers which keys are currently held.
type KeyState interface {
	Holds(name string) bool
	ShiftHeld() bool
}

// ProfileSource yields the profile to apply when a session ends.
type ProfileSource interface {
	Selected() *profile.Profile
}

// UnrecognizedKeyError reports a key the session does not know how to
// type. The event is ignored.
type UnrecognizedKeyError struct {
	Name string
}

func (e *UnrecognizedKeyError) Error() string {
	return fmt.Sprintf("unrecognized key %q", e.Name)
}

// Options configures a Session.
type Options struct {
	Toggle keys.Combo
	// Commit ends the session and is forwarded after the text. Default "enter".
	Commit string
	// Cancel ends the session without being forwarded. Default "esc".
	Cancel string
	Filter profile.OutputFilter
	// EraseLeaked erases the buffer's length with backspaces before
	// injecting, for interceptors that cannot withhold keystrokes.
	EraseLeaked bool
	Observer    Observer
	Logger      zerolog.Logger
}

// Session is the capture session state machine.
type Session struct {
	emitter  Emitter
	profiles ProfileSource
	held     KeyState
	observer Observer
	log      zerolog.Logger

	toggle      keys.Combo
	commit      string
	cancel      string
	filter      profile.OutputFilter
	eraseLeaked bool

	state State
	id    string
	buf   *buffer.CharBuffer
}

// New returns an idle session.
func New(emitter Emitter, profiles ProfileSource, held KeyState, opts Options) *Session {
	if opts.Commit == "" {
		opts.Commit = keys.Enter
	}
	if opts.Cancel == "" {
		opts.Cancel = keys.Esc
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Session{
		emitter:     emitter,
		profiles:    profiles,
		held:        held,
		observer:    opts.Observer,
		log:         opts.Logger.With().Str("component", "session").Logger(),
		toggle:      opts.Toggle,
		commit:      strings.ToLower(keys.Normalize(opts.Commit)),
		cancel:      strings.ToLower(keys.Normalize(opts.Cancel)),
		filter:      opts.Filter,
		eraseLeaked: opts.EraseLeaked,
		buf:         buffer.New(),
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Active reports whether a session is capturing.
func (s *Session) Active() bool { return s.state == Capturing }

// Text returns the raw buffer content.
func (s *Session) Text() string { return s.buf.String() }

// Toggle returns the toggle combination.
func (s *Session) Toggle() keys.Combo { return s.toggle }

// SetToggle replaces the toggle combination.
func (s *Session) SetToggle(c keys.Combo) { s.toggle = c }

// OnToggle handles the toggle combination: it arms an idle session and
// ends an active one.
func (s *Session) OnToggle() error {
	if s.state == Capturing {
		return s.end(ReasonToggle)
	}
	s.arm()
	return nil
}

// Discard ends an active session without emitting anything.
func (s *Session) Discard() {
	if s.state != Capturing {
		return
	}
	id := s.id
	s.state = Idle
	s.buf.Clear()
	s.log.Debug().Str("session", id).Msg("Session discarded")
	s.observer.BufferChanged("", "")
	s.observer.SessionEnded(id, ReasonDiscard, "")
}

// HandleKey interprets one key event while capturing. Events arriving
// while idle, and key releases, are ignored. A returned
// *UnrecognizedKeyError means the event was ignored; other errors come
// from the emitter and do not leave the session active.
func (s *Session) HandleKey(ev keys.Event) error {
	if s.state != Capturing || ev.Action != keys.Down {
		return nil
	}
	name := keys.Normalize(ev.Name)
	lname := strings.ToLower(name)

	// the toggle combination wins over every other reading of the key
	if s.toggle.Held(s.held) || lname == s.toggle.String() {
		return s.end(ReasonToggle)
	}
	switch lname {
	case s.cancel:
		return s.end(ReasonCancel)
	case s.commit:
		return s.end(ReasonCommit)
	}
	if keys.IsModifier(name) {
		return nil
	}

	switch lname {
	case keys.Backspace:
		if s.buf.PopLast() {
			s.changed()
		}
		return nil
	case keys.Space:
		s.buf.Append(' ')
		s.changed()
		return nil
	}

	if !keys.IsChar(name) {
		return &UnrecognizedKeyError{Name: ev.Name}
	}
	r, _ := utf8.DecodeRuneInString(name)
	if s.held.ShiftHeld() {
		r = keys.Shifted(r)
	}
	s.buf.Append(r)
	s.changed()
	return nil
}

// Preview returns the current buffer as it would be emitted.
func (s *Session) Preview() string {
	out, _ := s.transform(s.buf.String())
	return out
}

func (s *Session) arm() {
	s.buf.Clear()
	s.state = Capturing
	s.id = ulid.Make().String()
	s.log.Debug().Str("session", s.id).Msg("Session started")
	s.observer.SessionStarted(s.id)
	s.observer.BufferChanged("", "")
}

// end runs the end-of-session pipeline shared by toggle, cancel and commit.
func (s *Session) end(reason EndReason) error {
	id := s.id
	text := s.buf.String()
	leaked := s.buf.Len()
	out, applyErr := s.transform(text)
	s.state = Idle

	var errs []error
	if applyErr != nil {
		errs = append(errs, applyErr)
	}
	if s.eraseLeaked && reason == ReasonCommit {
		// the commit key reached the application as well
		leaked++
	}
	if s.eraseLeaked && leaked > 0 {
		if err := s.emitter.Erase(leaked); err != nil {
			errs = append(errs, fmt.Errorf("erase leaked keystrokes: %w", err))
		}
	}
	if out != "" {
		if err := s.emitter.InjectText(out); err != nil {
			errs = append(errs, fmt.Errorf("inject text: %w", err))
		}
	}
	if reason == ReasonCommit {
		if err := s.emitter.TapKey(s.commit); err != nil {
			errs = append(errs, fmt.Errorf("forward %s: %w", s.commit, err))
		}
	}
	s.buf.Clear()

	s.log.Debug().Str("session", id).Str("reason", reason.String()).
		Str("input", text).Str("output", out).Msg("Session ended")
	s.observer.BufferChanged("", "")
	s.observer.SessionEnded(id, reason, out)
	return errors.Join(errs...)
}

func (s *Session) transform(text string) (string, error) {
	out, err := s.profiles.Selected().Apply(text)
	return s.filter.Apply(out), err
}

func (s *Session) changed() {
	text := s.buf.String()
	preview, err := s.transform(text)
	if err != nil {
		s.log.Warn().Err(err).Msg("Preview skipped failing rules")
	}
	s.observer.BufferChanged(text, preview)
}

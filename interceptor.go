package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/gate"
	"github.com/taglme/quirk/internal/keys"
)

// keyNames inverts a name to keycode table. When several names share a
// code the shortest wins, then the alphabetically first.
func keyNames(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for name, code := range table {
		cur, ok := out[code]
		if !ok || len(name) < len(cur) || (len(name) == len(cur) && name < cur) {
			out[code] = name
		}
	}
	return out
}

// uiohookNames pins libuiohook virtual codes whose names in gohook's table
// are ambiguous or shifted.
var uiohookNames = map[uint16]string{
	0x0001: keys.Esc,
	0x000D: "=",
	0x000E: keys.Backspace,
	0x000F: keys.Tab,
	0x001C: keys.Enter,
	0x0039: keys.Space,
	0x002A: "lshift",
	0x0036: "rshift",
	0x001D: "lctrl",
	0x0E1D: "rctrl",
	0x0038: "lalt",
	0x0E38: "ralt",
	0x0E5B: "lcmd",
	0x0E5C: "rcmd",
}

// hookKeyNames is the keycode to name table used for gohook events.
func hookKeyNames() map[uint16]string {
	names := keyNames(hook.Keycode)
	for code, name := range uiohookNames {
		names[code] = name
	}
	return names
}

// translate turns a gohook event into a key event. Typed-character events
// and mouse events are dropped.
func translate(ev hook.Event, names map[uint16]string) (keys.Event, bool) {
	var action keys.Action
	switch ev.Kind {
	case hook.KeyHold:
		action = keys.Down
	case hook.KeyUp:
		action = keys.Up
	default:
		return keys.Event{}, false
	}
	name, ok := names[ev.Keycode]
	if !ok {
		name = fmt.Sprintf("keycode%d", ev.Keycode)
	}
	return keys.Event{Name: name, Action: action}, true
}

// HookInterceptor delivers global key events from robotgo's event hook.
// The hook only observes, so withheld keystrokes still reach the focused
// application.
type HookInterceptor struct {
	names  map[uint16]string
	retry  *RetryManager
	log    zerolog.Logger
	notify *NotificationManager

	// OnFatal, when set, is called once the hook cannot be restarted.
	OnFatal func(error)

	stopChannel chan struct{}
	running     bool
	hookActive  bool
	mutex       sync.Mutex
	wg          sync.WaitGroup
}

// NewHookInterceptor creates an interceptor that restarts a failed hook
// through retry.
func NewHookInterceptor(retry *RetryManager, nm *NotificationManager, log zerolog.Logger) *HookInterceptor {
	return &HookInterceptor{
		names:       hookKeyNames(),
		retry:       retry,
		notify:      nm,
		log:         log,
		stopChannel: make(chan struct{}),
	}
}

// CanSuppress reports false: the hook cannot withhold events.
func (hi *HookInterceptor) CanSuppress() bool { return false }

// Watch starts the hook and calls handler for every key event.
func (hi *HookInterceptor) Watch(handler func(keys.Event) gate.Verdict) error {
	hi.mutex.Lock()
	defer hi.mutex.Unlock()

	if hi.running {
		return fmt.Errorf("interceptor is already running")
	}
	hi.running = true
	hi.wg.Add(1)
	go hi.monitorLoopWithRecovery(handler)
	return nil
}

// Stop ends the hook and waits for the monitor goroutine.
func (hi *HookInterceptor) Stop() {
	hi.mutex.Lock()
	if !hi.running {
		hi.mutex.Unlock()
		return
	}
	hi.log.Info().Msg("Stopping key hook")
	hi.running = false
	close(hi.stopChannel)
	if hi.hookActive {
		robotgo.EventEnd()
		hi.hookActive = false
	}
	hi.mutex.Unlock()

	hi.wg.Wait()
}

func (hi *HookInterceptor) isRunning() bool {
	hi.mutex.Lock()
	defer hi.mutex.Unlock()
	return hi.running
}

// monitorLoopWithRecovery restarts the hook when its event stream dies.
func (hi *HookInterceptor) monitorLoopWithRecovery(handler func(keys.Event) gate.Verdict) {
	defer hi.wg.Done()

	err := hi.retry.Retry(func() error {
		if !hi.isRunning() {
			return nil
		}
		err := hi.monitorLoop(handler)
		if err != nil && hi.isRunning() {
			hi.notify.NotifyErrorThrottled("hook", "Keyboard hook restarting")
			return err
		}
		return nil
	})
	if err != nil {
		hi.log.Error().Err(err).Msg("Key hook failed permanently")
		hi.notify.NotifyError("Keyboard hook failed permanently")
		if hi.OnFatal != nil {
			hi.OnFatal(err)
		}
	}
}

func (hi *HookInterceptor) monitorLoop(handler func(keys.Event) gate.Verdict) error {
	hi.mutex.Lock()
	evChan := robotgo.EventStart()
	hi.hookActive = true
	hi.mutex.Unlock()

	hi.log.Info().Msg("Key hook started")
	started := time.Now()

	for {
		select {
		case <-hi.stopChannel:
			return nil
		case ev, ok := <-evChan:
			if !ok {
				hi.mutex.Lock()
				hi.hookActive = false
				hi.mutex.Unlock()
				return fmt.Errorf("event channel closed after %s", time.Since(started).Round(time.Second))
			}
			kev, ok := translate(ev, hi.names)
			if !ok {
				continue
			}
			if v := handler(kev); v.Suppress && kev.Action == keys.Down {
				hi.log.Trace().Str("key", kev.Name).Msg("Key leaked to focused application")
			}
		}
	}
}

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/profile"
	"github.com/taglme/quirk/internal/session"
)

// DemoLine is transformed by every selected profile so its effect is visible.
const DemoLine = "The quick brown fox jumped over the angry dog"

// UIStatus is the state the console renders.
type UIStatus struct {
	Capturing   bool
	Profile     string
	Toggle      string
	Buffer      string
	Preview     string
	LastOutput  string
	LastError   string
	LogFilePath string
}

type uiUpdate func(ui *UIManager)

// UIManager is the console front-end. It implements session.Observer:
// notifications are queued and rendered on the UI goroutine, and dropped
// when the queue is full so the key callback never waits.
type UIManager struct {
	out     io.Writer
	lookup  func(name string) (*profile.Profile, bool)
	notify  *NotificationManager
	audio   *AudioManager
	log     zerolog.Logger
	updates chan uiUpdate

	mu      sync.Mutex
	status  UIStatus
	dropped int

	done chan struct{}
	wg   sync.WaitGroup
}

var _ session.Observer = (*UIManager)(nil)

// NewUIManager creates a console front-end writing to out. lookup resolves
// profile names for the demo line.
func NewUIManager(out io.Writer, lookup func(string) (*profile.Profile, bool), nm *NotificationManager, am *AudioManager, log zerolog.Logger) *UIManager {
	return &UIManager{
		out:     out,
		lookup:  lookup,
		notify:  nm,
		audio:   am,
		log:     log,
		updates: make(chan uiUpdate, 64),
		done:    make(chan struct{}),
	}
}

// Start runs the render goroutine.
func (ui *UIManager) Start() {
	ui.wg.Add(1)
	go ui.renderLoop()
}

// Stop renders what is queued and stops the render goroutine.
func (ui *UIManager) Stop() {
	close(ui.done)
	ui.wg.Wait()
}

func (ui *UIManager) renderLoop() {
	defer ui.wg.Done()
	for {
		select {
		case u := <-ui.updates:
			u(ui)
		case <-ui.done:
			for {
				select {
				case u := <-ui.updates:
					u(ui)
				default:
					return
				}
			}
		}
	}
}

func (ui *UIManager) enqueue(u uiUpdate) {
	select {
	case ui.updates <- u:
	default:
		ui.mu.Lock()
		ui.dropped++
		ui.mu.Unlock()
	}
}

func (ui *UIManager) printf(format string, args ...any) {
	fmt.Fprintf(ui.out, format, args...)
}

// ProfilesChanged implements session.Observer.
func (ui *UIManager) ProfilesChanged(names []string) {
	ui.enqueue(func(ui *UIManager) {
		ui.printf("📚 Profiles: %s\n", strings.Join(names, ", "))
	})
}

// ProfileSelected implements session.Observer.
func (ui *UIManager) ProfileSelected(name, rules string) {
	ui.enqueue(func(ui *UIManager) {
		ui.mu.Lock()
		ui.status.Profile = name
		ui.mu.Unlock()

		ui.printf("✅ Profile selected: %s\n", name)
		if rules != "" {
			for _, line := range strings.Split(rules, "\n") {
				ui.printf("   %s\n", line)
			}
		}
		if p, ok := ui.lookup(name); ok {
			demo, err := p.Apply(DemoLine)
			if err != nil {
				ui.log.Warn().Err(err).Str("profile", name).Msg("Demo line skipped failing rules")
			}
			ui.printf("   %s\n   %s\n", DemoLine, demo)
		}
		ui.notify.NotifyProfile(name)
	})
}

// BufferChanged implements session.Observer.
func (ui *UIManager) BufferChanged(text, preview string) {
	ui.enqueue(func(ui *UIManager) {
		ui.mu.Lock()
		ui.status.Buffer, ui.status.Preview = text, preview
		capturing := ui.status.Capturing
		ui.mu.Unlock()

		if capturing && text != "" {
			ui.printf("   ⌨️  %s  →  %s\n", text, preview)
		}
	})
}

// SessionStarted implements session.Observer.
func (ui *UIManager) SessionStarted(id string) {
	ui.enqueue(func(ui *UIManager) {
		ui.mu.Lock()
		ui.status.Capturing = true
		ui.mu.Unlock()

		ui.printf("🔴 Capturing (%s)\n", id)
		ui.audio.PlayCue()
	})
}

// SessionEnded implements session.Observer.
func (ui *UIManager) SessionEnded(id string, reason session.EndReason, output string) {
	ui.enqueue(func(ui *UIManager) {
		ui.mu.Lock()
		ui.status.Capturing = false
		if reason != session.ReasonDiscard {
			ui.status.LastOutput = output
		}
		ui.mu.Unlock()

		if output != "" {
			ui.printf("⚪ Session ended (%s): %s\n", reason, output)
		} else {
			ui.printf("⚪ Session ended (%s)\n", reason)
		}
		ui.audio.PlayCue()
	})
}

// SetToggle records the toggle combination shown in the status box.
func (ui *UIManager) SetToggle(combo string) {
	ui.mu.Lock()
	ui.status.Toggle = combo
	ui.mu.Unlock()
}

// SetLogFilePath records the log file shown in the status box.
func (ui *UIManager) SetLogFilePath(path string) {
	ui.mu.Lock()
	ui.status.LogFilePath = path
	ui.mu.Unlock()
}

// SetLastError records the last user-facing error.
func (ui *UIManager) SetLastError(msg string) {
	ui.mu.Lock()
	ui.status.LastError = msg
	ui.mu.Unlock()
}

// GetStatus returns a copy of the current status.
func (ui *UIManager) GetStatus() UIStatus {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.status
}

// DisplayCurrentStatus shows the current status in the console
func (ui *UIManager) DisplayCurrentStatus() {
	st := ui.GetStatus()
	state := "IDLE"
	if st.Capturing {
		state = "CAPTURING"
	}

	ui.printf("\n")
	ui.printf("┌─────────────────────────────────────────────────────────┐\n")
	ui.printf("│  📊 State: %-44s │\n", state)
	ui.printf("│  📚 Profile: %-42s │\n", st.Profile)
	ui.printf("│  ⌨️  Toggle: %-43s │\n", st.Toggle)
	if st.LastOutput != "" {
		ui.printf("│  📝 Last output: %-38s │\n", truncate(st.LastOutput, 38))
	}
	if st.LastError != "" {
		ui.printf("│  ❌ Last error: %-39s │\n", truncate(st.LastError, 39))
	}
	if st.LogFilePath != "" {
		ui.printf("│  🗂️  Log file: %-40s │\n", filepath.Base(st.LogFilePath))
	}
	ui.printf("└─────────────────────────────────────────────────────────┘\n")
	ui.printf("\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
	"github.com/skratchdot/open-golang/open"

	"github.com/taglme/quirk/internal/config"
)

const errorThrottle = 30 * time.Second

// NotificationManager handles system notifications. Every call returns
// immediately; the desktop notification is sent from its own goroutine.
type NotificationManager struct {
	enabled     bool
	showErrors  bool
	showProfile bool
	log         zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time

	// send is beeep.Notify, replaced in tests
	send  func(title, message, icon string) error
	alert func(title, message, icon string) error
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(cfg *config.Config, log zerolog.Logger) *NotificationManager {
	return &NotificationManager{
		enabled:     cfg.Notifications.Enabled,
		showErrors:  cfg.Notifications.ShowErrors,
		showProfile: cfg.Notifications.ShowProfile,
		log:         log,
		lastSent:    make(map[string]time.Time),
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
		alert: func(title, message, icon string) error {
			return beeep.Alert(title, message, icon)
		},
	}
}

// NotifyProfile announces the selected profile.
func (nm *NotificationManager) NotifyProfile(name string) {
	if !nm.enabled || !nm.showProfile {
		return
	}
	nm.dispatch(nm.send, AppName, fmt.Sprintf("Profile: %s", name))
}

// NotifyError sends an error notification
func (nm *NotificationManager) NotifyError(message string) {
	if !nm.enabled || !nm.showErrors {
		return
	}
	nm.dispatch(nm.alert, AppName+" error", message)
}

// NotifyErrorThrottled sends at most one error per key and throttle window.
func (nm *NotificationManager) NotifyErrorThrottled(key, message string) {
	nm.mu.Lock()
	last, seen := nm.lastSent[key]
	now := time.Now()
	if seen && now.Sub(last) < errorThrottle {
		nm.mu.Unlock()
		return
	}
	nm.lastSent[key] = now
	nm.mu.Unlock()

	nm.NotifyError(message)
}

// NotifyInfo sends an informational notification
func (nm *NotificationManager) NotifyInfo(title, message string) {
	if !nm.enabled {
		return
	}
	nm.dispatch(nm.send, title, message)
}

func (nm *NotificationManager) dispatch(fn func(string, string, string) error, title, message string) {
	go func() {
		if err := fn(title, message, ""); err != nil {
			nm.log.Warn().Err(err).Msg("Failed to send notification")
		}
	}()
}

// AudioManager plays a short beep when a session starts or ends.
type AudioManager struct {
	enabled   bool
	frequency float64
	duration  int
	log       zerolog.Logger
}

// NewAudioManager creates an audio manager from the audio section.
func NewAudioManager(cfg *config.Config, log zerolog.Logger) *AudioManager {
	return &AudioManager{
		enabled:   cfg.Audio.Enabled && cfg.Audio.DurationMS > 0,
		frequency: cfg.Audio.Frequency,
		duration:  cfg.Audio.DurationMS,
		log:       log,
	}
}

// PlayCue beeps without blocking the caller.
func (am *AudioManager) PlayCue() {
	if !am.enabled {
		return
	}
	go func() {
		if err := beeep.Beep(am.frequency, am.duration); err != nil {
			am.log.Debug().Err(err).Msg("Beep failed")
		}
	}()
}

// OpenFolder opens dir in the system file manager, creating it first.
func OpenFolder(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}
	return open.Run(abs)
}

// RetryManager handles retry logic with linear backoff
type RetryManager struct {
	maxAttempts int
	baseDelay   time.Duration
	log         zerolog.Logger
	sleep       func(time.Duration)
}

// NewRetryManager creates a new retry manager
func NewRetryManager(maxAttempts int, baseDelay time.Duration, log zerolog.Logger) *RetryManager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryManager{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		log:         log,
		sleep:       time.Sleep,
	}
}

// Retry executes the given function with retry logic
func (rm *RetryManager) Retry(operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= rm.maxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < rm.maxAttempts {
			delay := time.Duration(attempt) * rm.baseDelay
			rm.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Attempt failed")
			rm.sleep(delay)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", rm.maxAttempts, lastErr)
}

// Package config loads config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/taglme/quirk/internal/keys"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.yaml"

// Config represents the complete application configuration
type Config struct {
	Hotkeys struct {
		Toggle string `yaml:"toggle" validate:"required"`
		Commit string `yaml:"commit" validate:"required"`
		Cancel string `yaml:"cancel" validate:"required"`
	} `yaml:"hotkeys"`
	Profiles struct {
		Dir          string `yaml:"dir" validate:"required"`
		Default      string `yaml:"default"`
		Watch        bool   `yaml:"watch"`
		WriteExample bool   `yaml:"write_example"`
		DebounceMS   int    `yaml:"debounce_ms" validate:"gte=0,lte=10000"`
	} `yaml:"profiles"`
	Output struct {
		MarkdownEscape bool `yaml:"markdown_escape"`
		MarkdownFence  bool `yaml:"markdown_fence"`
		// EraseLeaked sends backspaces for keystrokes the hook could not withhold.
		EraseLeaked bool `yaml:"erase_leaked"`
	} `yaml:"output"`
	Notifications struct {
		Enabled     bool `yaml:"enabled"`
		ShowErrors  bool `yaml:"show_errors"`
		ShowProfile bool `yaml:"show_profile"`
	} `yaml:"notifications"`
	Audio struct {
		Enabled    bool    `yaml:"enabled"`
		Frequency  float64 `yaml:"frequency" validate:"gte=0,lte=20000"`
		DurationMS int     `yaml:"duration_ms" validate:"gte=0,lte=2000"`
	} `yaml:"audio"`
	Advanced struct {
		RetryAttempts  int  `yaml:"retry_attempts" validate:"gte=1"`
		ReconnectDelay int  `yaml:"reconnect_delay" validate:"gte=0"`
		AutoReconnect  bool `yaml:"auto_reconnect"`
	} `yaml:"advanced"`
	Logging struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" validate:"oneof=console json"`
		Dir    string `yaml:"dir"`
		File   bool   `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	c := &Config{}

	c.Hotkeys.Toggle = "ctrl+space"
	c.Hotkeys.Commit = keys.Enter
	c.Hotkeys.Cancel = keys.Esc

	c.Profiles.Dir = "."
	c.Profiles.Watch = true
	c.Profiles.WriteExample = true
	c.Profiles.DebounceMS = 250

	c.Output.EraseLeaked = true

	c.Notifications.Enabled = true
	c.Notifications.ShowErrors = true
	c.Notifications.ShowProfile = false

	c.Audio.Enabled = false
	c.Audio.Frequency = 880
	c.Audio.DurationMS = 60

	c.Advanced.RetryAttempts = 3
	c.Advanced.ReconnectDelay = 2
	c.Advanced.AutoReconnect = true

	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Logging.Dir = "logs"
	c.Logging.File = true

	return c
}

// Load reads path over the defaults. A missing file is not an error; the
// returned bool reports whether the file was found.
func Load(path string) (*Config, bool, error) {
	c := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return c, false, c.Validate()
	}
	if err != nil {
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, true, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, true, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and that every hotkey parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := keys.ParseCombo(c.Hotkeys.Toggle); err != nil {
		return fmt.Errorf("hotkeys.toggle: %w", err)
	}
	for field, name := range map[string]string{"commit": c.Hotkeys.Commit, "cancel": c.Hotkeys.Cancel} {
		combo, err := keys.ParseCombo(name)
		if err != nil {
			return fmt.Errorf("hotkeys.%s: %w", field, err)
		}
		if len(combo.Modifiers) > 0 {
			return fmt.Errorf("hotkeys.%s: %q must be a single key", field, name)
		}
	}
	if strings.EqualFold(c.Hotkeys.Commit, c.Hotkeys.Cancel) {
		return fmt.Errorf("hotkeys: commit and cancel are both %q", c.Hotkeys.Commit)
	}
	return nil
}

// Toggle returns the parsed toggle combination. Call after Validate.
func (c *Config) Toggle() keys.Combo {
	combo, _ := keys.ParseCombo(c.Hotkeys.Toggle)
	return combo
}

// Debounce returns the profile watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Profiles.DebounceMS) * time.Millisecond
}

// ReconnectDelay returns the delay between interceptor restarts.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Advanced.ReconnectDelay) * time.Second
}

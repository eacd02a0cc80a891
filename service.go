package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"

	"github.com/taglme/quirk/internal/config"
	"github.com/taglme/quirk/internal/gate"
	"github.com/taglme/quirk/internal/keys"
	"github.com/taglme/quirk/internal/profile"
	"github.com/taglme/quirk/internal/session"
)

// Service runs the capture loop until its context ends or the user quits.
type Service interface {
	Start(ctx context.Context) error
	// Fail stops Start with err.
	Fail(err error)
}

// Deps are the platform pieces a service drives.
type Deps struct {
	Emitter     session.Emitter
	Interceptor gate.Interceptor
	In          io.Reader
	Out         io.Writer
	// LockDir holds the single-instance lock; empty means the temp dir.
	LockDir string
}

type service struct {
	cfg    *config.Config
	deps   Deps
	log    zerolog.Logger
	logMgr *LogManager

	notificationManager *NotificationManager
	uiManager           *UIManager
	store               *profile.Store
	session             *session.Session
	gate                *gate.Gate
	console             *CommandConsole

	fatal chan error
}

// NewService wires the profile store, capture session and gate.
func NewService(cfg *config.Config, logManager *LogManager, deps Deps) Service {
	return newService(cfg, logManager, deps)
}

func newService(cfg *config.Config, logManager *LogManager, deps Deps) *service {
	s := &service{
		cfg:    cfg,
		deps:   deps,
		log:    logManager.Component("service"),
		logMgr: logManager,
		fatal:  make(chan error, 1),
	}

	s.notificationManager = NewNotificationManager(cfg, logManager.Component("notify"))
	audio := NewAudioManager(cfg, logManager.Component("audio"))
	s.uiManager = NewUIManager(deps.Out, func(name string) (*profile.Profile, bool) {
		return s.store.Get(name)
	}, s.notificationManager, audio, logManager.Component("ui"))

	s.store = profile.NewStore(profile.StoreOptions{
		Dir:          cfg.Profiles.Dir,
		DefaultName:  cfg.Profiles.Default,
		WriteExample: cfg.Profiles.WriteExample,
		Logger:       logManager.Logger(),
		Listener:     s.uiManager,
	})

	held := keys.NewPressed()
	toggle := cfg.Toggle()
	s.session = session.New(deps.Emitter, s.store, held, session.Options{
		Toggle: toggle,
		Commit: cfg.Hotkeys.Commit,
		Cancel: cfg.Hotkeys.Cancel,
		Filter: profile.OutputFilter{
			MarkdownEscape: cfg.Output.MarkdownEscape,
			MarkdownFence:  cfg.Output.MarkdownFence,
		},
		EraseLeaked: cfg.Output.EraseLeaked && deps.Interceptor != nil && !deps.Interceptor.CanSuppress(),
		Observer:    s.uiManager,
		Logger:      logManager.Logger(),
	})

	s.gate = gate.New(s.session, held, toggle, logManager.Logger())
	s.gate.OnError = func(err error) {
		s.uiManager.SetLastError(err.Error())
		s.notificationManager.NotifyErrorThrottled("session", "Text could not be typed. Is the cursor in the right field?")
	}

	s.console = NewCommandConsole(s, deps.In, deps.Out)
	return s
}

func (s *service) Fail(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

func (s *service) Start(ctx context.Context) error {
	instance := NewSingleInstance(s.deps.LockDir, AppName)
	if err := instance.TryLock(); err != nil {
		return err
	}
	defer instance.Release()

	s.uiManager.SetToggle(s.gate.Toggle().String())
	s.uiManager.SetLogFilePath(s.logMgr.GetLogFilePath())
	s.uiManager.Start()
	defer s.uiManager.Stop()

	s.reportRefresh(s.store.Refresh())

	if s.cfg.Profiles.Watch {
		w, err := profile.NewWatcher(s.store, s.cfg.Debounce(), s.logMgr.Logger())
		if err != nil {
			s.log.Warn().Err(err).Msg("Profile directory is not watched")
		} else {
			w.OnRefresh = s.reportRefresh
			w.Start()
			defer w.Stop()
		}
	}

	if s.deps.Interceptor == nil {
		return errors.New("no keyboard interceptor")
	}
	if err := s.gate.Attach(s.deps.Interceptor); err != nil {
		return err
	}
	defer s.deps.Interceptor.Stop()
	if !s.deps.Interceptor.CanSuppress() {
		s.log.Warn().Bool("erase_leaked", s.cfg.Output.EraseLeaked).
			Msg("Key hook cannot withhold keystrokes; captured keys also reach the focused application")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.console.Run(ctx)

	s.log.Info().Str("toggle", s.gate.Toggle().String()).Str("profile_dir", s.store.Dir()).Msg("Service started")
	fmt.Fprintf(s.deps.Out, "Press %s to start capturing, type help for commands.\n", s.gate.Toggle())

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down")
		return nil
	case <-s.console.Quit():
		s.log.Info().Msg("Quit requested")
		return nil
	case err := <-s.fatal:
		return err
	}
}

func (s *service) reportRefresh(rep profile.Report, err error) {
	if err != nil {
		s.log.Error().Err(err).Str("dir", s.store.Dir()).Msg("Profile refresh failed")
		s.notificationManager.NotifyErrorThrottled("profiles", "Profile folder could not be read")
		return
	}
	for _, e := range slices.Concat(rep.Failed, rep.Rejected) {
		s.log.Warn().Err(e).Msg("Profile skipped")
	}
	if n := len(rep.Failed) + len(rep.Rejected); n > 0 {
		s.uiManager.SetLastError(rep.Err().Error())
		s.notificationManager.NotifyErrorThrottled("profiles", fmt.Sprintf("%d profile problem(s), see log", n))
	}
}

func (s *service) ListProfiles() []string { return s.store.Names() }

func (s *service) SelectProfile(name string) error { return s.store.Select(name) }

func (s *service) RefreshProfiles() error {
	rep, err := s.store.Refresh()
	s.reportRefresh(rep, err)
	return errors.Join(err, rep.Err())
}

func (s *service) DescribeProfile(name string) (string, error) {
	p := s.store.Selected()
	if name != "" {
		var ok bool
		if p, ok = s.store.Get(name); !ok {
			return "", fmt.Errorf("profile %q: %w", name, profile.ErrNotFound)
		}
	}
	if p == nil {
		return "", profile.ErrNotFound
	}
	return p.Describe(), nil
}

func (s *service) SetHotkey(combo string) error {
	c, err := keys.ParseCombo(combo)
	if err != nil {
		return err
	}
	s.gate.SetToggleCombo(c)
	s.uiManager.SetToggle(c.String())
	fmt.Fprintf(s.deps.Out, "Toggle is now %s\n", c)
	return nil
}

func (s *service) ShowStatus() { s.uiManager.DisplayCurrentStatus() }

func (s *service) OpenProfiles() error {
	dir, err := filepath.Abs(s.store.Dir())
	if err != nil {
		return err
	}
	s.log.Info().Str("dir", dir).Msg("Opening profile folder")
	return OpenFolder(dir)
}

package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Demonstration profile used when no profile source exists.
const (
	DemoName = "Kankri"
	DemoFile = "example.yaml"
	DemoYAML = "Kankri:\n    \"[bB]\": \"6\"\n    \"[oO]\": \"9\"\n"
)

// DemoRules are the rules of the demonstration profile.
var DemoRules = []Rule{
	{Pattern: "[bB]", Replacement: "6"},
	{Pattern: "[oO]", Replacement: "9"},
}

// Listener receives store changes. Calls are made from the goroutine that
// changed the store and must not block.
type Listener interface {
	ProfilesChanged(names []string)
	ProfileSelected(name, rules string)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// Dir is the directory scanned for *.yaml, *.yml and *.toml sources.
	Dir string
	// DefaultName is selected after the first refresh when present.
	DefaultName string
	// WriteExample writes example.yaml into Dir when no source exists.
	WriteExample bool
	Logger       zerolog.Logger
	Listener     Listener
}

// Report summarises one refresh.
type Report struct {
	Sources  []string
	Loaded   []string
	Rejected []error // *ValidationError
	Failed   []error // *SourceParseError
	Demo     bool
}

// Err joins every rejection and failure.
func (r Report) Err() error {
	return errors.Join(append(slices.Clone(r.Failed), r.Rejected...)...)
}

type snapshot struct {
	names    []string
	byName   map[string]*Profile
	selected *Profile
}

// Store maps profile names to validated profiles. Readers get lock-free
// immutable snapshots; Refresh and Select build a new snapshot and swap it
// in, so a profile is always replaced as a whole.
type Store struct {
	opts StoreOptions
	log  zerolog.Logger

	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[snapshot]
}

// NewStore returns an empty store. Call Refresh to load profiles.
func NewStore(opts StoreOptions) *Store {
	s := &Store{
		opts: opts,
		log:  opts.Logger.With().Str("component", "profiles").Logger(),
	}
	s.snap.Store(&snapshot{byName: map[string]*Profile{}})
	return s
}

// Dir returns the profile directory.
func (s *Store) Dir() string { return s.opts.Dir }

// Names returns profile names in display order.
func (s *Store) Names() []string {
	return slices.Clone(s.snap.Load().names)
}

// Get looks a profile up by name.
func (s *Store) Get(name string) (*Profile, bool) {
	p, ok := s.snap.Load().byName[name]
	return p, ok
}

// Selected returns the active profile, or nil before the first Refresh.
func (s *Store) Selected() *Profile {
	return s.snap.Load().selected
}

// Select makes name the active profile.
func (s *Store) Select(name string) error {
	s.mu.Lock()
	cur := s.snap.Load()
	p, ok := cur.byName[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("select %q: %w", name, ErrNotFound)
	}
	s.snap.Store(&snapshot{names: cur.names, byName: cur.byName, selected: p})
	s.mu.Unlock()

	s.log.Info().Str("profile", name).Int("rules", p.Len()).Msg("Profile selected")
	if s.opts.Listener != nil {
		s.opts.Listener.ProfileSelected(p.Name(), p.Describe())
	}
	return nil
}

// Refresh rescans the profile directory and merges what it finds into the
// store. Invalid profiles are dropped, unparsable sources skipped. The store
// holds at least one profile afterwards, even when the returned error says
// the directory itself could not be scanned.
func (s *Store) Refresh() (Report, error) {
	var rep Report

	sources, scanErr := s.listSources()
	if scanErr != nil {
		s.log.Error().Err(scanErr).Str("dir", s.opts.Dir).Msg("Profile directory could not be scanned")
	}
	rep.Sources = sources

	s.mu.Lock()
	cur := s.snap.Load()
	names := slices.Clone(cur.names)
	byName := make(map[string]*Profile, len(cur.byName))
	for k, v := range cur.byName {
		byName[k] = v
	}

	put := func(p *Profile) {
		if _, ok := byName[p.Name()]; !ok {
			names = append(names, p.Name())
		}
		byName[p.Name()] = p
		rep.Loaded = append(rep.Loaded, p.Name())
	}
	drop := func(name string) {
		if _, ok := byName[name]; !ok {
			return
		}
		delete(byName, name)
		names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	}

	if len(sources) == 0 && scanErr == nil {
		s.writeExample()
		put(MustNew(DemoName, "builtin", DemoRules))
		rep.Demo = true
	}

	for _, src := range sources {
		raws, err := ParseFile(src)
		if err != nil {
			s.log.Error().Err(err).Str("source", src).Msg("Skipping profile source")
			rep.Failed = append(rep.Failed, err)
			continue
		}
		for _, raw := range raws {
			p, err := New(raw.Name, filepath.Base(src), raw.Rules)
			if err != nil {
				s.log.Error().Err(err).Str("source", src).Str("profile", raw.Name).Msg("Removing invalid profile")
				rep.Rejected = append(rep.Rejected, err)
				drop(raw.Name)
				continue
			}
			put(p)
		}
	}

	if len(names) == 0 {
		s.log.Warn().Msg("No usable profiles, falling back to the demonstration profile")
		put(MustNew(DemoName, "builtin", DemoRules))
		rep.Demo = true
	}

	selected := s.pickSelected(cur.selected, names, byName)
	changed := selected != cur.selected
	s.snap.Store(&snapshot{names: names, byName: byName, selected: selected})
	s.mu.Unlock()

	s.log.Info().
		Int("sources", len(sources)).
		Strs("profiles", names).
		Int("rejected", len(rep.Rejected)).
		Int("failed", len(rep.Failed)).
		Msg("Profiles refreshed")

	if l := s.opts.Listener; l != nil {
		l.ProfilesChanged(slices.Clone(names))
		if changed {
			l.ProfileSelected(selected.Name(), selected.Describe())
		}
	}
	return rep, scanErr
}

// pickSelected keeps the current selection by name when it survived the
// refresh, then tries the configured default, then the first profile.
func (s *Store) pickSelected(prev *Profile, names []string, byName map[string]*Profile) *Profile {
	if prev != nil {
		if p, ok := byName[prev.Name()]; ok {
			return p
		}
	}
	if p, ok := byName[s.opts.DefaultName]; ok {
		return p
	}
	return byName[names[0]]
}

func (s *Store) listSources() ([]string, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !IsSource(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(s.opts.Dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) writeExample() {
	if !s.opts.WriteExample || s.opts.Dir == "" {
		return
	}
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		s.log.Warn().Err(err).Msg("Failed to create profile directory")
		return
	}
	path := filepath.Join(s.opts.Dir, DemoFile)
	if err := os.WriteFile(path, []byte(DemoYAML), 0o644); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to write example profile")
		return
	}
	s.log.Info().Str("path", path).Msg("Wrote example profile")
}

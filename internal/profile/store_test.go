package profile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu       sync.Mutex
	names    [][]string
	selected []string
}

func (l *recordingListener) ProfilesChanged(names []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, names)
}

func (l *recordingListener) ProfileSelected(name, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = append(l.selected, name)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRefreshDropsInvalidProfileKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mixed.yaml", `
Good:
  "[iI]": "1"
Broken:
  "(": "x"
Other:
  "a": "b"
`)
	s := NewStore(StoreOptions{Dir: dir})
	rep, err := s.Refresh()
	require.NoError(t, err)

	assert.Equal(t, []string{"Good", "Other"}, s.Names())
	require.Len(t, rep.Rejected, 1)
	var ve *ValidationError
	require.True(t, errors.As(rep.Rejected[0], &ve))
	assert.Equal(t, "Broken", ve.Profile)
	assert.Equal(t, "mixed.yaml", ve.Source)

	_, ok := s.Get("Broken")
	assert.False(t, ok)
}

func TestRefreshSkipsUnparsableSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "Alpha:\n  a: b\n")
	writeFile(t, dir, "b.yaml", "Beta: [unclosed\n")
	writeFile(t, dir, "c.toml", "[Gamma]\n\"c\" = \"d\"\n")

	s := NewStore(StoreOptions{Dir: dir})
	rep, err := s.Refresh()
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "Gamma"}, s.Names())
	require.Len(t, rep.Failed, 1)
	var pe *SourceParseError
	require.True(t, errors.As(rep.Failed[0], &pe))
	assert.Equal(t, filepath.Join(dir, "b.yaml"), pe.Source)
	assert.Error(t, rep.Err())
}

func TestRefreshWithoutSourcesCreatesDemo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	s := NewStore(StoreOptions{Dir: dir, WriteExample: true})

	rep, err := s.Refresh()
	require.NoError(t, err)
	assert.True(t, rep.Demo)
	assert.Equal(t, []string{DemoName}, s.Names())
	require.NotNil(t, s.Selected())
	assert.Equal(t, DemoName, s.Selected().Name())

	data, err := os.ReadFile(filepath.Join(dir, DemoFile))
	require.NoError(t, err)
	raws, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, []RawProfile{{Name: DemoName, Rules: DemoRules}}, raws)
}

func TestRefreshAllInvalidFallsBackToDemo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "Bad:\n  \"[\": x\n")

	s := NewStore(StoreOptions{Dir: dir})
	rep, err := s.Refresh()
	require.NoError(t, err)
	assert.True(t, rep.Demo)
	assert.Equal(t, []string{DemoName}, s.Names())
	assert.Equal(t, DemoName, s.Selected().Name())
}

func TestRefreshOverwritesWholeProfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "Dup:\n  a: \"1\"\n  b: \"2\"\nKeep:\n  k: K\n")
	writeFile(t, dir, "b.yaml", "Dup:\n  c: \"3\"\n")

	s := NewStore(StoreOptions{Dir: dir})
	_, err := s.Refresh()
	require.NoError(t, err)

	assert.Equal(t, []string{"Dup", "Keep"}, s.Names())
	p, ok := s.Get("Dup")
	require.True(t, ok)
	assert.Equal(t, []Rule{{Pattern: "c", Replacement: "3"}}, p.Rules())
	assert.Equal(t, "b.yaml", p.Source())
}

func TestRefreshMergesAndRemovesNewlyInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "One:\n  a: b\nTwo:\n  c: d\n")

	s := NewStore(StoreOptions{Dir: dir})
	_, err := s.Refresh()
	require.NoError(t, err)
	require.NoError(t, s.Select("Two"))

	writeFile(t, dir, "a.yaml", "One:\n  a: z\nTwo:\n  \"(\": d\n")
	_, err = s.Refresh()
	require.NoError(t, err)

	assert.Equal(t, []string{"One"}, s.Names())
	assert.Equal(t, "One", s.Selected().Name())
	out, err := s.Selected().Apply("a")
	require.NoError(t, err)
	assert.Equal(t, "z", out)
}

func TestSelectionAndListener(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "p.yaml", "A:\n  a: b\nB:\n  b: c\n")

	l := &recordingListener{}
	s := NewStore(StoreOptions{Dir: dir, DefaultName: "B", Listener: l, Logger: zerolog.Nop()})
	_, err := s.Refresh()
	require.NoError(t, err)

	assert.Equal(t, "B", s.Selected().Name())
	assert.Equal(t, [][]string{{"A", "B"}}, l.names)
	assert.Equal(t, []string{"B"}, l.selected)

	require.NoError(t, s.Select("A"))
	assert.Equal(t, "A", s.Selected().Name())

	err = s.Select("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "A", s.Selected().Name())
	assert.Equal(t, []string{"B", "A"}, l.selected)
}

func TestWatcherRefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "A:\n  a: b\n")

	s := NewStore(StoreOptions{Dir: dir})
	_, err := s.Refresh()
	require.NoError(t, err)

	w, err := NewWatcher(s, 20*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeFile(t, dir, "b.yaml", "B:\n  b: c\n")

	require.Eventually(t, func() bool {
		_, ok := s.Get("B")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRefreshUnreadableDirFallsBackToDemo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "not-a-dir", "x")
	notDir := filepath.Join(dir, "not-a-dir")

	s := NewStore(StoreOptions{Dir: notDir, WriteExample: true})
	rep, err := s.Refresh()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan profile directory")
	assert.True(t, rep.Demo)

	assert.Equal(t, []string{DemoName}, s.Names())
	require.NotNil(t, s.Selected())
	out, err := s.Selected().Apply("bob")
	require.NoError(t, err)
	assert.Equal(t, "696", out)
}

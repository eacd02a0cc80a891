package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProfiles writes a profile dir and a config pointing at it.
func writeProfiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles")
	require.NoError(t, os.MkdirAll(profiles, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(profiles, name), []byte(body), 0o644))
	}
	cfg := "profiles:\n  dir: " + profiles + "\nlogging:\n  file: false\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newCLIApp(strings.NewReader(stdin), &out, &errOut)
	err := app.Run(append([]string{AppName}, args...))
	return out.String(), err
}

func TestApplyCommand(t *testing.T) {
	cfgPath := writeProfiles(t, map[string]string{
		"a.yaml": "Kankri:\n  \"[bB]\": \"6\"\n  \"[oO]\": \"9\"\nSollux:\n  \"[iI]\": ii\n  \"[sS]\": \"2\"\n",
	})

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"selected profile from args", "", []string{"apply", "bob", "bones"}, "696 69nes\n"},
		{"named profile", "", []string{"apply", "--profile", "Sollux", "this is it"}, "thii2 ii2 iit\n"},
		{"stdin", "Bob\n", []string{"apply"}, "696\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.stdin, append([]string{"--config", cfgPath}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := runCLI(t, "", "--config", cfgPath, "apply", "-p", "Nobody", "x")
	assert.Error(t, err)
}

func TestProfilesCommand(t *testing.T) {
	cfgPath := writeProfiles(t, map[string]string{
		"a.yaml": "Kankri:\n  \"[bB]\": \"6\"\n",
		"b.toml": "[Sollux]\n\"[iI]\" = \"ii\"\n",
	})

	out, err := runCLI(t, "", "--config", cfgPath, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "* Kankri (a.yaml)")
	assert.Contains(t, out, "  Sollux (b.toml)")
	assert.Contains(t, out, "1. '[iI]' -> 'ii'")
}

func TestCheckCommand(t *testing.T) {
	good := writeProfiles(t, map[string]string{"a.yaml": "Kankri:\n  \"[bB]\": \"6\"\n"})
	out, err := runCLI(t, "", "--config", good, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "All profiles valid")

	bad := writeProfiles(t, map[string]string{
		"a.yaml": "Broken:\n  \"(\": x\n",
		"b.yaml": "not: [valid",
	})
	out, err = runCLI(t, "", "--config", bad, "check")
	require.Error(t, err)
	assert.Contains(t, out, "❌")
	assert.Contains(t, err.Error(), "2 problem(s) found")
}

func TestCheckDoesNotWriteExample(t *testing.T) {
	cfgPath := writeProfiles(t, nil)
	_, err := runCLI(t, "", "--config", cfgPath, "check")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(cfgPath), "profiles", "example.yaml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hotkeys:\n  toggle: q+x\n"), 0o644))

	_, err := runCLI(t, "", "--config", path, "profiles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hotkeys.toggle")
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backdrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestHostDefaults(t *testing.T) {
	cfg, err := ParseHostFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8090", cfg.Listen)
	assert.Empty(t, cfg.SignalingURL)
	assert.Empty(t, cfg.AllowList)
	assert.Equal(t, FacilityAuto, cfg.Facility)
	assert.True(t, strings.HasPrefix(cfg.PublisherID, "publisher-"))
}

func TestHostFlags(t *testing.T) {
	cfg, err := ParseHostFlags([]string{
		"-listen", ":9000",
		"-signaling", "ws://signal:8080",
		"-id", "desk",
		"-allow", "com.apple.wallpaper.agent, Dock",
		"-skip-overlap",
		"-capture", "screenshot",
		"-v",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "ws://signal:8080", cfg.SignalingURL)
	assert.Equal(t, "desk", cfg.PublisherID)
	assert.Equal(t, []string{"com.apple.wallpaper.agent", "Dock"}, cfg.AllowList)
	assert.True(t, cfg.SkipOverlap)
	assert.Equal(t, FacilityScreenshot, cfg.Facility)
	assert.True(t, cfg.Verbose)
}

func TestHostFileThenFlags(t *testing.T) {
	path := writeConfig(t, `
listen: ":7000"
id: from-file
allow: [Finder]
skip_overlap: true
`)
	cfg, err := ParseHostFlags([]string{"-config", path, "-id", "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, "from-flag", cfg.PublisherID)
	assert.Equal(t, []string{"Finder"}, cfg.AllowList)
	assert.True(t, cfg.SkipOverlap)
}

func TestHostConfigErrors(t *testing.T) {
	_, err := ParseHostFlags([]string{"-capture", "dxgi"})
	assert.ErrorContains(t, err, "unknown capture facility")

	_, err = ParseHostFlags([]string{"-config=" + filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "config: read")

	_, err = ParseHostFlags([]string{"-config", writeConfig(t, "listen: [")})
	assert.ErrorContains(t, err, "config: parse")
}

func TestViewerModes(t *testing.T) {
	cfg, err := ParseViewerFlags(nil)
	require.NoError(t, err)
	assert.False(t, cfg.UseSignaling())
	assert.Equal(t, "ws://127.0.0.1:8090/stream", cfg.StreamURL)
	assert.True(t, strings.HasPrefix(cfg.ViewerID, "viewer-"))

	cfg, err = ParseViewerFlags([]string{"-signaling", "ws://signal:8080", "-publisher", "desk"})
	require.NoError(t, err)
	assert.True(t, cfg.UseSignaling())
	assert.Equal(t, "desk", cfg.PublisherID)

	_, err = ParseViewerFlags([]string{"-signaling", "ws://signal:8080"})
	assert.ErrorContains(t, err, "-publisher is required")

	_, err = ParseViewerFlags([]string{"-stream", ""})
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.yaml", configPath([]string{"-v", "-config", "a.yaml"}))
	assert.Equal(t, "b.yaml", configPath([]string{"--config=b.yaml"}))
	assert.Empty(t, configPath([]string{"--", "-config", "c.yaml"}))
	assert.Empty(t, configPath([]string{"-config"}))
}

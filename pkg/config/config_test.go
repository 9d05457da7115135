package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
motd: Hidden Valley
maxPlayers: 8
vanish:
  missingPlayer: fail
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Hidden Valley", cfg.MOTD)
	assert.Equal(t, 8, cfg.MaxPlayers)
	assert.Equal(t, "fail", cfg.Vanish.MissingPlayer)
	// untouched keys keep their defaults
	assert.Equal(t, ":25565", cfg.Address)
	assert.Equal(t, "essentials.db", cfg.Vanish.Database)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: \":1\"\n"), 0o644))

	t.Setenv("ESSENTIALS_ADDRESS", "127.0.0.1:25566")
	t.Setenv("ESSENTIALS_VANISH_MISSING_PLAYER", "fail")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:25566", cfg.Address)
	assert.Equal(t, "fail", cfg.Vanish.MissingPlayer)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxPlayers: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("ESSENTIALS_MAX_PLAYERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essentials.yaml")
	want := Default()
	want.MOTD = "written"
	require.NoError(t, Write(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

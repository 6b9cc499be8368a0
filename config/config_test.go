package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	m := NewManagerWithFs(afero.NewMemMapFs(), "/etc/aniview/config.toml")

	settings, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, Defaults(), settings)
	require.Equal(t, settings, m.Current())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := []byte("[server]\nbind = \"0.0.0.0:8080\"\n\n[log]\nlevel = \"debug\"\n")
	require.NoError(t, afero.WriteFile(fs, "/etc/aniview/config.toml", raw, 0644))

	m := NewManagerWithFs(fs, "/etc/aniview/config.toml")
	settings, err := m.Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", settings.Server.Bind)
	require.Equal(t, "debug", settings.Log.Level)
	require.Equal(t, Defaults().Account.BaseURL, settings.Account.BaseURL)
	require.Equal(t, Defaults().Log.MaxSizeMB, settings.Log.MaxSizeMB)
}

func TestLoadRejectsUnparseableFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/aniview/config.toml", []byte("not = [toml"), 0644))

	m := NewManagerWithFs(fs, "/etc/aniview/config.toml")
	_, err := m.Load()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerWithFs(fs, "/home/u/.config/aniview/config.toml")

	settings := Defaults()
	settings.Server.Bind = "127.0.0.1:9000"
	settings.Catalog.BaseURL = "http://localhost:9090/v4"
	require.NoError(t, m.Save(settings))

	reloaded, err := NewManagerWithFs(fs, "/home/u/.config/aniview/config.toml").Load()
	require.NoError(t, err)
	require.Equal(t, settings, reloaded)
}

func TestSaveFillsDefaults(t *testing.T) {
	m := NewManagerWithFs(afero.NewMemMapFs(), "/config.toml")

	require.NoError(t, m.Save(Settings{}))
	require.Equal(t, Defaults().Server.Bind, m.Current().Server.Bind)
	require.Equal(t, Defaults().Log.Level, m.Current().Log.Level)
}

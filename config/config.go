// Package config loads and persists AniView settings from a TOML file,
// falling back to defaults when the file is missing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Settings is the full application configuration.
type Settings struct {
	Server  ServerSettings  `toml:"server"`
	Account AccountSettings `toml:"account"`
	Catalog CatalogSettings `toml:"catalog"`
	Storage StorageSettings `toml:"storage"`
	Log     LogSettings     `toml:"log"`
}

// ServerSettings configures the HTTP surface for the view layer.
type ServerSettings struct {
	Bind string `toml:"bind"`
}

// AccountSettings points at the remote account service.
type AccountSettings struct {
	BaseURL string `toml:"base_url"`
}

// CatalogSettings points at the catalog read API; empty selects the public
// API.
type CatalogSettings struct {
	BaseURL string `toml:"base_url"`
}

// StorageSettings configures the local session store.
type StorageSettings struct {
	DatabasePath string `toml:"database_path"`
}

// LogSettings configures structured logging and rotation.
type LogSettings struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	return Settings{
		Server:  ServerSettings{Bind: "127.0.0.1:3001"},
		Account: AccountSettings{BaseURL: "http://localhost:4000"},
		Storage: StorageSettings{DatabasePath: defaultDataPath("aniview.db")},
		Log: LogSettings{
			File:       defaultDataPath("aniview.log"),
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}

// Manager owns the settings file. The filesystem is abstracted so tests can
// run against an in-memory fs.
type Manager struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	settings Settings
}

// NewManager creates a manager reading from the OS filesystem.
func NewManager(path string) *Manager {
	return NewManagerWithFs(afero.NewOsFs(), path)
}

// NewManagerWithFs creates a manager on the given filesystem.
func NewManagerWithFs(fs afero.Fs, path string) *Manager {
	return &Manager{
		fs:       fs,
		path:     path,
		settings: Defaults(),
	}
}

// Load reads the settings file. A missing file yields defaults; a present
// but unparseable file is an error so typos do not silently reset settings.
func (m *Manager) Load() (Settings, error) {
	settings := Defaults()

	raw, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.setCurrent(settings)
			return settings, nil
		}
		return Settings{}, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}
	fillDefaults(&settings)

	m.setCurrent(settings)
	return settings, nil
}

// Current returns the last loaded settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Save writes settings to the config file, creating directories as needed.
func (m *Manager) Save(settings Settings) error {
	fillDefaults(&settings)

	raw, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := afero.WriteFile(m.fs, m.path, raw, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	m.setCurrent(settings)
	return nil
}

func (m *Manager) setCurrent(settings Settings) {
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
}

func fillDefaults(settings *Settings) {
	defaults := Defaults()
	if strings.TrimSpace(settings.Server.Bind) == "" {
		settings.Server.Bind = defaults.Server.Bind
	}
	if strings.TrimSpace(settings.Account.BaseURL) == "" {
		settings.Account.BaseURL = defaults.Account.BaseURL
	}
	if strings.TrimSpace(settings.Storage.DatabasePath) == "" {
		settings.Storage.DatabasePath = defaults.Storage.DatabasePath
	}
	if strings.TrimSpace(settings.Log.File) == "" {
		settings.Log.File = defaults.Log.File
	}
	if strings.TrimSpace(settings.Log.Level) == "" {
		settings.Log.Level = defaults.Log.Level
	}
	if settings.Log.MaxSizeMB <= 0 {
		settings.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
	if settings.Log.MaxBackups < 0 {
		settings.Log.MaxBackups = defaults.Log.MaxBackups
	}
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "share", "aniview", name)
}

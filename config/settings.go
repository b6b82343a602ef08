package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Metadata MetadataSettings `json:"metadata"`
	Cache    CacheSettings    `json:"cache"`
	Database DatabaseSettings `json:"database"`
	Auth     AuthSettings     `json:"auth"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
	// ProbeOrder controls which TMDB detail endpoint the importer tries
	// first when resolving an unknown id: "movie" or "tv".
	ProbeOrder string `json:"probeOrder,omitempty"`
}

type CacheSettings struct {
	Directory        string `json:"directory"`
	SearchTTLSeconds int    `json:"searchTtlSeconds"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

type AuthSettings struct {
	StorageDirectory    string `json:"storageDirectory"`
	SessionDurationDays int    `json:"sessionDurationDays"`
}

// LogConfig represents log file rotation configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8000},
		Metadata: MetadataSettings{TMDBAPIKey: "", Language: "en-US", ProbeOrder: "movie"},
		Cache:    CacheSettings{Directory: "cache", SearchTTLSeconds: 3600},
		Database: DatabaseSettings{Path: "cache/moviemate.db"},
		Auth:     AuthSettings{StorageDirectory: "cache/auth", SessionDurationDays: 30},
		Log: LogConfig{
			File:       "",
			Level:      "info",
			MaxSize:    20,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for configs that predate newer fields
	if strings.TrimSpace(s.Metadata.Language) == "" {
		s.Metadata.Language = "en-US"
	}
	if strings.TrimSpace(s.Metadata.ProbeOrder) == "" {
		s.Metadata.ProbeOrder = "movie"
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = "cache"
	}
	if s.Cache.SearchTTLSeconds <= 0 {
		s.Cache.SearchTTLSeconds = 3600
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = "cache/moviemate.db"
	}
	if strings.TrimSpace(s.Auth.StorageDirectory) == "" {
		s.Auth.StorageDirectory = "cache/auth"
	}
	if s.Auth.SessionDurationDays <= 0 {
		s.Auth.SessionDurationDays = 30
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

// Package settings persists per-pilot preferences between sessions.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
)

const settingsFile = "settings.json"

// Settings holds everything the viewer remembers across runs.
type Settings struct {
	PilotID       string               `json:"pilot_id,omitempty"`
	HomeBase      string               `json:"home_base,omitempty"`
	HomeTimezone  string               `json:"home_timezone,omitempty"`
	ConfigPreset  string               `json:"config_preset,omitempty"`
	CrewSet       string               `json:"crew_set,omitempty"`
	CrewOverrides roster.CrewOverrides `json:"crew_overrides,omitempty"`
	LastRosterDir string               `json:"last_roster_dir,omitempty"`
	ServiceURL    string               `json:"service_url,omitempty"`
}

// Store reads and writes Settings at a fixed path.
type Store struct {
	logger *slog.Logger
	path   string
}

// NewStore creates a Store rooted at dir. An empty dir resolves to
// fatigueviz/ under the user config directory.
func NewStore(logger *slog.Logger, dir string) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		dir = filepath.Join(base, "fatigueviz")
	}
	return &Store{logger: logger, path: filepath.Join(dir, settingsFile)}, nil
}

// Path reports where settings are stored.
func (s *Store) Path() string {
	return s.path
}

// Load reads settings from disk. A missing file is not an error and yields
// zero-value settings; a corrupt file is logged and likewise discarded so a
// bad write never wedges startup.
func (s *Store) Load() (Settings, error) {
	var out Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("reading settings: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("discarding corrupt settings file", "path", s.path, "error", err)
		return Settings{}, nil
	}
	return out, nil
}

// Save writes settings atomically via a temp file and rename, so a crash
// mid-write leaves the previous file intact.
func (s *Store) Save(settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), settingsFile+".*")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings file: %w", err)
	}
	s.logger.Debug("saved settings", "path", s.path)
	return nil
}

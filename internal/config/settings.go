package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the settings file inside XDGConfigDir.
const SettingsFileName = "settings.yaml"

// Settings is the state remembered between runs.
type Settings struct {
	// DefaultDirectory is the absolute path images are saved to when no
	// directory is given. Empty means no default.
	DefaultDirectory string `yaml:"defaultDirectory,omitempty"`
}

// SettingsPath returns the default settings file location.
// On Linux: ~/.config/znacky/settings.yaml
func SettingsPath() string {
	return filepath.Join(XDGConfigDir(), SettingsFileName)
}

// LoadSettings reads the settings file at path. A missing file or key is
// not an error; it yields empty Settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &s, nil
}

// SaveSettings writes s to path, creating parent directories as needed.
// The file is replaced atomically so a crash never leaves it half written.
func SaveSettings(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, SettingsFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// SetDefaultDirectory stores dir as an absolute path after checking that it
// names an existing directory.
func (s *Settings) SetDefaultDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	s.DefaultDirectory = abs
	return nil
}

// ResolveTargetDir returns the download directory for this run: the
// explicit dir if set, otherwise the default directory from settings.
// The result may be empty; the downloader reports that as a configuration
// error.
func ResolveTargetDir(dir string, s *Settings) string {
	if dir != "" {
		return dir
	}
	if s == nil {
		return ""
	}
	return s.DefaultDirectory
}

// Package plugin reads the plugin's metadata (version.mpl) and activation
// switch (plugin.ini).
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	MetadataFile = "version.mpl"
	SettingsFile = "plugin.ini"
	section      = "plugin"
)

var ErrMetadata = errors.New("plugin metadata")

type Metadata struct {
	Name        string
	Author      string
	URL         string
	Description string
	Version     string
}

type Settings struct {
	Active bool
}

// Defaults match what the host shows for a plugin that ships no metadata.
func DefaultMetadata() Metadata {
	return Metadata{
		Name:        "https://www.maddev.eu",
		Author:      "unknown",
		URL:         "https://www.maddev.eu",
		Description: "unknown",
		Version:     "unknown",
	}
}

// ParseMetadata reads the [plugin] section; missing keys keep their defaults.
func ParseMetadata(data []byte) (Metadata, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	m := DefaultMetadata()
	s := f.Section(section)
	m.Name = s.Key("pluginname").MustString(m.Name)
	m.Author = s.Key("author").MustString(m.Author)
	m.URL = s.Key("url").MustString(m.URL)
	m.Description = s.Key("description").MustString(m.Description)
	m.Version = s.Key("version").MustString(m.Version)
	return m, nil
}

// LoadMetadata falls back to DefaultMetadata when the file does not exist.
func LoadMetadata(dir string) (Metadata, error) {
	b, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return DefaultMetadata(), nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return ParseMetadata(b)
}

// LoadSettings treats a missing file as inactive.
func LoadSettings(dir string) (Settings, error) {
	b, err := os.ReadFile(filepath.Join(dir, SettingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	f, err := ini.Load(b)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	return Settings{Active: f.Section(section).Key("active").MustBool(false)}, nil
}

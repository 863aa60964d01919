package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultCheckInterval = 300

// ConfigStore persists Settings as a single YAML document. Every Load returns
// a fresh copy and every Save replaces the whole file.
type ConfigStore struct {
	path            string
	defaultInterval int
	mu              sync.Mutex
}

func NewConfigStore(path string, defaultInterval int) *ConfigStore {
	if defaultInterval < 1 {
		defaultInterval = DefaultCheckInterval
	}
	return &ConfigStore{
		path:            path,
		defaultInterval: defaultInterval,
	}
}

func (cs *ConfigStore) Load() (*Settings, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	settings, err := cs.parseConfig()
	if errors.Is(err, os.ErrNotExist) {
		settings = &Settings{CheckInterval: cs.defaultInterval, Feeds: []FeedConfig{}}
		if err := cs.write(settings); err != nil {
			return nil, err
		}
		slog.Info("Default configuration created", "path", cs.path)
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cs.path, err)
	}

	return settings, nil
}

func (cs *ConfigStore) Save(settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.write(settings)
}

func (cs *ConfigStore) parseConfig() (*Settings, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if settings.CheckInterval == 0 {
		settings.CheckInterval = cs.defaultInterval
	}
	if settings.Feeds == nil {
		settings.Feeds = []FeedConfig{}
	}

	return &settings, nil
}

func (cs *ConfigStore) write(settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cs.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(cs.path), ".config-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tmp.Name(), cs.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}

	return nil
}

func validateSettings(settings *Settings) error {
	if settings == nil {
		return fmt.Errorf("settings is nil")
	}

	if settings.CheckInterval < 1 {
		return fmt.Errorf("check interval must be at least 1 second")
	}

	ids := make(map[string]bool, len(settings.Feeds))
	for i, fc := range settings.Feeds {
		requiredFields := map[string]string{
			"feed id":  fc.ID,
			"feed URL": fc.URL,
		}
		for fieldName, fieldValue := range requiredFields {
			if fieldValue == "" {
				return fmt.Errorf("%s is required (feed at index %d)", fieldName, i)
			}
		}
		if ids[fc.ID] {
			return fmt.Errorf("duplicate feed id at index %d: %s", i, fc.ID)
		}
		ids[fc.ID] = true
	}

	return nil
}

// UnmarshalYAML treats a feed without an explicit enabled flag as enabled.
func (fc *FeedConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawFeedConfig FeedConfig
	raw := rawFeedConfig{Enabled: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*fc = FeedConfig(raw)
	return nil
}

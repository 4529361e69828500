package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flynn/json5"
)

func SaveToFile(profile *RadioProfile, path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadFromFile reads a profile. The file may use JSON5 syntax (comments,
// trailing commas) so hand-edited profiles load as well.
func LoadFromFile(path string) (*RadioProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile RadioProfile
	if err := json5.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	return &profile, nil
}

func GetConfigPath(serial string) string {
	return filepath.Join("etc", "crazyradios", fmt.Sprintf("%s.json", serial))
}

// Package settings persists user-editable dispatch settings as JSON.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Batch size bounds enforced on save.
const (
	MinBatchSize = 1
	MaxBatchSize = 50
)

// Settings holds the credentials and pacing knobs editable from the UI.
type Settings struct {
	AWSRegion           string `json:"awsRegion"`
	AWSAccessKey        string `json:"awsAccessKey"`
	AWSSecretKey        string `json:"awsSecretKey"`
	BatchSize           int    `json:"batchSize"`
	DelayBetweenBatches int    `json:"delayBetweenBatches"`
}

// Default returns the settings used before any are saved.
func Default() Settings {
	return Settings{
		AWSRegion:           "us-east-1",
		BatchSize:           10,
		DelayBetweenBatches: 1,
	}
}

// Validate checks the settings a client submitted.
// POST: nil when the settings are storable
func (s Settings) Validate() error {
	if strings.TrimSpace(s.AWSRegion) == "" {
		return errors.New("AWS region is required")
	}
	if strings.TrimSpace(s.AWSAccessKey) == "" {
		return errors.New("AWS access key is required")
	}
	if strings.TrimSpace(s.AWSSecretKey) == "" {
		return errors.New("AWS secret key is required")
	}
	if s.BatchSize < MinBatchSize || s.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between %d and %d", MinBatchSize, MaxBatchSize)
	}
	if s.DelayBetweenBatches < 0 {
		return errors.New("delay between batches must not be negative")
	}
	return nil
}

// MaskedSecret returns the secret key with everything past the first
// four characters replaced by stars, for display in the settings form.
func (s Settings) MaskedSecret() string {
	if len(s.AWSSecretKey) <= 4 {
		return s.AWSSecretKey
	}
	return s.AWSSecretKey[:4] + strings.Repeat("*", len(s.AWSSecretKey)-4)
}

// FileStore reads and writes settings at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given settings file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the settings file, layering stored values over defaults.
// POST: A missing file yields Default() without error
func (f *FileStore) Load() (Settings, error) {
	s := Default()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save validates and writes the settings file.
func (f *FileStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Package config resolves the effective runtime configuration from the
// settings file and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/settings"
)

// Known email providers.
const (
	ProviderSES    = "ses"
	ProviderResend = "resend"
	ProviderNoop   = "noop"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Region              string
	AccessKey           string
	SecretKey           string
	Provider            string
	ResendAPIKey        string
	BatchSize           int
	DelayBetweenBatches int
}

// Defaults returns the configuration used when nothing is set anywhere.
func Defaults() Config {
	return Config{
		Region:              "us-east-1",
		Provider:            ProviderSES,
		BatchSize:           10,
		DelayBetweenBatches: 1,
	}
}

// Resolve layers the environment over stored settings over defaults.
// PRE: s comes from the settings file store
// POST: Returns a validated configuration; the environment wins on conflict
func Resolve(s settings.Settings) (Config, error) {
	cfg := Defaults()
	if s.AWSRegion != "" {
		cfg.Region = s.AWSRegion
	}
	cfg.AccessKey = s.AWSAccessKey
	cfg.SecretKey = s.AWSSecretKey
	if s.BatchSize != 0 {
		cfg.BatchSize = s.BatchSize
	}
	cfg.DelayBetweenBatches = s.DelayBetweenBatches

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("SENDMAIL_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.ResendAPIKey = v
	}

	if cfg.BatchSize < settings.MinBatchSize || cfg.BatchSize > settings.MaxBatchSize {
		return Config{}, fmt.Errorf("batch size %d out of range [%d, %d]", cfg.BatchSize, settings.MinBatchSize, settings.MaxBatchSize)
	}
	if cfg.DelayBetweenBatches < 0 {
		return Config{}, fmt.Errorf("negative delay between batches: %d", cfg.DelayBetweenBatches)
	}
	switch cfg.Provider {
	case ProviderSES, ProviderResend, ProviderNoop:
	default:
		return Config{}, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
	return cfg, nil
}

// Delay returns the inter-batch delay as a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayBetweenBatches) * time.Second
}

// Configured reports whether the active provider has the credentials it
// needs to send.
func (c Config) Configured() bool {
	switch c.Provider {
	case ProviderSES:
		return c.Region != "" && c.AccessKey != "" && c.SecretKey != ""
	case ProviderResend:
		return c.ResendAPIKey != ""
	default:
		return true
	}
}

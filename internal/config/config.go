// Package config loads process configuration from an optional config file and
// PRNOTIFY_ environment variables. User preferences are not configuration;
// they live in the settings store.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable key, with dots
// replaced by underscores (sensor.interval => PRNOTIFY_SENSOR_INTERVAL).
const EnvPrefix = "PRNOTIFY"

// Config holds the process configuration.
type Config struct {
	DBPath           string        `mapstructure:"db_path"`
	ListenAddr       string        `mapstructure:"listen_addr"`
	SecretKeyHex     string        `mapstructure:"secret_key"`
	PruneSchedule    string        `mapstructure:"prune_schedule"`
	LedgerMaxAgeDays int           `mapstructure:"ledger_max_age_days"`
	Sensor           SensorConfig  `mapstructure:"sensor"`
	Sink             SinkConfig    `mapstructure:"sink"`
	GitHub           GitHubConfig  `mapstructure:"github"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// SensorConfig controls microphone presence sampling. A nil Command selects
// the platform default; an empty non-nil Command disables probing.
type SensorConfig struct {
	Command  []string      `mapstructure:"command"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SinkConfig holds the notification sink commands. A nil command selects the
// platform default (the native notification service for toasts); an empty
// non-nil command disables the sink.
type SinkConfig struct {
	SoundCommand  []string      `mapstructure:"sound_command"`
	ToastCommand  []string      `mapstructure:"toast_command"`
	SpeechCommand []string      `mapstructure:"speech_command"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// GitHubConfig points the PR source at GitHub or a GitHub Enterprise API.
type GitHubConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from configPath (optional) and the environment.
// A missing config file is not an error; a malformed one is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	setDefaults(v)
	bindOptional(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Sensor.Command = commandOrNil(v, "sensor.command")
	cfg.Sink.SoundCommand = commandOrNil(v, "sink.sound_command")
	cfg.Sink.ToastCommand = commandOrNil(v, "sink.toast_command")
	cfg.Sink.SpeechCommand = commandOrNil(v, "sink.speech_command")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SecretKey decodes SecretKeyHex. It returns nil when no key is configured,
// which leaves token encryption unavailable.
func (c *Config) SecretKey() ([]byte, error) {
	if c.SecretKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SecretKeyHex)
	if err != nil {
		return nil, fmt.Errorf("secret_key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secret_key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// LedgerMaxAge converts LedgerMaxAgeDays to a duration.
func (c *Config) LedgerMaxAge() time.Duration {
	return time.Duration(c.LedgerMaxAgeDays) * 24 * time.Hour
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.LedgerMaxAgeDays <= 0 {
		return fmt.Errorf("ledger_max_age_days must be positive, got %d", c.LedgerMaxAgeDays)
	}
	if _, err := c.SecretKey(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "prnotify.db")
	v.SetDefault("listen_addr", "127.0.0.1:7788")
	v.SetDefault("secret_key", "")
	v.SetDefault("prune_schedule", "@every 6h")
	v.SetDefault("ledger_max_age_days", 30)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("sensor.interval", 5*time.Second)
	v.SetDefault("sensor.timeout", 4*time.Second)
	v.SetDefault("sink.timeout", 30*time.Second)

	v.SetDefault("github.base_url", "")
	v.SetDefault("github.timeout", 30*time.Second)
}

// bindOptional registers keys without defaults so AutomaticEnv picks them up
// during Unmarshal.
func bindOptional(v *viper.Viper) {
	for _, key := range []string{"sensor.command", "sink.sound_command", "sink.toast_command", "sink.speech_command"} {
		_ = v.BindEnv(key)
	}
}

// commandOrNil returns nil for an unset key so the caller can apply the
// platform default. Environment values are split on whitespace.
func commandOrNil(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	cmd := v.GetStringSlice(key)
	if cmd == nil {
		return []string{}
	}
	return cmd
}

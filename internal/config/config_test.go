package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every PRNOTIFY_ env var that Load() reads.
var allConfigKeys = []string{
	"PRNOTIFY_DB_PATH",
	"PRNOTIFY_LISTEN_ADDR",
	"PRNOTIFY_SECRET_KEY",
	"PRNOTIFY_PRUNE_SCHEDULE",
	"PRNOTIFY_LEDGER_MAX_AGE_DAYS",
	"PRNOTIFY_SHUTDOWN_TIMEOUT",
	"PRNOTIFY_SENSOR_COMMAND",
	"PRNOTIFY_SENSOR_INTERVAL",
	"PRNOTIFY_SENSOR_TIMEOUT",
	"PRNOTIFY_SINK_SOUND_COMMAND",
	"PRNOTIFY_SINK_TOAST_COMMAND",
	"PRNOTIFY_SINK_SPEECH_COMMAND",
	"PRNOTIFY_SINK_TIMEOUT",
	"PRNOTIFY_GITHUB_BASE_URL",
	"PRNOTIFY_GITHUB_TIMEOUT",
}

// isolateConfigEnv saves and unsets all PRNOTIFY_ env vars so tests don't
// inherit values from the host environment (e.g. a running daemon).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "prnotify.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:7788", cfg.ListenAddr)
	assert.Equal(t, "@every 6h", cfg.PruneSchedule)
	assert.Equal(t, 30, cfg.LedgerMaxAgeDays)
	assert.Equal(t, 30*24*time.Hour, cfg.LedgerMaxAge())
	assert.Equal(t, 5*time.Second, cfg.Sensor.Interval)
	assert.Equal(t, 4*time.Second, cfg.Sensor.Timeout)
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
	assert.Empty(t, cfg.GitHub.BaseURL)
	assert.Nil(t, cfg.Sensor.Command, "unset command selects the platform default")
	assert.Nil(t, cfg.Sink.SoundCommand)

	key, err := cfg.SecretKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoad_Env(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRNOTIFY_DB_PATH", "/tmp/test.db")
	t.Setenv("PRNOTIFY_LISTEN_ADDR", "127.0.0.1:9090")
	t.Setenv("PRNOTIFY_LEDGER_MAX_AGE_DAYS", "7")
	t.Setenv("PRNOTIFY_SENSOR_INTERVAL", "10s")
	t.Setenv("PRNOTIFY_GITHUB_BASE_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("PRNOTIFY_SINK_SPEECH_COMMAND", "espeak {text}")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Equal(t, 7, cfg.LedgerMaxAgeDays)
	assert.Equal(t, 10*time.Second, cfg.Sensor.Interval)
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHub.BaseURL)
	assert.Equal(t, []string{"espeak", "{text}"}, cfg.Sink.SpeechCommand)
}

func TestLoad_EmptyCommandDisables(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRNOTIFY_SENSOR_COMMAND", "")

	cfg, err := Load("")

	require.NoError(t, err)
	require.NotNil(t, cfg.Sensor.Command)
	assert.Empty(t, cfg.Sensor.Command)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)

	path := filepath.Join(t.TempDir(), "prnotify.yaml")
	content := strings.Join([]string{
		"db_path: /var/lib/prnotify/state.db",
		"prune_schedule: \"@daily\"",
		"sensor:",
		"  command: [\"sh\", \"-c\", \"echo false\"]",
		"  timeout: 2s",
		"sink:",
		"  toast_command: []",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/prnotify/state.db", cfg.DBPath)
	assert.Equal(t, "@daily", cfg.PruneSchedule)
	assert.Equal(t, []string{"sh", "-c", "echo false"}, cfg.Sensor.Command)
	assert.Equal(t, 2*time.Second, cfg.Sensor.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Sensor.Interval)
	require.NotNil(t, cfg.Sink.ToastCommand)
	assert.Empty(t, cfg.Sink.ToastCommand)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateConfigEnv(t)

	path := filepath.Join(t.TempDir(), "prnotify.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: 127.0.0.1:1111\n"), 0o600))
	t.Setenv("PRNOTIFY_LISTEN_ADDR", "127.0.0.1:2222")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2222", cfg.ListenAddr)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "prnotify.db", cfg.DBPath)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolateConfigEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: [unclosed\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_SecretKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRNOTIFY_SECRET_KEY", strings.Repeat("ab", 32))

	cfg, err := Load("")
	require.NoError(t, err)

	key, err := cfg.SecretKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, byte(0xab), key[0])
}

func TestLoad_InvalidSecretKey(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not hex", strings.Repeat("zz", 32)},
		{"too short", strings.Repeat("ab", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("PRNOTIFY_SECRET_KEY", tt.value)

			_, err := Load("")
			assert.ErrorContains(t, err, "secret_key")
		})
	}
}

func TestLoad_InvalidLedgerMaxAge(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PRNOTIFY_LEDGER_MAX_AGE_DAYS", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "ledger_max_age_days")
}

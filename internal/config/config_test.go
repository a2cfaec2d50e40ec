package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
database:
  host: db.internal
  password: secret
auth:
  jwt_secret: a-very-long-test-secret
clinic:
  name: Riverside
  timezone: America/Chicago
sweep:
  interval: 5m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Notification.EmailTimeout)
	assert.True(t, cfg.Notification.ReminderEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Notification.ReminderInterval)
	assert.Equal(t, "practice:realtime", cfg.Realtime.Channel)
	assert.Equal(t, "Riverside", cfg.Clinic.Name)
	assert.Equal(t, "America/Chicago", cfg.Location().String())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PRACTICE_DATABASE_HOST", "override.internal")
	t.Setenv("PRACTICE_SWEEP_INTERVAL", "30m")
	t.Setenv("PRACTICE_RATE_LIMIT_BURST", "99")
	t.Setenv("PRACTICE_DISCHARGE_AUTO_DISCHARGE_ON_GOAL", "true")
	t.Setenv("PRACTICE_NOTIFICATION_PREFERENCE_CACHE_TTL", "1m")
	t.Setenv("PRACTICE_NOTIFICATION_REMINDER_INTERVAL", "2m")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 99, cfg.RateLimit.Burst)
	assert.True(t, cfg.Discharge.AutoDischargeOnGoal)
	assert.Equal(t, time.Minute, cfg.Notification.PreferenceCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Notification.ReminderInterval)
	// untouched values survive the overlay
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "short jwt secret",
			body: "auth:\n  jwt_secret: short\n",
		},
		{
			name: "unknown time zone",
			body: "auth:\n  jwt_secret: a-very-long-test-secret\nclinic:\n  timezone: Mars/Olympus\n",
		},
		{
			name: "smtp enabled without host",
			body: "auth:\n  jwt_secret: a-very-long-test-secret\nsmtp:\n  enabled: true\n  from_address: a@b.co\n",
		},
		{
			name: "bad log level",
			body: "auth:\n  jwt_secret: a-very-long-test-secret\nlog:\n  level: loud\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestSecurityConfig_AllowsAnyOrigin(t *testing.T) {
	assert.False(t, SecurityConfig{AllowedOrigins: []string{"https://a.example"}}.AllowsAnyOrigin())
	assert.True(t, SecurityConfig{AllowedOrigins: []string{"https://a.example", " * "}}.AllowsAnyOrigin())
}

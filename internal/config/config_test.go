package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("APP_ENV", "test")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", c.HTTPAddr)
	assert.Equal(t, "python bot.py", c.DefaultStartCommand)
	assert.Equal(t, "python:3.9-slim", c.BaseImage)
	assert.Equal(t, time.Second, c.PollInterval)
	assert.Equal(t, 10*time.Second, c.StopTimeout)
	assert.Zero(t, c.BuildTimeout)
	assert.True(t, c.PinRevision)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("BUILD_TIMEOUT", "20m")
	t.Setenv("RUN_TIMEOUT", "1m")
	t.Setenv("PIN_REVISION", "false")
	t.Setenv("IDENTITY_HEADER", "X-Forwarded-For")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", c.HTTPAddr)
	assert.Equal(t, 20*time.Minute, c.BuildTimeout)
	assert.Equal(t, time.Minute, c.RunTimeout)
	assert.False(t, c.PinRevision)
	assert.Equal(t, "X-Forwarded-For", c.IdentityHeader)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveIntervals(t *testing.T) {
	for key, value := range map[string]string{
		"HEARTBEAT_INTERVAL": "-1s",
		"POLL_INTERVAL":      "0s",
		"SHUTDOWN_TIMEOUT":   "-5s",
	} {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("APP_ENV", "test")
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv("TRENDS_LOGIN_IDENTIFIER", "me@example.com")
	t.Setenv("TRENDS_LOGIN_USERNAME", "me")
	t.Setenv("TRENDS_LOGIN_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRENDS_DATABASE_URL", "sqlite://trends.db")
	setCredentials(t)

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, ProfileHeadless, cfg.Browser.Profile)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 9222, cfg.Browser.DebugPort)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, 60*time.Second, cfg.Login.StepTimeout)
	assert.Equal(t, 6, cfg.Login.MaxTrends)
	assert.True(t, cfg.Login.SkipOptionalSecondary)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORS.AllowMethods)
}

func TestLoad_InteractiveProfile(t *testing.T) {
	t.Setenv("TRENDS_PROFILE", ProfileInteractive)

	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.Login.StepTimeout)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("TRENDS_STEP_TIMEOUT", "3s")
	t.Setenv("TRENDS_API_KEYS", "a, b,,c")

	cfg := Load()
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Login.StepTimeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)

	t.Setenv("TRENDS_PORT", "7100")
	assert.Equal(t, 7100, Load().Server.Port)
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Setenv("TRENDS_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRENDS_DATABASE_URL")
	assert.Contains(t, err.Error(), "TRENDS_LOGIN_PASSWORD")
}

func TestValidate_UnknownProfile(t *testing.T) {
	t.Setenv("TRENDS_DATABASE_URL", "sqlite://trends.db")
	setCredentials(t)
	t.Setenv("TRENDS_PROFILE", "turbo")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRENDS_PROFILE")
}

func TestValidate_MaxTrendsCapped(t *testing.T) {
	t.Setenv("TRENDS_DATABASE_URL", "sqlite://trends.db")
	setCredentials(t)

	t.Setenv("TRENDS_MAX_TRENDS", "9")
	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRENDS_MAX_TRENDS")

	t.Setenv("TRENDS_MAX_TRENDS", "3")
	assert.NoError(t, Load().Validate())
}

func TestValidate_SharedDebugPort(t *testing.T) {
	t.Setenv("TRENDS_DATABASE_URL", "sqlite://trends.db")
	setCredentials(t)
	t.Setenv("TRENDS_MAX_SESSIONS", "2")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRENDS_DEBUG_PORT")

	t.Setenv("TRENDS_DEBUG_PORT", "0")
	assert.NoError(t, Load().Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "astrobot-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "REDIS_ADDR", "GEMINI_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestParseTemplate(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := Parse(writeConfig(t, Template))
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.OrbDegrees())
	assert.Equal(t, []string{"Sun", "Moon", "Mercury", "Venus", "Mars"}, cfg.Chart.Bodies)
	assert.Equal(t, "porphyry", cfg.Chart.HouseSystem)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 1, cfg.Limits.ReportsPerDay)
	assert.True(t, cfg.WriteErrorLog)
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Parse(writeConfig(t, "chart:\n  orb: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, ":8080", cfg.Telegram.WebhookListen)
	assert.Equal(t, 5, cfg.Telegram.WebhookAttempts)
	assert.Equal(t, ProviderStatic, cfg.LLM.Provider)
	assert.Equal(t, DefaultNominatimURL, cfg.Geo.NominatimURL)
	assert.Equal(t, DefaultTimezoneURL, cfg.Geo.TimezoneURL)
	assert.Equal(t, "astrobot:", cfg.Store.KeyPrefix)
	assert.Equal(t, 8, cfg.Limits.MaxGlobalWorkers)
	assert.Len(t, cfg.Chart.Bodies, 5)
}

func TestParseOrbIsRequired(t *testing.T) {
	clearEnv(t)
	_, err := Parse(writeConfig(t, "chart:\n  bodies: [Sun, Moon]\n"))
	assert.ErrorIs(t, err, ErrOrbMissing)
}

func TestParseZeroOrbIsAllowed(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse(writeConfig(t, "chart:\n  orb: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.OrbDegrees())
}

func TestValidateRejects(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"negative orb":     "chart:\n  orb: -1\n",
		"house system":     "chart:\n  orb: 5\n  house_system: placidus\n",
		"duplicate body":   "chart:\n  orb: 5\n  bodies: [Sun, Sun]\n",
		"provider":         "chart:\n  orb: 5\nllm:\n  provider: claude\n",
		"missing api key":  "chart:\n  orb: 5\nllm:\n  provider: openai\n",
		"store backend":    "chart:\n  orb: 5\nstore:\n  backend: etcd\n",
		"redis needs addr": "chart:\n  orb: 5\nstore:\n  backend: redis\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestEnvOverridesRedisAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "redis:6380")
	cfg, err := Parse(writeConfig(t, "chart:\n  orb: 5\nstore:\n  backend: redis\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", cfg.Store.RedisAddr)
}

func TestIsAdmin(t *testing.T) {
	cfg := &AppConfig{Telegram: TelegramConfig{AdminIDs: []int64{42, 7}}}
	assert.True(t, cfg.IsAdmin(7))
	assert.False(t, cfg.IsAdmin(8))
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

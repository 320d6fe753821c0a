package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "SESSION_IDLE_TIMEOUT", "GEMINI_API_KEY", "GEMINI_OUTLINE_MODEL",
		"GEMINI_IMAGE_MODEL", "GEMINI_ANALYSIS_MODEL", "GEMINI_THINKING_BUDGET",
		"GEMINI_CONCURRENT_REQUESTS", "GENERATION_TIMEOUT", "MAX_UPLOAD_MB", "FRONTEND_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-3-pro-preview", cfg.GeminiOutlineModel)
	assert.Equal(t, "gemini-3-pro-image-preview", cfg.GeminiImageModel)
	assert.Equal(t, "gemini-3-pro-preview", cfg.GeminiAnalysisModel)
	assert.Equal(t, 32768, cfg.GeminiThinkingBudget)
	assert.Equal(t, 5, cfg.GeminiConcurrentReqs)
	assert.Equal(t, 5*time.Minute, cfg.GenerationTimeout)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, 50, cfg.MaxUploadMB)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("ENV", "production")
	t.Setenv("GEMINI_API_KEY", "AIza-server")
	t.Setenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")
	t.Setenv("GEMINI_THINKING_BUDGET", "0")
	t.Setenv("GEMINI_CONCURRENT_REQUESTS", "2")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("SESSION_IDLE_TIMEOUT", "0s")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "AIza-server", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiImageModel)
	assert.Equal(t, 0, cfg.GeminiThinkingBudget)
	assert.Equal(t, 2, cfg.GeminiConcurrentReqs)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, time.Duration(0), cfg.SessionIdleTimeout, "zero disables the session janitor")
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("MAX_UPLOAD_MB", "fifty")
	t.Setenv("GEMINI_CONCURRENT_REQUESTS", "many")
	t.Setenv("GENERATION_TIMEOUT", "300")
	t.Setenv("SESSION_IDLE_TIMEOUT", "-1h")

	cfg := Load()

	assert.Equal(t, 50, cfg.MaxUploadMB)
	assert.Equal(t, 5, cfg.GeminiConcurrentReqs)
	assert.Equal(t, 5*time.Minute, cfg.GenerationTimeout, "bare numbers are not durations")
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTimeout)
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", "")

	assert.PanicsWithValue(t, "required environment variable SESSION_SECRET is not set", func() { Load() })
}

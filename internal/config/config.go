package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Sessions
	SessionSecret      string
	SessionIdleTimeout time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiOutlineModel   string
	GeminiImageModel     string
	GeminiAnalysisModel  string
	GeminiThinkingBudget int
	GeminiConcurrentReqs int
	GenerationTimeout    time.Duration

	// Uploads
	MaxUploadMB int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		SessionSecret:        mustGetEnv("SESSION_SECRET"),
		SessionIdleTimeout:   getEnvAsDurationOrDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiOutlineModel:   getEnvOrDefault("GEMINI_OUTLINE_MODEL", "gemini-3-pro-preview"),
		GeminiImageModel:     getEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiAnalysisModel:  getEnvOrDefault("GEMINI_ANALYSIS_MODEL", "gemini-3-pro-preview"),
		GeminiThinkingBudget: getEnvAsIntOrDefault("GEMINI_THINKING_BUDGET", 32768),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GenerationTimeout:    getEnvAsDurationOrDefault("GENERATION_TIMEOUT", 5*time.Minute),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 50),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings such as "90s" or "2h".
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

// Package config loads sidecar settings from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the sidecar reads from its environment.
type Config struct {
	// ModelsDir overrides model asset resolution when non-empty.
	ModelsDir string

	// Device forces a compute device ("cpu", "cuda", "mps") instead of
	// auto-detection. Empty means auto.
	Device string

	// LogLevel is a logrus level name; diagnostics always go to stderr.
	LogLevel string

	// MaxLineBytes bounds a single request line. 0 means the protocol
	// default.
	MaxLineBytes int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; missing files are not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ModelsDir:    getEnv("STROBE_VISION_MODELS_DIR", ""),
		Device:       getEnv("STROBE_VISION_DEVICE", ""),
		LogLevel:     getEnv("STROBE_VISION_LOG_LEVEL", "info"),
		MaxLineBytes: getEnvAsInt("STROBE_VISION_MAX_LINE_BYTES", 0),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

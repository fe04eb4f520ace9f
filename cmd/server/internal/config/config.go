package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the unified server configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Log      LogConfig
	Security SecurityConfig
	Pipeline PipelineConfig
	Extract  ExtractConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// DataConfig holds data directory settings.
type DataConfig struct {
	RoomsDir         string
	FilterPolicyPath string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // optional rotated log file
}

// SecurityConfig holds authorization settings.
type SecurityConfig struct {
	JWTSecret          string
	AllowAnonymous     bool // dev only: skip token checks
	CORSAllowedOrigins []string
}

// PipelineConfig holds audio pipeline settings.
type PipelineConfig struct {
	TranscriberURL     string // empty selects the degraded mock transcriber
	TranscribeTimeout  time.Duration
	MaxChunksPerRoom   int64 // concurrent transcription cap per room
	ChunkWindowSeconds int   // nominal capture window, informational only
}

// ExtractConfig holds action item extraction settings.
type ExtractConfig struct {
	AnalyzerURL    string // empty selects the heuristic fallback analyzer
	ExtractTimeout time.Duration
}

// GlobalConfig is the process-wide configuration instance.
var GlobalConfig *Config

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Data: DataConfig{
			RoomsDir:         getEnv("ROOMS_DIR", "./data/rooms"),
			FilterPolicyPath: getEnv("FILTER_POLICY_PATH", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:          getEnv("ROOM_JWT_SECRET", ""),
			AllowAnonymous:     getEnvBool("ALLOW_ANONYMOUS", false),
			CORSAllowedOrigins: parseStringList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Pipeline: PipelineConfig{
			TranscriberURL:     getEnv("TRANSCRIBER_URL", ""),
			TranscribeTimeout:  getEnvDuration("TRANSCRIBE_TIMEOUT", 30*time.Second),
			MaxChunksPerRoom:   int64(getEnvInt("MAX_CHUNKS_PER_ROOM", 4)),
			ChunkWindowSeconds: getEnvInt("CHUNK_WINDOW_SECONDS", 5),
		},
		Extract: ExtractConfig{
			AnalyzerURL:    getEnv("ANALYZER_URL", ""),
			ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", 20*time.Second),
		},
	}

	GlobalConfig = cfg
	return cfg, nil
}

// ValidateConfig checks the configuration for deployment mistakes.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if !cfg.Security.AllowAnonymous {
		if cfg.Security.JWTSecret == "" {
			errs = append(errs, "ROOM_JWT_SECRET is required unless ALLOW_ANONYMOUS=true")
		} else if len(cfg.Security.JWTSecret) < 32 {
			errs = append(errs, "ROOM_JWT_SECRET must be at least 32 characters long")
		}
	}

	if cfg.Server.Env == "production" {
		if cfg.Security.AllowAnonymous {
			errs = append(errs, "ALLOW_ANONYMOUS must not be enabled in production")
		}
		if cfg.Pipeline.TranscriberURL == "" {
			errs = append(errs, "TRANSCRIBER_URL is required in production (mock transcriber is dev-only)")
		}
	}

	if cfg.Pipeline.MaxChunksPerRoom < 1 {
		errs = append(errs, "MAX_CHUNKS_PER_ROOM must be >= 1")
	}
	if cfg.Pipeline.TranscribeTimeout <= 0 {
		errs = append(errs, "TRANSCRIBE_TIMEOUT must be positive")
	}

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		errs = append(errs, fmt.Sprintf("PORT must be numeric, got %q", cfg.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

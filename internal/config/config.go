package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DataDir         string
	UploadDir       string
	DatabaseURL     string
	RateLimitPerMin int
	ShutdownTimeout time.Duration

	QueueBackend string
	QueueKey     string
	RedisAddr    string
	// MetricsPort is where cmd/worker exposes /metrics; empty disables it.
	MetricsPort string

	Archive Archive
}

// Archive configures the optional object-storage mirror.
type Archive struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether enough settings are present to reach a bucket.
func (a Archive) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() App {
	_ = godotenv.Load()

	cfg := App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8000"),
		DataDir:         getEnv("DATA_FOLDER", "data"),
		UploadDir:       getEnv("UPLOAD_FOLDER", "uploads"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		QueueBackend:    strings.ToLower(getEnv("QUEUE_BACKEND", "memory")),
		QueueKey:        getEnv("QUEUE_KEY", "facedata:images"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		MetricsPort:     getEnv("WORKER_METRICS_PORT", "9100"),
		Archive: Archive{
			Endpoint:  getEnv("ARCHIVE_ENDPOINT", ""),
			AccessKey: getEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey: getEnv("ARCHIVE_SECRET_KEY", ""),
			Bucket:    getEnv("ARCHIVE_BUCKET", "facedata"),
			UseSSL:    boolEnv("ARCHIVE_USE_SSL", false),
		},
	}
	switch cfg.QueueBackend {
	case "memory", "redis", "none":
	default:
		log.Printf("unknown QUEUE_BACKEND %q, using memory", cfg.QueueBackend)
		cfg.QueueBackend = "memory"
	}
	return cfg
}

// DatabaseDSN returns DATABASE_URL, or a SQLite file under the data root when unset.
func (a App) DatabaseDSN() string {
	if a.DatabaseURL != "" {
		return a.DatabaseURL
	}
	return filepath.Join(a.DataDir, "attendance.db")
}

// EnsureDirs creates the data and upload roots if they are missing.
func (a App) EnsureDirs() error {
	for _, dir := range []string{a.DataDir, a.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

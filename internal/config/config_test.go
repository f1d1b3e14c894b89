package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"DATA_FOLDER", "UPLOAD_FOLDER", "DATABASE_URL", "QUEUE_BACKEND", "HTTP_PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.DataDir != "data" || cfg.UploadDir != "uploads" {
		t.Errorf("unexpected dirs: %q %q", cfg.DataDir, cfg.UploadDir)
	}
	if cfg.QueueBackend != "memory" {
		t.Errorf("QueueBackend = %q, want memory", cfg.QueueBackend)
	}
	if cfg.HTTPPort != "8000" {
		t.Errorf("HTTPPort = %q, want 8000", cfg.HTTPPort)
	}
	if got, want := cfg.DatabaseDSN(), filepath.Join("data", "attendance.db"); got != want {
		t.Errorf("DatabaseDSN() = %q, want %q", got, want)
	}
	if cfg.Archive.Enabled() {
		t.Error("archive should be disabled without an endpoint")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_FOLDER", "/srv/faces")
	t.Setenv("UPLOAD_FOLDER", "/srv/previews")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("QUEUE_BACKEND", "REDIS")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ARCHIVE_ENDPOINT", "localhost:9000")
	t.Setenv("ARCHIVE_USE_SSL", "true")

	cfg := Load()

	if cfg.DataDir != "/srv/faces" || cfg.UploadDir != "/srv/previews" {
		t.Errorf("unexpected dirs: %q %q", cfg.DataDir, cfg.UploadDir)
	}
	if cfg.DatabaseDSN() != "postgres://u:p@localhost/db" {
		t.Errorf("DatabaseDSN() = %q", cfg.DatabaseDSN())
	}
	if cfg.RateLimitPerMin != 30 {
		t.Errorf("RateLimitPerMin = %d, want 30", cfg.RateLimitPerMin)
	}
	if cfg.QueueBackend != "redis" {
		t.Errorf("QueueBackend = %q, want redis", cfg.QueueBackend)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.ShutdownTimeout)
	}
	if !cfg.Archive.Enabled() || !cfg.Archive.UseSSL {
		t.Errorf("archive not configured: %+v", cfg.Archive)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("QUEUE_BACKEND", "kafka")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	t.Setenv("ARCHIVE_USE_SSL", "maybe")

	cfg := Load()

	if cfg.RateLimitPerMin != 120 {
		t.Errorf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
	if cfg.QueueBackend != "memory" {
		t.Errorf("QueueBackend = %q", cfg.QueueBackend)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.ShutdownTimeout)
	}
	if cfg.Archive.UseSSL {
		t.Error("UseSSL should fall back to false")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("UPLOAD_FOLDER", "")
	os.Unsetenv("UPLOAD_FOLDER")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("UPLOAD_FOLDER=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("UPLOAD_FOLDER") })

	cfg := Load()

	if cfg.UploadDir != "from-dotenv" {
		t.Errorf("UploadDir = %q, want from-dotenv", cfg.UploadDir)
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := App{DataDir: filepath.Join(root, "d", "nested"), UploadDir: filepath.Join(root, "u")}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.UploadDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PASSWORD", "USE_FACE_CROP", "ENFORCE_NOFACE", "SELECT_LARGEST_FACE", "THRESH", "FACE_MIN_SIZE", "FACE_SCALE", "FACE_NEIGHBORS", "FETCH_TIMEOUT", "MAX_UPLOAD_MB", "PROCESSING_WORKERS", "SESSION_TTL_HOURS"} {
		t.Setenv(key, "")
	}

	cfg := fromEnv()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.UseFaceCrop {
		t.Error("Face crop should be off by default")
	}
	if !cfg.EnforceNoFace {
		t.Error("NoFace enforcement should be on by default")
	}
	if !cfg.SelectLargestFace {
		t.Error("Largest face selection should be on by default")
	}
	if cfg.Threshold != 0 {
		t.Errorf("Threshold should be disabled by default, got %f", cfg.Threshold)
	}
	if cfg.FaceMinSize != 60 || cfg.FaceScale != 1.2 || cfg.FaceNeighbors != 4 {
		t.Errorf("Unexpected cascade defaults: %d %f %d", cfg.FaceMinSize, cfg.FaceScale, cfg.FaceNeighbors)
	}
	if cfg.FetchTimeout != 8*time.Second {
		t.Errorf("Expected 8s fetch timeout, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxUploadBytes != 16<<20 {
		t.Errorf("Expected 16MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ProcessingWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.ProcessingWorkers)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h sessions, got %v", cfg.SessionTTL)
	}
}

func TestLoad_SessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	a, b := fromEnv(), fromEnv()
	if len(a.SessionSecret) != 64 {
		t.Errorf("Expected a 32-byte hex secret, got %q", a.SessionSecret)
	}
	if a.SessionSecret == b.SessionSecret {
		t.Error("Generated secrets should differ between loads")
	}

	t.Setenv("SESSION_SECRET", "from-env")
	if got := fromEnv().SessionSecret; got != "from-env" {
		t.Errorf("Expected SESSION_SECRET to be used, got %q", got)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("USE_FACE_CROP", "yes")
	t.Setenv("ENFORCE_NOFACE", "off")
	t.Setenv("SELECT_LARGEST_FACE", "0")
	t.Setenv("THRESH", "0.65")
	t.Setenv("FACE_SCALE", "1.1")
	t.Setenv("DATABASE_URL", "postgres://localhost/detections")

	cfg := fromEnv()

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
	if !cfg.UseFaceCrop || cfg.EnforceNoFace || cfg.SelectLargestFace {
		t.Errorf("Policy flags not applied: crop=%v enforce=%v largest=%v", cfg.UseFaceCrop, cfg.EnforceNoFace, cfg.SelectLargestFace)
	}
	if cfg.Threshold != 0.65 {
		t.Errorf("Expected threshold 0.65, got %f", cfg.Threshold)
	}
	if cfg.FaceScale != 1.1 {
		t.Errorf("Expected scale 1.1, got %f", cfg.FaceScale)
	}
	if cfg.DatabaseURL == "" {
		t.Error("Expected database URL to be set")
	}
}

func TestThreshold_Invalid(t *testing.T) {
	for _, value := range []string{"None", "abc", "-0.5", "0", "1.5"} {
		t.Setenv("THRESH", value)
		if got := getEnvAsThreshold("THRESH"); got != 0 {
			t.Errorf("THRESH=%q should disable the threshold, got %f", value, got)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		def      bool
		expected bool
	}{
		{"1", false, true},
		{"TRUE", false, true},
		{"on", false, true},
		{"Yes", false, true},
		{"0", true, false},
		{"false", true, false},
		{"off", true, false},
		{"no", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		if got := ParseBool(tt.input, tt.def); got != tt.expected {
			t.Errorf("ParseBool(%q, %v) = %v, expected %v", tt.input, tt.def, got, tt.expected)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, ".env")
	if err := os.WriteFile(path, []byte("FACE_NEIGHBORS=7\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Setenv("FACE_NEIGHBORS", "")
	os.Unsetenv("FACE_NEIGHBORS")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.FaceNeighbors != 7 {
		t.Errorf("Expected 7 neighbors from .env, got %d", cfg.FaceNeighbors)
	}

	if _, err := LoadFile(filepath.Join(tempDir, "missing.env")); err == nil {
		t.Error("Expected error for missing .env file")
	}
}

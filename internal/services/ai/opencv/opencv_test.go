package opencv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"deepfake-detector/internal/services/ai"
)

func TestLoad_MissingModel(t *testing.T) {
	_, err := Load(LoaderConfig{ModelPath: "/nonexistent/detector.onnx", Workers: 1}, nopLogger{})
	if !errors.Is(err, ai.ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad, got %v", err)
	}
}

func TestLoad_ParamsWithoutBackbone(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "loader_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "head.json")
	content := `{"backbone.classifier.bias": {"shape": [2], "data": [0, 0]}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write checkpoint: %v", err)
	}

	_, err = Load(LoaderConfig{ModelPath: path, BackbonePath: filepath.Join(tempDir, "missing.onnx"), Workers: 1}, nopLogger{})
	if !errors.Is(err, ai.ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad, got %v", err)
	}
}

func TestResolveCascadePath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "cascade_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "faces.xml")
	if err := os.WriteFile(path, []byte("<opencv_storage/>"), 0644); err != nil {
		t.Fatalf("Failed to write cascade: %v", err)
	}

	got, err := ResolveCascadePath(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("Expected %s, got %s", path, got)
	}
}

func TestCascadeGate_NilIsUnavailable(t *testing.T) {
	var gate *CascadeGate
	_, err := gate.Detect(ai.RawImage{Pix: make([]uint8, 3), Width: 1, Height: 1})
	if !errors.Is(err, ai.ErrDetectorUnavailable) {
		t.Errorf("Expected ErrDetectorUnavailable, got %v", err)
	}
	if err := gate.Close(); err != nil {
		t.Errorf("Close on nil gate should be a no-op, got %v", err)
	}
}

func TestReadImage_Missing(t *testing.T) {
	if _, err := ReadImage("/nonexistent/photo.jpg"); !errors.Is(err, ai.ErrDecodeFailure) {
		t.Errorf("Expected ErrDecodeFailure, got %v", err)
	}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{})   {}

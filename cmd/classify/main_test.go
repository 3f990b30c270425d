package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/services/ai"
)

func TestRun_MissingModelReturnsError(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "classify_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := &config.Config{
		ModelPath:         filepath.Join(tempDir, "missing.onnx"),
		LogDirectory:      filepath.Join(tempDir, "logs"),
		ProcessingWorkers: 1,
	}

	err = run(context.Background(), cfg, []string{"a.jpg"})
	if err == nil {
		t.Fatal("Expected an error for a missing model")
	}
	if !strings.Contains(err.Error(), "failed to load model") {
		t.Errorf("Unexpected error: %v", err)
	}
	if !errors.Is(err, ai.ErrModelLoad) {
		t.Errorf("Expected ErrModelLoad in the chain, got %v", err)
	}
}

func TestImageRef_OpenCVFallback(t *testing.T) {
	opencvDecode = true
	defer func() { opencvDecode = false }()

	path := "/nonexistent/face.jpg"
	ref := imageRef(path)
	if ref.Path != path || ref.Image != nil {
		t.Errorf("Expected a path reference for the Go decoders, got %+v", ref)
	}
}

func TestClassifyAll_KeepsOrder(t *testing.T) {
	detector := ai.NewDetector(ai.DefaultOptions(), nil, nil, nil)
	paths := []string{"/nonexistent/a.jpg", "/nonexistent/b.jpg", "/nonexistent/c.jpg"}

	outcomes := classifyAll(context.Background(), detector, paths, 2)
	if len(outcomes) != len(paths) {
		t.Fatalf("Expected %d outcomes, got %d", len(paths), len(outcomes))
	}
	for i, out := range outcomes {
		if out.Source != paths[i] || out.Label != ai.LabelError {
			t.Errorf("Outcome %d: expected Error for %s, got %+v", i, paths[i], out)
		}
	}
}

package ai

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type mockGate struct {
	faces []FaceRegion
	err   error
	panic bool
	calls int
}

func (g *mockGate) Detect(img RawImage) ([]FaceRegion, error) {
	g.calls++
	if g.panic {
		panic("cascade exploded")
	}
	return g.faces, g.err
}

type mockEngine struct {
	mu    sync.Mutex
	probs ClassProbabilities
	err   error
	panic bool
	calls int
	last  PreparedInput
}

func (e *mockEngine) Predict(in PreparedInput) (ClassProbabilities, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = in
	if e.panic {
		panic("forward pass exploded")
	}
	if err := in.Validate(); err != nil {
		return ClassProbabilities{}, err
	}
	return e.probs, e.err
}

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (l *recordingLogger) Info(string, ...interface{}) {}

func (l *recordingLogger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, v...))
}

var oneFace = []FaceRegion{{X: 0, Y: 0, Width: 8, Height: 8}}

func imageRef(name string) ImageRef {
	img := solidImage(16, 16, 120, 80, 60)
	return ImageRef{Image: &img, Name: name}
}

func TestClassify_NoFaceSkipsInference(t *testing.T) {
	gate := &mockGate{}
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
	d := NewDetector(DefaultOptions(), gate, engine, nil)

	out := d.Classify(imageRef("empty.jpg"))
	if out.Label != LabelNoFace || out.Confidence != 0 {
		t.Errorf("Expected NoFace/0, got %s/%f", out.Label, out.Confidence)
	}
	if engine.calls != 0 {
		t.Errorf("Engine should not be called, got %d calls", engine.calls)
	}
}

func TestClassify_UnavailableGateIsNoFace(t *testing.T) {
	tests := []struct {
		name string
		gate FaceGate
	}{
		{"error", &mockGate{err: errors.New("cascade not loaded")}},
		{"panic", &mockGate{panic: true}},
		{"nil gate", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
			d := NewDetector(DefaultOptions(), tt.gate, engine, nil)

			out := d.Classify(imageRef("x.jpg"))
			if out.Label != LabelNoFace || out.Confidence != 0 {
				t.Errorf("Expected NoFace/0, got %s/%f", out.Label, out.Confidence)
			}
			if engine.calls != 0 {
				t.Errorf("Engine should not be called, got %d calls", engine.calls)
			}
		})
	}
}

func TestClassify_UnavailableGateWithoutEnforcement(t *testing.T) {
	opts := DefaultOptions()
	opts.EnforceNoFace = false
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.2, Real: 0.8}}
	d := NewDetector(opts, &mockGate{panic: true}, engine, nil)

	out := d.Classify(imageRef("x.jpg"))
	if out.Label != LabelReal {
		t.Errorf("Expected Real, got %s", out.Label)
	}
	if engine.calls != 1 {
		t.Errorf("Expected one engine call, got %d", engine.calls)
	}
}

func TestClassify_FakeAndReal(t *testing.T) {
	tests := []struct {
		name  string
		probs ClassProbabilities
		label Label
		score float64
	}{
		{"fake", ClassProbabilities{Fake: 0.83, Real: 0.17}, LabelFake, 0.83},
		{"real", ClassProbabilities{Fake: 0.08, Real: 0.92}, LabelReal, 0.92},
		{"tie", ClassProbabilities{Fake: 0.5, Real: 0.5}, LabelFake, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{probs: tt.probs}
			d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, engine, nil)

			out := d.Classify(imageRef("face.jpg"))
			if out.Label != tt.label {
				t.Errorf("Expected %s, got %s", tt.label, out.Label)
			}
			if math.Abs(out.Confidence-tt.score) > 1e-9 {
				t.Errorf("Expected confidence %f, got %f", tt.score, out.Confidence)
			}
			if engine.calls != 1 {
				t.Errorf("Expected one engine call, got %d", engine.calls)
			}
		})
	}
}

func TestClassify_Threshold(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.6
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.55, Real: 0.45}}
	d := NewDetector(opts, &mockGate{faces: oneFace}, engine, nil)

	out := d.Classify(imageRef("borderline.jpg"))
	if out.Label != LabelUncertain {
		t.Errorf("Expected Uncertain, got %s", out.Label)
	}
	if math.Abs(out.Confidence-0.55) > 1e-9 {
		t.Errorf("Expected confidence 0.55, got %f", out.Confidence)
	}
}

func TestClassify_ThresholdFavoringReal(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.6
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.42, Real: 0.58}}
	d := NewDetector(opts, &mockGate{faces: oneFace}, engine, nil)

	out := d.Classify(imageRef("borderline-real.jpg"))
	if out.Label != LabelUncertain {
		t.Errorf("Expected Uncertain, got %s", out.Label)
	}
	if math.Abs(out.Confidence-0.58) > 1e-9 {
		t.Errorf("Expected confidence 0.58, got %f", out.Confidence)
	}
}

func TestClassify_FullFrameIgnoresFaceLayout(t *testing.T) {
	// gradient so any crop would change the prepared tensor
	img := solidImage(32, 24, 0, 0, 0)
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			i := (y*32 + x) * 3
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = uint8(x*8), uint8(y*10), 128
		}
	}

	layouts := map[string][]FaceRegion{
		"one face": {{X: 2, Y: 2, Width: 6, Height: 6}},
		"three faces": {
			{X: 20, Y: 10, Width: 10, Height: 10},
			{X: 0, Y: 14, Width: 4, Height: 4},
			{X: 12, Y: 0, Width: 8, Height: 12},
		},
	}

	opts := DefaultOptions()
	opts.UseFaceCrop = false

	var first Outcome
	var firstData []float32
	for name, faces := range layouts {
		engine := &mockEngine{probs: ClassProbabilities{Fake: 0.64, Real: 0.36}}
		d := NewDetector(opts, &mockGate{faces: faces}, engine, nil)

		ref := img
		out := d.Classify(ImageRef{Image: &ref, Name: "frame.jpg"})
		if out.Label != LabelFake || math.Abs(out.Confidence-0.64) > 1e-9 {
			t.Errorf("%s: expected Fake/0.64, got %s/%f", name, out.Label, out.Confidence)
		}
		if engine.calls != 1 {
			t.Fatalf("%s: expected one engine call, got %d", name, engine.calls)
		}

		if firstData == nil {
			first, firstData = out, engine.last.Data
			continue
		}
		if out != first {
			t.Errorf("%s: outcome %+v differs from %+v", name, out, first)
		}
		if len(engine.last.Data) != len(firstData) {
			t.Fatalf("%s: tensor length %d differs from %d", name, len(engine.last.Data), len(firstData))
		}
		for i := range firstData {
			if engine.last.Data[i] != firstData[i] {
				t.Fatalf("%s: tensor differs at index %d", name, i)
			}
		}
	}
}

func TestClassify_EmptyFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "classify_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write empty file: %v", err)
	}

	gate := &mockGate{faces: oneFace}
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
	d := NewDetector(DefaultOptions(), gate, engine, nil)

	out := d.Classify(ImageRef{Path: path})
	want := Outcome{Label: LabelError, Confidence: 0, Source: path}
	if out != want {
		t.Errorf("Expected %+v, got %+v", want, out)
	}
	if gate.calls != 0 || engine.calls != 0 {
		t.Errorf("Nothing should run for an empty file (gate=%d, engine=%d)", gate.calls, engine.calls)
	}
}

func TestClassify_HugeDeclaredSize(t *testing.T) {
	gate := &mockGate{faces: oneFace}
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
	d := NewDetector(DefaultOptions(), gate, engine, nil)

	out := d.Classify(ImageRef{Data: pngHeader(1<<20, 1<<20), Name: "bomb.png"})
	if out.Label != LabelError || out.Confidence != 0 || out.Source != "bomb.png" {
		t.Errorf("Expected Error/0/bomb.png, got %+v", out)
	}
	if gate.calls != 0 {
		t.Errorf("Gate should not run, got %d calls", gate.calls)
	}
}

func TestClassify_EngineFailures(t *testing.T) {
	tests := []struct {
		name   string
		engine *mockEngine
	}{
		{"error", &mockEngine{err: fmt.Errorf("%w: forward failed", ErrInferenceFailure)}},
		{"panic", &mockEngine{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, tt.engine, nil)

			out := d.Classify(imageRef("face.jpg"))
			if out.Label != LabelError || out.Confidence != 0 {
				t.Errorf("Expected Error/0, got %s/%f", out.Label, out.Confidence)
			}
		})
	}
}

func TestClassify_NilEngine(t *testing.T) {
	d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, nil, nil)
	if out := d.Classify(imageRef("face.jpg")); out.Label != LabelError {
		t.Errorf("Expected Error, got %s", out.Label)
	}
}

func TestClassify_DecodeFailure(t *testing.T) {
	gate := &mockGate{faces: oneFace}
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
	d := NewDetector(DefaultOptions(), gate, engine, nil)

	out := d.Classify(ImageRef{Data: []byte("garbage"), Name: "broken.jpg"})
	if out.Label != LabelError || out.Confidence != 0 {
		t.Errorf("Expected Error/0, got %s/%f", out.Label, out.Confidence)
	}
	if out.Source != "broken.jpg" {
		t.Errorf("Expected source broken.jpg, got %q", out.Source)
	}
	if gate.calls != 0 || engine.calls != 0 {
		t.Errorf("Nothing should run after a decode failure (gate=%d, engine=%d)", gate.calls, engine.calls)
	}
}

func TestClassify_MissingFile(t *testing.T) {
	d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, &mockEngine{}, nil)
	out := d.Classify(ImageRef{Path: "/nonexistent/photo.png"})
	if out.Label != LabelError {
		t.Errorf("Expected Error, got %s", out.Label)
	}
	if out.Source != "/nonexistent/photo.png" {
		t.Errorf("Source should be the path, got %q", out.Source)
	}
}

func TestClassify_ShapeMismatchLoggedAsError(t *testing.T) {
	logger := &recordingLogger{}
	engine := &mockEngine{err: fmt.Errorf("%w: got 224x224", ErrShapeMismatch)}
	d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, engine, logger)

	if out := d.Classify(imageRef("face.jpg")); out.Label != LabelError {
		t.Errorf("Expected Error, got %s", out.Label)
	}
	if len(logger.errors) != 1 {
		t.Errorf("Expected one error log, got %v", logger.errors)
	}
}

func TestClassify_InferenceFailureLoggedAsWarning(t *testing.T) {
	logger := &recordingLogger{}
	engine := &mockEngine{err: fmt.Errorf("%w: net broke", ErrInferenceFailure)}
	d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, engine, logger)

	d.Classify(imageRef("face.jpg"))
	if len(logger.errors) != 0 {
		t.Errorf("Expected no error logs, got %v", logger.errors)
	}
	found := false
	for _, w := range logger.warnings {
		if strings.Contains(w, "net broke") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a warning mentioning the failure, got %v", logger.warnings)
	}
}

func TestClassify_SourcePreserved(t *testing.T) {
	d := NewDetector(DefaultOptions(), &mockGate{faces: oneFace}, &mockEngine{probs: ClassProbabilities{Fake: 0.3, Real: 0.7}}, nil)

	for _, name := range []string{"a.jpg", "uploads/2024-01-01/b.png", ""} {
		if out := d.Classify(imageRef(name)); out.Source != name {
			t.Errorf("Expected source %q, got %q", name, out.Source)
		}
	}
}

func TestClassify_CropSelectsFace(t *testing.T) {
	// left half red, right half blue
	img := solidImage(20, 10, 255, 0, 0)
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			i := (y*20 + x) * 3
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 255
		}
	}
	faces := []FaceRegion{
		{X: 0, Y: 0, Width: 4, Height: 4},
		{X: 10, Y: 0, Width: 10, Height: 10},
	}

	tests := []struct {
		name    string
		largest bool
		red     bool
	}{
		{"largest face is blue", true, false},
		{"first face is red", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.UseFaceCrop = true
			opts.SelectLargestFace = tt.largest
			engine := &mockEngine{probs: ClassProbabilities{Fake: 0.1, Real: 0.9}}
			d := NewDetector(opts, &mockGate{faces: faces}, engine, nil)

			ref := img
			if out := d.Classify(ImageRef{Image: &ref, Name: "two.jpg"}); out.Label != LabelReal {
				t.Fatalf("Expected Real, got %s", out.Label)
			}

			var want uint8
			if tt.red {
				want = 255
			}
			got := engine.last.Data[0]
			if math.Abs(float64(got-normalized(want, 0))) > 1e-2 {
				t.Errorf("Expected red channel %f, got %f", normalized(want, 0), got)
			}
		})
	}
}

func TestClassify_CropWithoutFaces(t *testing.T) {
	opts := DefaultOptions()
	opts.UseFaceCrop = true
	opts.EnforceNoFace = false
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.9, Real: 0.1}}
	d := NewDetector(opts, &mockGate{}, engine, nil)

	out := d.Classify(imageRef("none.jpg"))
	if out.Label != LabelNoFace {
		t.Errorf("Expected NoFace, got %s", out.Label)
	}
	if engine.calls != 0 {
		t.Errorf("Engine should not be called, got %d calls", engine.calls)
	}
}

func TestClassify_FullFrameWithoutEnforcement(t *testing.T) {
	opts := DefaultOptions()
	opts.EnforceNoFace = false
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.7, Real: 0.3}}
	d := NewDetector(opts, &mockGate{}, engine, nil)

	if out := d.Classify(imageRef("landscape.jpg")); out.Label != LabelFake {
		t.Errorf("Expected Fake, got %s", out.Label)
	}
	if engine.calls != 1 {
		t.Errorf("Expected one engine call, got %d", engine.calls)
	}
}

func TestClassify_Concurrent(t *testing.T) {
	engine := &mockEngine{probs: ClassProbabilities{Fake: 0.6, Real: 0.4}}
	d := NewDetector(DefaultOptions(), staticGate(oneFace), engine, nil)

	var wg sync.WaitGroup
	results := make([]Outcome, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Classify(imageRef(fmt.Sprintf("img-%d.jpg", i)))
		}(i)
	}
	wg.Wait()

	for i, out := range results {
		if out.Label != LabelFake {
			t.Errorf("Result %d: expected Fake, got %s", i, out.Label)
		}
		if out.Source != fmt.Sprintf("img-%d.jpg", i) {
			t.Errorf("Result %d: wrong source %q", i, out.Source)
		}
	}
}

// staticGate is a stateless gate safe for concurrent use.
type staticGate []FaceRegion

func (g staticGate) Detect(RawImage) ([]FaceRegion, error) {
	return g, nil
}

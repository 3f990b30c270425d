package ai

import (
	"errors"
	"fmt"
)

// Options are the policy switches, fixed at process start.
type Options struct {
	UseFaceCrop       bool    // crop to the selected face before inference
	EnforceNoFace     bool    // no usable face short-circuits to NoFace
	SelectLargestFace bool    // largest face instead of the first one
	Threshold         float64 // scores below it become Uncertain; <= 0 disables
}

// DefaultOptions matches the production deployment: full frame, NoFace
// enforced, largest face, no threshold.
func DefaultOptions() Options {
	return Options{
		UseFaceCrop:       false,
		EnforceNoFace:     true,
		SelectLargestFace: true,
	}
}

// Detector runs the detection pipeline. It holds no per-call state and can be
// shared by any number of goroutines.
type Detector struct {
	opts   Options
	gate   FaceGate
	prep   *Preprocessor
	engine Engine
	logger Logger
}

// NewDetector wires the pipeline. A nil gate behaves as an unavailable
// detector; a nil logger discards output.
func NewDetector(opts Options, gate FaceGate, engine Engine, logger Logger) *Detector {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Detector{
		opts:   opts,
		gate:   gate,
		prep:   NewPreprocessor(),
		engine: engine,
		logger: logger,
	}
}

// Options returns the policy the detector was built with.
func (d *Detector) Options() Options {
	return d.opts
}

// Classify never fails: every error or panic below it becomes an Error
// outcome with zero confidence.
func (d *Detector) Classify(ref ImageRef) (out Outcome) {
	source := ref.Source()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Classification of %s panicked: %v", source, r)
			out = errorOutcome(source)
		}
	}()

	result, err := d.classify(ref, source)
	if err != nil {
		if errors.Is(err, ErrShapeMismatch) {
			d.logger.Error("Classification of %s failed: %v", source, err)
		} else {
			d.logger.Warning("Classification of %s failed: %v", source, err)
		}
		return errorOutcome(source)
	}
	return result
}

func (d *Detector) classify(ref ImageRef, source string) (Outcome, error) {
	// Load
	img, err := ref.Decode()
	if err != nil {
		return Outcome{}, err
	}
	img = img.Upright()

	// FaceCheck
	faces, gateErr := d.detectFaces(img)
	if gateErr != nil {
		d.logger.Warning("Face check skipped for %s: %v", source, gateErr)
	}
	if d.opts.EnforceNoFace && (gateErr != nil || len(faces) == 0) {
		return noFaceOutcome(source), nil
	}

	// RegionSelect
	target := img
	if d.opts.UseFaceCrop {
		face, ok := SelectFace(faces, d.opts.SelectLargestFace)
		if !ok {
			return noFaceOutcome(source), nil
		}
		target, err = img.Crop(face)
		if err != nil {
			return Outcome{}, err
		}
	}

	// Prepare
	input, err := d.prep.Prepare(target)
	if err != nil {
		return Outcome{}, err
	}

	// Infer
	if d.engine == nil {
		return Outcome{}, fmt.Errorf("%w: no engine loaded", ErrInferenceFailure)
	}
	probs, err := d.engine.Predict(input)
	if err != nil {
		return Outcome{}, err
	}

	// Resolve
	label, score := Resolve(probs, d.opts.Threshold)
	return Outcome{Label: label, Confidence: score, Source: source}, nil
}

// detectFaces isolates the gate: any failure, including a panic, reads as
// ErrDetectorUnavailable.
func (d *Detector) detectFaces(img RawImage) (faces []FaceRegion, err error) {
	if d.gate == nil {
		return nil, ErrDetectorUnavailable
	}

	defer func() {
		if r := recover(); r != nil {
			faces, err = nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, r)
		}
	}()

	faces, err = d.gate.Detect(img)
	if err != nil && !errors.Is(err, ErrDetectorUnavailable) {
		err = fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return faces, nil
}

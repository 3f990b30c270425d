package ai

import "errors"

// Error kinds produced below the Classify boundary. Components wrap them with
// fmt.Errorf("...: %w", ...) so callers can use errors.Is.
var (
	ErrDecodeFailure       = errors.New("decode failure")
	ErrDetectorUnavailable = errors.New("face detector unavailable")
	ErrShapeMismatch       = errors.New("input shape mismatch")
	ErrInferenceFailure    = errors.New("inference failure")
	ErrModelLoad           = errors.New("model load failure")
)

package ai

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// InputSize is the square spatial resolution the model was trained on.
const InputSize = 300

// InputShape is the NCHW shape of a PreparedInput.
var InputShape = [4]int{1, 3, InputSize, InputSize}

// Per-channel normalization constants (RGB) of the trained model.
var (
	ChannelMean = [3]float32{0.485, 0.456, 0.406}
	ChannelStd  = [3]float32{0.229, 0.224, 0.225}
)

// PreparedInput is a single-sample NCHW float tensor.
type PreparedInput struct {
	Shape [4]int
	Data  []float32
}

// Validate checks the tensor against InputShape.
func (in PreparedInput) Validate() error {
	if in.Shape != InputShape {
		return fmt.Errorf("%w: got %v, want %v", ErrShapeMismatch, in.Shape, InputShape)
	}
	want := InputShape[0] * InputShape[1] * InputShape[2] * InputShape[3]
	if len(in.Data) != want {
		return fmt.Errorf("%w: got %d values, want %d", ErrShapeMismatch, len(in.Data), want)
	}
	return nil
}

// Preprocessor turns a RawImage into a PreparedInput.
type Preprocessor struct {
	size int
}

// NewPreprocessor returns a preprocessor for the model's InputSize.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{size: InputSize}
}

// Prepare fixes orientation, resizes with an anti-aliased bilinear filter,
// puts channels in RGB order and normalizes them.
func (p *Preprocessor) Prepare(img RawImage) (PreparedInput, error) {
	if err := img.Validate(); err != nil {
		return PreparedInput{}, err
	}

	upright := img.Upright()
	resized := imaging.Resize(upright.NRGBA(), p.size, p.size, imaging.Linear)

	// source slot for each RGB output channel
	slots := [3]int{0, 1, 2}
	if upright.Order == OrderBGR {
		slots = [3]int{2, 1, 0}
	}

	plane := p.size * p.size
	data := make([]float32, 3*plane)
	for y := 0; y < p.size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < p.size; x++ {
			px := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				v := float32(px[slots[c]]) / 255
				data[c*plane+y*p.size+x] = (v - ChannelMean[c]) / ChannelStd[c]
			}
		}
	}

	return PreparedInput{Shape: [4]int{1, 3, p.size, p.size}, Data: data}, nil
}

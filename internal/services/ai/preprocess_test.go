package ai

import (
	"errors"
	"math"
	"testing"
)

func normalized(v uint8, c int) float32 {
	return (float32(v)/255 - ChannelMean[c]) / ChannelStd[c]
}

func TestPrepare_Shape(t *testing.T) {
	sizes := [][2]int{{1, 1}, {20, 10}, {300, 300}, {640, 480}}

	p := NewPreprocessor()
	for _, s := range sizes {
		in, err := p.Prepare(solidImage(s[0], s[1], 10, 20, 30))
		if err != nil {
			t.Fatalf("Prepare(%dx%d) failed: %v", s[0], s[1], err)
		}
		if err := in.Validate(); err != nil {
			t.Errorf("Prepare(%dx%d) produced invalid input: %v", s[0], s[1], err)
		}
	}
}

func TestPrepare_Normalization(t *testing.T) {
	in, err := NewPreprocessor().Prepare(solidImage(8, 8, 255, 128, 0))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	plane := InputSize * InputSize
	expected := [3]float32{normalized(255, 0), normalized(128, 1), normalized(0, 2)}
	for c := 0; c < 3; c++ {
		for _, i := range []int{0, plane / 2, plane - 1} {
			got := in.Data[c*plane+i]
			if math.Abs(float64(got-expected[c])) > 1e-4 {
				t.Errorf("Channel %d index %d: expected %f, got %f", c, i, expected[c], got)
			}
		}
	}
}

func TestPrepare_BGRMatchesRGB(t *testing.T) {
	rgb := solidImage(5, 5, 200, 100, 50)
	bgr := solidImage(5, 5, 50, 100, 200)
	bgr.Order = OrderBGR

	p := NewPreprocessor()
	a, err := p.Prepare(rgb)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, err := p.Prepare(bgr)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Value %d differs: %f vs %f", i, a.Data[i], b.Data[i])
		}
	}
}

func TestPrepare_Deterministic(t *testing.T) {
	img := solidImage(17, 11, 3, 90, 250)
	img.Pix[0], img.Pix[1], img.Pix[2] = 255, 255, 255

	p := NewPreprocessor()
	a, _ := p.Prepare(img)
	b, _ := p.Prepare(img)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Prepare is not deterministic at %d", i)
		}
	}
}

func TestPrepare_InvalidImage(t *testing.T) {
	if _, err := NewPreprocessor().Prepare(RawImage{}); !errors.Is(err, ErrDecodeFailure) {
		t.Errorf("Expected ErrDecodeFailure, got %v", err)
	}
}

func TestPreparedInput_Validate(t *testing.T) {
	bad := []PreparedInput{
		{},
		{Shape: [4]int{1, 3, 224, 224}, Data: make([]float32, 3*224*224)},
		{Shape: InputShape, Data: make([]float32, 10)},
	}
	for _, in := range bad {
		if err := in.Validate(); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("Validate(%v) = %v, expected ErrShapeMismatch", in.Shape, err)
		}
	}
}

package opencv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"deepfake-detector/internal/services/ai"

	"gocv.io/x/gocv"
)

const cascadeFile = "haarcascade_frontalface_default.xml"

// Usual install locations of the OpenCV Haar cascades.
var cascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// CascadeGate finds frontal faces with a Haar cascade.
type CascadeGate struct {
	path        string
	params      ai.FaceGateParams
	classifiers *pool[gocv.CascadeClassifier]
}

// ResolveCascadePath returns path when it exists, otherwise the first
// cascade found in the standard OpenCV data directories.
func ResolveCascadePath(path string) (string, error) {
	candidates := []string{path}
	for _, dir := range cascadeDirs {
		candidates = append(candidates, filepath.Join(dir, cascadeFile))
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: cascade %q not found", ai.ErrDetectorUnavailable, path)
}

// NewCascadeGate loads one classifier per worker.
func NewCascadeGate(path string, params ai.FaceGateParams, workers int) (*CascadeGate, error) {
	resolved, err := ResolveCascadePath(path)
	if err != nil {
		return nil, err
	}

	classifiers, err := newPool(workers, func() (gocv.CascadeClassifier, error) {
		c := gocv.NewCascadeClassifier()
		if !c.Load(resolved) {
			c.Close()
			return c, fmt.Errorf("%w: failed to load cascade %s", ai.ErrDetectorUnavailable, resolved)
		}
		return c, nil
	}, closeClassifier)
	if err != nil {
		return nil, err
	}

	return &CascadeGate{path: resolved, params: params, classifiers: classifiers}, nil
}

// Path is the cascade file actually loaded.
func (g *CascadeGate) Path() string {
	return g.path
}

// Detect searches a grayscale copy of img. Any failure, including a panic
// inside OpenCV, is reported as ai.ErrDetectorUnavailable.
func (g *CascadeGate) Detect(img ai.RawImage) (faces []ai.FaceRegion, err error) {
	if g == nil || g.classifiers == nil {
		return nil, ai.ErrDetectorUnavailable
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrDetectorUnavailable, err)
	}

	defer func() {
		if r := recover(); r != nil {
			faces, err = nil, fmt.Errorf("%w: %v", ai.ErrDetectorUnavailable, r)
		}
	}()

	mat, err := ToMat(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrDetectorUnavailable, err)
	}
	defer mat.Close()

	code := gocv.ColorRGBToGray
	if img.Order == ai.OrderBGR {
		code = gocv.ColorBGRToGray
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, code)

	classifier := g.classifiers.get()
	defer g.classifiers.put(classifier)

	minSize := image.Pt(g.params.MinSize, g.params.MinSize)
	rects := classifier.DetectMultiScaleWithParams(gray, g.params.ScaleFactor, g.params.MinNeighbors, 0, minSize, image.Pt(0, 0))

	faces = make([]ai.FaceRegion, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, ai.FaceRegion{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}
	return faces, nil
}

// Close releases the classifiers.
func (g *CascadeGate) Close() error {
	if g == nil || g.classifiers == nil {
		return nil
	}
	return g.classifiers.close(closeClassifier)
}

func closeClassifier(c gocv.CascadeClassifier) error {
	return c.Close()
}

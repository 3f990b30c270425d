package opencv

import (
	"fmt"

	"deepfake-detector/internal/services/ai"

	"gocv.io/x/gocv"
)

// ToMat wraps the pixels of img in a CV_8UC3 Mat with the image's own
// channel order.
func ToMat(img ai.RawImage) (gocv.Mat, error) {
	if err := img.Validate(); err != nil {
		return gocv.Mat{}, err
	}
	return gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
}

// FromMat copies a BGR Mat into a RawImage. OpenCV has already applied the
// EXIF orientation when it decoded the file.
func FromMat(mat gocv.Mat) (ai.RawImage, error) {
	if mat.Empty() {
		return ai.RawImage{}, fmt.Errorf("%w: empty mat", ai.ErrDecodeFailure)
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return ai.RawImage{}, fmt.Errorf("%w: unsupported mat type %v", ai.ErrDecodeFailure, mat.Type())
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	img := ai.RawImage{
		Pix:         src.ToBytes(),
		Width:       src.Cols(),
		Height:      src.Rows(),
		Order:       ai.OrderBGR,
		Orientation: ai.OrientationNormal,
	}
	return img, img.Validate()
}

// ReadImage decodes a file with OpenCV, yielding a BGR RawImage.
func ReadImage(path string) (ai.RawImage, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return ai.RawImage{}, fmt.Errorf("%w: opencv could not read %s", ai.ErrDecodeFailure, path)
	}
	return FromMat(mat)
}

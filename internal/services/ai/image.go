package ai

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ChannelOrder is the byte order of the three color channels in RawImage.Pix.
type ChannelOrder int

const (
	OrderRGB ChannelOrder = iota
	OrderBGR
)

// EXIF orientation values.
const (
	OrientationNormal     = 1
	OrientationFlipH      = 2
	OrientationRotate180  = 3
	OrientationFlipV      = 4
	OrientationTranspose  = 5
	OrientationRotate270  = 6
	OrientationTransverse = 7
	OrientationRotate90   = 8
)

// RawImage is a decoded 8-bit, 3-channel bitmap stored row-major (HWC).
type RawImage struct {
	Pix         []uint8
	Width       int
	Height      int
	Order       ChannelOrder
	Orientation int // pending EXIF orientation, 0 or 1 when upright
}

// FaceRegion is a rectangle in RawImage pixel coordinates.
type FaceRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width * height.
func (f FaceRegion) Area() int {
	return f.Width * f.Height
}

// Rect converts the region to an image.Rectangle.
func (f FaceRegion) Rect() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// FromImage copies any image.Image into an upright RGB RawImage. Alpha is
// dropped.
func FromImage(img image.Image) RawImage {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	pix := make([]uint8, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return RawImage{Pix: pix, Width: w, Height: h, Order: OrderRGB, Orientation: OrientationNormal}
}

// Validate checks the buffer is consistent with the declared size.
func (r RawImage) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", ErrDecodeFailure, r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height*3 {
		return fmt.Errorf("%w: pixel buffer has %d bytes, want %d", ErrDecodeFailure, len(r.Pix), r.Width*r.Height*3)
	}
	return nil
}

// NRGBA wraps the pixels in an opaque *image.NRGBA without reordering
// channels: for BGR images the R slot holds blue.
func (r RawImage) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i+2 < len(r.Pix); i, j = i+3, j+4 {
		dst.Pix[j] = r.Pix[i]
		dst.Pix[j+1] = r.Pix[i+1]
		dst.Pix[j+2] = r.Pix[i+2]
		dst.Pix[j+3] = 0xff
	}
	return dst
}

func fromNRGBA(src *image.NRGBA, order ChannelOrder) RawImage {
	raw := FromImage(src)
	raw.Order = order
	return raw
}

// Upright applies the pending orientation and returns an image with
// Orientation reset to normal. Calling it on an upright image is a no-op.
func (r RawImage) Upright() RawImage {
	if r.Orientation <= OrientationNormal || r.Orientation > OrientationRotate90 {
		r.Orientation = OrientationNormal
		return r
	}
	src := r.NRGBA()
	var dst *image.NRGBA
	switch r.Orientation {
	case OrientationFlipH:
		dst = imaging.FlipH(src)
	case OrientationRotate180:
		dst = imaging.Rotate180(src)
	case OrientationFlipV:
		dst = imaging.FlipV(src)
	case OrientationTranspose:
		dst = imaging.Transpose(src)
	case OrientationRotate270:
		dst = imaging.Rotate270(src)
	case OrientationTransverse:
		dst = imaging.Transverse(src)
	case OrientationRotate90:
		dst = imaging.Rotate90(src)
	}
	return fromNRGBA(dst, r.Order)
}

// Crop cuts the region out of the image, clamped to its bounds.
func (r RawImage) Crop(region FaceRegion) (RawImage, error) {
	rect := region.Rect().Intersect(image.Rect(0, 0, r.Width, r.Height))
	if rect.Empty() {
		return RawImage{}, fmt.Errorf("crop region %v outside %dx%d image", region, r.Width, r.Height)
	}
	w, h := rect.Dx(), rect.Dy()
	pix := make([]uint8, 0, w*h*3)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		start := (y*r.Width + rect.Min.X) * 3
		pix = append(pix, r.Pix[start:start+w*3]...)
	}
	return RawImage{Pix: pix, Width: w, Height: h, Order: r.Order, Orientation: r.Orientation}, nil
}

// ImageRef identifies the input of one Classify call: a file path, an
// in-memory buffer, or an already decoded image.
type ImageRef struct {
	Path  string
	Data  []byte
	Image *RawImage
	Name  string // reported as the source when Path is empty
}

// Source is the opaque reference echoed back in the Outcome.
func (ref ImageRef) Source() string {
	if ref.Path != "" {
		return ref.Path
	}
	return ref.Name
}

// Decode resolves the reference into a RawImage.
func (ref ImageRef) Decode() (RawImage, error) {
	switch {
	case ref.Image != nil:
		if err := ref.Image.Validate(); err != nil {
			return RawImage{}, err
		}
		return *ref.Image, nil
	case ref.Data != nil:
		return DecodeBytes(ref.Data)
	case ref.Path != "":
		return DecodeFile(filepath.Clean(ref.Path))
	}
	return RawImage{}, fmt.Errorf("%w: empty image reference", ErrDecodeFailure)
}

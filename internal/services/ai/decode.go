package ai

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// MaxPixels caps the declared width*height of an input before any pixel
// buffer is allocated.
var MaxPixels = 64 * 1024 * 1024

// DecodeBytes decodes a JPEG, PNG, GIF, BMP, TIFF or WebP buffer. EXIF
// orientation is applied during decoding, so the result is upright.
func DecodeBytes(data []byte) (RawImage, error) {
	if len(data) == 0 {
		return RawImage{}, fmt.Errorf("%w: empty input", ErrDecodeFailure)
	}

	isWebP := IsWebP(data)

	var cfg image.Config
	var err error
	if isWebP {
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return RawImage{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return RawImage{}, err
	}

	var img image.Image
	if isWebP {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return RawImage{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	raw := FromImage(img)
	if err := raw.Validate(); err != nil {
		return RawImage{}, err
	}
	return raw, nil
}

// IsWebP reports whether data starts with a RIFF/WEBP container header.
func IsWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecodeFailure, w, h)
	}
	if int64(w)*int64(h) > int64(MaxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecodeFailure, w, h, MaxPixels)
	}
	return nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (RawImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawImage{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return DecodeBytes(data)
}

// Package encoder decodes raw image bytes and re-encodes them at a
// target size, format and quality. JPEG and PNG are handled in pure Go
// via imaging; WebP and AVIF are exported through libvips.
//
// Re-encoding never copies source metadata segments, so EXIF (and any
// embedded orientation or color profile) is always dropped from the
// output. Orientation is applied to the pixels at decode time instead.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Register WebP decoding for the input path.
	_ "golang.org/x/image/webp"

	"github.com/pixmill/pixmill/internal/model"
)

var (
	// ErrDecode means the input bytes are not a decodable image.
	ErrDecode = errors.New("input is not a decodable image")

	// ErrUnsupportedFormat means the target format is not available on
	// this host (AVIF and WebP depend on the libvips build).
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrBadDimensions means the target width or height is not positive.
	ErrBadDimensions = errors.New("target dimensions must be positive")
)

// Encoder re-encodes decoded images into output bytes.
type Encoder struct {
	// export hands a lossless intermediate to libvips for formats the
	// pure-Go path cannot produce. Swappable in tests.
	export func(pngData []byte, format model.Format, quality int) ([]byte, error)

	// supported probes host support for a format.
	supported func(format model.Format) bool
}

// New creates an Encoder backed by libvips for WebP/AVIF output.
func New() *Encoder {
	return &Encoder{
		export:    exportVips,
		supported: vipsSupports,
	}
}

// Decode parses raw bytes into an image, applying any EXIF orientation
// to the pixels.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Supported reports whether the host can produce the given format.
func (e *Encoder) Supported(f model.Format) bool {
	switch f {
	case model.FormatJPEG, model.FormatPNG:
		return true
	case model.FormatWebP, model.FormatAVIF:
		return e.supported(f)
	default:
		return false
	}
}

// Encode resamples img to width x height and encodes it to the target
// format. Quality is in [0.0, 1.0] and is ignored for lossless formats.
// Unsupported formats and non-positive dimensions short-circuit before
// any resampling work.
func (e *Encoder) Encode(img image.Image, width, height int, format model.Format, quality float64) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, width, height)
	}
	if !e.Supported(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	// Lanczos keeps the resample deterministic for identical inputs.
	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	q := qualityPercent(quality)

	switch format {
	case model.FormatJPEG:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), nil

	case model.FormatPNG:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), nil

	case model.FormatWebP, model.FormatAVIF:
		// Route through a lossless PNG intermediate into libvips.
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode intermediate: %w", err)
		}
		out, err := e.export(buf.Bytes(), format, q)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", format, err)
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// qualityPercent maps the [0.0, 1.0] setting onto the 1-100 scale the
// underlying encoders expect.
func qualityPercent(q float64) int {
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	p := int(q*100 + 0.5)
	if p < 1 {
		p = 1
	}
	return p
}

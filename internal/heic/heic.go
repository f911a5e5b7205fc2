// Package heic normalizes HEIC/HEIF input into baseline JPEG before
// the main pipeline runs. The conversion is lossy-to-lossy at a fixed
// high quality and is deliberately not user-tunable.
package heic

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/wb-go/wbf/zlog"
)

var (
	// ErrEmptyInput means the file had zero bytes; the decoder is not
	// invoked at all.
	ErrEmptyInput = errors.New("empty input")

	// ErrTimeout means the conversion exceeded its bound. Distinguished
	// from decode failures so callers can report "skipped due to
	// timeout" separately.
	ErrTimeout = errors.New("heic conversion timed out")

	// ErrUnsupported means this libvips build cannot load HEIF.
	ErrUnsupported = errors.New("heif decoding not supported on this host")
)

// DefaultTimeout bounds a single file's decode+encode.
const DefaultTimeout = 30 * time.Second

// jpegQuality is fixed: the conversion exists only to normalize input,
// not to apply the user's quality setting.
const jpegQuality = 95

// IsHeic reports whether the file looks like HEIC/HEIF, by extension or
// declared MIME type (either is sufficient).
func IsHeic(filename, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic", ".heif":
		return true
	}
	switch strings.ToLower(mimeType) {
	case "image/heic", "image/heif":
		return true
	}
	return false
}

// File is one item of a batch conversion.
type File struct {
	Name string
	Mime string
	Data []byte
}

// Preconverter converts HEIC/HEIF bytes to baseline JPEG.
type Preconverter struct {
	timeout time.Duration

	// convert does the actual decode+encode. Swappable in tests.
	convert func(data []byte) ([]byte, error)
}

// New creates a Preconverter backed by libvips. A non-positive timeout
// falls back to DefaultTimeout.
func New(timeout time.Duration) *Preconverter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Preconverter{
		timeout: timeout,
		convert: convertVips,
	}
}

// Convert decodes HEIC/HEIF bytes and re-encodes them as JPEG. The
// work races a hard timeout; on expiry the caller gets ErrTimeout while
// the abandoned conversion finishes in the background.
func (p *Preconverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := p.convert(data)
		done <- result{out: out, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("convert heic: %w", r.err)
		}
		if len(r.out) == 0 {
			return nil, errors.New("convert heic: empty result")
		}
		return r.out, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ConvertAll converts every HEIC/HEIF file in the batch, leaving other
// files untouched. A failing file is passed through unmodified rather
// than excluded, so the main pipeline can still attempt it and a single
// bad file never blocks its siblings. Returns the batch (same length
// and order as the input) and the number of successful conversions.
func (p *Preconverter) ConvertAll(ctx context.Context, files []File) ([]File, int) {
	out := make([]File, len(files))
	converted := 0

	for i, f := range files {
		out[i] = f
		if !IsHeic(f.Name, f.Mime) {
			continue
		}

		data, err := p.Convert(ctx, f.Data)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				zlog.Logger.Warn().Str("file", f.Name).Msg("heic conversion timed out, passing through")
			} else {
				zlog.Logger.Warn().Err(err).Str("file", f.Name).Msg("heic conversion failed, passing through")
			}
			continue
		}

		out[i].Data = data
		out[i].Mime = "image/jpeg"
		out[i].Name = jpegName(f.Name)
		converted++
	}

	return out, converted
}

// jpegName swaps the extension for .jpg, keeping the base name.
func jpegName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// convertVips decodes through libvips and exports baseline JPEG.
func convertVips(data []byte) ([]byte, error) {
	if !vips.IsTypeSupported(vips.ImageTypeHEIF) {
		return nil, ErrUnsupported
	}

	ref, err := vips.LoadImageFromBuffer(data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer ref.Close()

	params := vips.NewJpegExportParams()
	params.Quality = jpegQuality
	params.OptimizeCoding = true

	out, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return out, nil
}

// Package pipeline runs one job through the full transform: optional
// HEIC pre-conversion, decode, dimension resolution, re-encode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/encoder"
	"github.com/pixmill/pixmill/internal/exifscan"
	"github.com/pixmill/pixmill/internal/heic"
	"github.com/pixmill/pixmill/internal/metrics"
	"github.com/pixmill/pixmill/internal/model"
	"github.com/pixmill/pixmill/internal/resize"
)

// preconverter normalizes HEIC/HEIF bytes into JPEG.
type preconverter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// Result is the output of a successful pass.
type Result struct {
	Bytes   []byte
	Format  model.Format
	Width   int
	Height  int
	HadExif bool
}

// Pipeline composes the preconverter and encoder into a single pass.
type Pipeline struct {
	heic preconverter
	enc  *encoder.Encoder
}

// New creates a Pipeline.
func New(pre *heic.Preconverter, enc *encoder.Encoder) *Pipeline {
	return &Pipeline{heic: pre, enc: enc}
}

// Process transforms the given bytes under the given settings. HEIC
// input that fails pre-conversion is passed through to the decoder,
// which will reject it with a clearer error.
func (p *Pipeline) Process(ctx context.Context, filename, mimeType string, data []byte, s model.Settings) (Result, error) {
	start := time.Now()

	if heic.IsHeic(filename, mimeType) {
		converted, err := p.heic.Convert(ctx, data)
		if err != nil {
			outcome := "error"
			if errors.Is(err, heic.ErrTimeout) {
				outcome = "timeout"
			}
			metrics.HeicConversions.WithLabelValues(outcome).Inc()
			zlog.Logger.Warn().Err(err).Str("file", filename).Msg("heic pre-conversion failed, passing original to decoder")
		} else {
			metrics.HeicConversions.WithLabelValues("ok").Inc()
			data = converted
		}
	}

	hadExif := exifscan.Has(data)

	img, err := encoder.Decode(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	w, h := resize.Resolve(bounds.Dx(), bounds.Dy(), s)

	out, err := p.enc.Encode(img, w, h, s.Format, s.Quality)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", filename, err)
	}

	metrics.EncodeDuration.Observe(time.Since(start).Seconds())

	if hadExif && s.StripExif {
		zlog.Logger.Debug().Str("file", filename).Msg("metadata dropped by re-encode")
	}

	return Result{
		Bytes:   out,
		Format:  s.Format,
		Width:   w,
		Height:  h,
		HadExif: hadExif,
	}, nil
}

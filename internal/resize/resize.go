// Package resize resolves target dimensions from original dimensions
// and the active settings. It is pure arithmetic: no decoding, no
// validation of fields belonging to inactive resize modes.
package resize

import (
	"math"

	"github.com/pixmill/pixmill/internal/model"
)

// Resolve computes the output dimensions for an image of origW x origH
// under the given settings. Exactly one resize-mode branch is
// consulted; fields of the other modes are ignored.
//
// Callers must ensure positive, non-degenerate inputs: zero or negative
// results are not guarded here.
func Resolve(origW, origH int, s model.Settings) (int, int) {
	switch s.ResizeMode {
	case model.ResizeExact:
		return s.ExactWidth, s.ExactHeight

	case model.ResizePercentage:
		p := s.Percentage
		if p > 100 {
			p = 100
		}
		scale := float64(p) / 100
		return round(float64(origW) * scale), round(float64(origH) * scale)

	case model.ResizeMaxDimensions:
		// Both axes unbounded is the explicit no-resize sentinel.
		if s.MaxWidth >= model.Unbounded && s.MaxHeight >= model.Unbounded {
			return origW, origH
		}

		aspect := float64(origW) / float64(origH)
		w, h := origW, origH

		// Sequential clamp, width first. The height check runs against
		// the possibly already-updated height, so the result never
		// exceeds either bound and never upscales.
		if w > s.MaxWidth {
			w = s.MaxWidth
			h = round(float64(w) / aspect)
		}
		if h > s.MaxHeight {
			h = s.MaxHeight
			w = round(float64(h) * aspect)
		}
		return w, h
	}

	return origW, origH
}

func round(v float64) int {
	return int(math.Round(v))
}

package resize

import (
	"testing"

	"github.com/pixmill/pixmill/internal/model"
)

func TestResolveExact(t *testing.T) {
	s := model.Settings{ResizeMode: model.ResizeExact, ExactWidth: 800, ExactHeight: 600}

	for _, orig := range [][2]int{{100, 100}, {3000, 2000}, {640, 480}} {
		w, h := Resolve(orig[0], orig[1], s)
		if w != 800 || h != 600 {
			t.Errorf("Resolve(%d, %d) = (%d, %d), want (800, 600)", orig[0], orig[1], w, h)
		}
	}
}

func TestResolvePercentage(t *testing.T) {
	tests := []struct {
		name       string
		origW      int
		origH      int
		percentage int
		wantW      int
		wantH      int
	}{
		{"half", 1000, 1000, 50, 500, 500},
		{"full is a no-op", 1920, 1080, 100, 1920, 1080},
		{"over 100 clamps to 100", 640, 480, 250, 640, 480},
		{"rounds to nearest", 3, 3, 50, 2, 2}, // 1.5 rounds up
		{"quarter of odd dims", 1001, 333, 25, 250, 83},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.Settings{ResizeMode: model.ResizePercentage, Percentage: tt.percentage}
			w, h := Resolve(tt.origW, tt.origH, s)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Resolve(%d, %d) = (%d, %d), want (%d, %d)",
					tt.origW, tt.origH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResolveMaxDimensions(t *testing.T) {
	tests := []struct {
		name  string
		origW int
		origH int
		maxW  int
		maxH  int
		wantW int
		wantH int
	}{
		{"both unbounded returns original", 4000, 3000, model.Unbounded, model.Unbounded, 4000, 3000},
		{"width clamps first, height follows", 3000, 2000, 1920, 1920, 1920, 1280},
		{"smaller than bounds is untouched", 800, 600, 1920, 1920, 800, 600},
		{"tall image clamped by height", 1000, 4000, 1920, 1920, 480, 1920},
		{"height-only bound", 2000, 1000, model.Unbounded, 500, 1000, 500},
		{"width-only bound", 2000, 1000, 500, model.Unbounded, 500, 250},
		{"both clamps fire in sequence", 4000, 4000, 2000, 1000, 1000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.Settings{ResizeMode: model.ResizeMaxDimensions, MaxWidth: tt.maxW, MaxHeight: tt.maxH}
			w, h := Resolve(tt.origW, tt.origH, s)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Resolve(%d, %d) = (%d, %d), want (%d, %d)",
					tt.origW, tt.origH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResolveMaxNeverUpscales(t *testing.T) {
	dims := [][2]int{{3000, 2000}, {2000, 3000}, {500, 500}, {1921, 1919}}
	s := model.Settings{ResizeMode: model.ResizeMaxDimensions, MaxWidth: 1920, MaxHeight: 1920}

	for _, d := range dims {
		w, h := Resolve(d[0], d[1], s)
		if w > d[0] || h > d[1] {
			t.Errorf("Resolve(%d, %d) = (%d, %d): upscaled", d[0], d[1], w, h)
		}
		if w > 1920 || h > 1920 {
			t.Errorf("Resolve(%d, %d) = (%d, %d): exceeds bounds", d[0], d[1], w, h)
		}
	}
}

package model

import "testing"

func TestApplyPresetUnknownID(t *testing.T) {
	cur := DefaultSettings()
	got := ApplyPreset("no-such-preset", cur)
	if got != cur {
		t.Errorf("ApplyPreset with unknown id = %+v, want input unchanged", got)
	}
}

func TestApplyPresetOverwritesSubset(t *testing.T) {
	cur := Settings{
		Quality:     0.9,
		Format:      FormatPNG,
		ResizeMode:  ResizeExact,
		ExactWidth:  640,
		ExactHeight: 480,
		StripExif:   false,
	}

	got := ApplyPreset("web", cur)

	if got.Format != FormatWebP || got.ResizeMode != ResizeMaxDimensions {
		t.Errorf("preset fields not applied: %+v", got)
	}
	if got.MaxWidth != 1920 || got.MaxHeight != 1920 {
		t.Errorf("max dimensions = (%d, %d), want (1920, 1920)", got.MaxWidth, got.MaxHeight)
	}
	if !got.StripExif {
		t.Error("strip_exif not applied")
	}
	// Fields the preset does not specify are retained.
	if got.ExactWidth != 640 || got.ExactHeight != 480 {
		t.Errorf("unspecified fields mutated: %+v", got)
	}
}

func TestApplyPresetRetainsQualityWhenUnspecified(t *testing.T) {
	cur := DefaultSettings()
	cur.Quality = 0.33

	got := ApplyPreset("archive", cur)
	if got.Quality != 0.33 {
		t.Errorf("quality = %v, want retained 0.33", got.Quality)
	}
	if got.Format != FormatPNG {
		t.Errorf("format = %v, want png", got.Format)
	}
}

func TestFormatLossless(t *testing.T) {
	if !FormatPNG.Lossless() {
		t.Error("png should be lossless")
	}
	for _, f := range []Format{FormatJPEG, FormatWebP, FormatAVIF} {
		if f.Lossless() {
			t.Errorf("%s should not be lossless", f)
		}
	}
}

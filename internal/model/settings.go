package model

// Format is the target container format for encoded output.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// Lossless reports whether the format ignores the quality setting.
func (f Format) Lossless() bool {
	return f == FormatPNG
}

// Extension returns the conventional file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	case FormatAVIF:
		return ".avif"
	default:
		return ""
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}

// ResizeMode selects which resize branch is consulted when resolving
// target dimensions. Fields belonging to the other modes are ignored
// and may hold stale values safely.
type ResizeMode string

const (
	ResizePercentage    ResizeMode = "percentage"
	ResizeMaxDimensions ResizeMode = "max"
	ResizeExact         ResizeMode = "exact"
)

// Unbounded is the sentinel value for MaxWidth/MaxHeight meaning
// "no limit on this axis."
const Unbounded = 99999

// Settings holds the resize/format/quality configuration applied to a
// job. It is a value type: orchestrator and pipeline always work on
// copies, never on a shared pointer.
type Settings struct {
	Quality     float64    `json:"quality"` // [0.0, 1.0], ignored for lossless formats
	Format      Format     `json:"format"`
	ResizeMode  ResizeMode `json:"resize_mode"`
	Percentage  int        `json:"percentage"`
	MaxWidth    int        `json:"max_width"`
	MaxHeight   int        `json:"max_height"`
	ExactWidth  int        `json:"exact_width"`
	ExactHeight int        `json:"exact_height"`
	StripExif   bool       `json:"strip_exif"`
}

// DefaultSettings returns the configuration used before the caller
// supplies anything: JPEG at 80% quality, no resize.
func DefaultSettings() Settings {
	return Settings{
		Quality:    0.8,
		Format:     FormatJPEG,
		ResizeMode: ResizeMaxDimensions,
		Percentage: 100,
		MaxWidth:   Unbounded,
		MaxHeight:  Unbounded,
		StripExif:  true,
	}
}

// preset is a partial Settings: only the non-nil fields overwrite the
// current settings when applied.
type preset struct {
	quality    *float64
	format     *Format
	resizeMode *ResizeMode
	percentage *int
	maxWidth   *int
	maxHeight  *int
	stripExif  *bool
}

var presets = map[string]preset{
	// Aggressive recompression for web delivery.
	"web": {
		quality:    f64p(0.75),
		format:     formatp(FormatWebP),
		resizeMode: modep(ResizeMaxDimensions),
		maxWidth:   intp(1920),
		maxHeight:  intp(1920),
		stripExif:  boolp(true),
	},
	// Small enough to attach to an email.
	"email": {
		quality:    f64p(0.7),
		format:     formatp(FormatJPEG),
		resizeMode: modep(ResizeMaxDimensions),
		maxWidth:   intp(1024),
		maxHeight:  intp(1024),
		stripExif:  boolp(true),
	},
	// Lossless, original dimensions.
	"archive": {
		format:     formatp(FormatPNG),
		resizeMode: modep(ResizeMaxDimensions),
		maxWidth:   intp(Unbounded),
		maxHeight:  intp(Unbounded),
		stripExif:  boolp(false),
	},
	// Quarter-size previews.
	"preview": {
		quality:    f64p(0.6),
		format:     formatp(FormatJPEG),
		resizeMode: modep(ResizePercentage),
		percentage: intp(25),
	},
}

// ApplyPreset merges the named preset onto current. Preset fields fully
// overwrite; fields the preset does not specify are retained. An
// unknown preset id returns current unchanged.
func ApplyPreset(id string, current Settings) Settings {
	p, ok := presets[id]
	if !ok {
		return current
	}

	out := current
	if p.quality != nil {
		out.Quality = *p.quality
	}
	if p.format != nil {
		out.Format = *p.format
	}
	if p.resizeMode != nil {
		out.ResizeMode = *p.resizeMode
	}
	if p.percentage != nil {
		out.Percentage = *p.percentage
	}
	if p.maxWidth != nil {
		out.MaxWidth = *p.maxWidth
	}
	if p.maxHeight != nil {
		out.MaxHeight = *p.maxHeight
	}
	if p.stripExif != nil {
		out.StripExif = *p.stripExif
	}

	return out
}

func f64p(v float64) *float64        { return &v }
func intp(v int) *int                { return &v }
func boolp(v bool) *bool             { return &v }
func formatp(v Format) *Format       { return &v }
func modep(v ResizeMode) *ResizeMode { return &v }

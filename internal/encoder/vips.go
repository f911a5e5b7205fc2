package encoder

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/model"
)

var (
	vipsOnce     sync.Once
	vipsShutdown sync.Once
)

// InitVips starts libvips with conservative cache settings and routes
// its log output into the application logger. Safe to call more than
// once; only the first call starts the library.
func InitVips() {
	vipsOnce.Do(func() {
		vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				zlog.Logger.Error().Str("domain", domain).Msg(msg)
			case vips.LogLevelWarning:
				zlog.Logger.Warn().Str("domain", domain).Msg(msg)
			default:
				zlog.Logger.Debug().Str("domain", domain).Msg(msg)
			}
		}, vips.LogLevelWarning)

		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})

		zlog.Logger.Info().Str("version", vips.Version).Msg("libvips initialized")
	})
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsShutdown.Do(func() {
		vips.Shutdown()
		zlog.Logger.Info().Msg("libvips shutdown complete")
	})
}

// vipsSupports probes whether the libvips build on this host can save
// the given format. AVIF in particular is frequently absent.
func vipsSupports(f model.Format) bool {
	switch f {
	case model.FormatWebP:
		return vips.IsTypeSupported(vips.ImageTypeWEBP)
	case model.FormatAVIF:
		return vips.IsTypeSupported(vips.ImageTypeAVIF)
	default:
		return false
	}
}

// exportVips loads a lossless intermediate into libvips and exports it
// as WebP or AVIF. Metadata is stripped on export; the intermediate
// carries none anyway.
func exportVips(pngData []byte, format model.Format, quality int) ([]byte, error) {
	ref, err := vips.NewImageFromBuffer(pngData)
	if err != nil {
		return nil, fmt.Errorf("load intermediate: %w", err)
	}
	defer ref.Close()

	switch format {
	case model.FormatWebP:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		params.StripMetadata = true
		out, _, err := ref.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("export webp: %w", err)
		}
		return out, nil

	case model.FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = quality
		params.StripMetadata = true
		out, _, err := ref.ExportAvif(params)
		if err != nil {
			return nil, fmt.Errorf("export avif: %w", err)
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

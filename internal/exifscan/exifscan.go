// Package exifscan detects EXIF metadata segments in JPEG, PNG and
// WebP byte streams without decoding the image.
//
// The scanners are total functions: truncated or corrupt framing is
// reported as "no metadata found", never as an error. Callers that need
// strict validation should decode the image instead.
package exifscan

import (
	"bytes"
	"encoding/binary"
)

// maxJPEGSegments bounds the marker walk on adversarial input.
const maxJPEGSegments = 1024

var (
	pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	riffTag      = []byte("RIFF")
	webpTag      = []byte("WEBP")
)

// Has reports whether the buffer contains an EXIF metadata segment.
// Only JPEG, PNG and WebP are recognized; any other signature returns
// false without error. The input is never mutated.
func Has(buf []byte) bool {
	switch {
	case isJPEG(buf):
		return hasJPEG(buf)
	case isPNG(buf):
		return hasPNG(buf)
	case isWebP(buf):
		return hasWebP(buf)
	default:
		return false
	}
}

func isJPEG(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xD8
}

func isPNG(buf []byte) bool {
	return len(buf) >= len(pngSignature) && bytes.Equal(buf[:len(pngSignature)], pngSignature)
}

func isWebP(buf []byte) bool {
	return len(buf) >= 12 && bytes.Equal(buf[0:4], riffTag) && bytes.Equal(buf[8:12], webpTag)
}

// hasJPEG walks the marker segments after SOI looking for an APP1
// segment whose payload starts with "Exif".
func hasJPEG(buf []byte) bool {
	offset := 2

	for i := 0; i < maxJPEGSegments; i++ {
		if offset+4 > len(buf) {
			return false
		}

		marker := binary.BigEndian.Uint16(buf[offset:])
		if marker>>8 != 0xFF {
			return false
		}
		// SOS starts entropy-coded data; metadata segments precede it.
		if marker == 0xFFDA || marker == 0xFFD9 {
			return false
		}

		// Segment length includes its own two bytes.
		length := int(binary.BigEndian.Uint16(buf[offset+2:]))
		if length < 2 || offset+2+length > len(buf) {
			return false
		}

		if marker == 0xFFE1 && length >= 6 {
			if bytes.Equal(buf[offset+4:offset+8], []byte("Exif")) {
				return true
			}
		}

		offset += 2 + length
	}

	return false
}

// hasPNG iterates chunks after the 8-byte signature looking for an
// eXIf chunk. Layout: length(4, BE) + type(4) + data + crc(4).
func hasPNG(buf []byte) bool {
	offset := len(pngSignature)

	for offset+8 <= len(buf) {
		length := int64(binary.BigEndian.Uint32(buf[offset:]))

		if bytes.Equal(buf[offset+4:offset+8], []byte("eXIf")) {
			return true
		}

		next := int64(offset) + 8 + length + 4
		if next <= int64(offset) || next > int64(len(buf)) {
			return false
		}
		offset = int(next)
	}

	return false
}

// hasWebP iterates RIFF chunks after the 12-byte header looking for an
// EXIF chunk. Layout: id(4) + size(4, LE) + data + pad to even size.
func hasWebP(buf []byte) bool {
	offset := 12

	for offset+8 <= len(buf) {
		size := int64(binary.LittleEndian.Uint32(buf[offset+4:]))

		if bytes.Equal(buf[offset:offset+4], []byte("EXIF")) {
			return true
		}

		next := int64(offset) + 8 + size + size%2
		if next <= int64(offset) || next > int64(len(buf)) {
			return false
		}
		offset = int(next)
	}

	return false
}

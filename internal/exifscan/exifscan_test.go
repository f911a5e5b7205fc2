package exifscan

import (
	"encoding/binary"
	"testing"
)

// buildJPEG assembles a minimal marker stream: SOI followed by the
// given segments, then SOS.
func buildJPEG(segments ...[]byte) []byte {
	buf := []byte{0xFF, 0xD8}
	for _, s := range segments {
		buf = append(buf, s...)
	}
	return append(buf, 0xFF, 0xDA, 0x00, 0x02)
}

// app1Exif builds an APP1 segment carrying an "Exif" payload header.
func app1Exif() []byte {
	payload := []byte("Exif\x00\x00MM")
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(2+len(payload)))
	return append(seg, payload...)
}

// app0JFIF builds a plain APP0 segment.
func app0JFIF() []byte {
	payload := []byte("JFIF\x00\x01\x02")
	seg := []byte{0xFF, 0xE0, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(2+len(payload)))
	return append(seg, payload...)
}

func pngChunk(typ string, data []byte) []byte {
	chunk := make([]byte, 0, 12+len(data))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(data)))
	chunk = append(chunk, typ...)
	chunk = append(chunk, data...)
	return append(chunk, 0, 0, 0, 0) // crc, not validated by the scanner
}

func buildPNG(chunks ...[]byte) []byte {
	buf := append([]byte{}, pngSignature...)
	for _, c := range chunks {
		buf = append(buf, c...)
	}
	return buf
}

func webpChunk(id string, data []byte) []byte {
	chunk := make([]byte, 0, 8+len(data))
	chunk = append(chunk, id...)
	chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(data)))
	chunk = append(chunk, data...)
	if len(data)%2 == 1 {
		chunk = append(chunk, 0)
	}
	return chunk
}

func buildWebP(chunks ...[]byte) []byte {
	buf := []byte("RIFF\x00\x00\x00\x00WEBP")
	for _, c := range chunks {
		buf = append(buf, c...)
	}
	return buf
}

func TestHasJPEG(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"app1 exif present", buildJPEG(app0JFIF(), app1Exif()), true},
		{"app1 first segment", buildJPEG(app1Exif()), true},
		{"no app1", buildJPEG(app0JFIF()), false},
		{"bare soi", []byte{0xFF, 0xD8}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Has(tt.buf); got != tt.want {
				t.Errorf("Has = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasJPEGTruncatedIsFalse(t *testing.T) {
	full := buildJPEG(app1Exif())

	// Cut mid-APP1: length field claims more bytes than remain.
	truncated := full[:6]
	if Has(truncated) {
		t.Error("truncated APP1 reported as having metadata")
	}

	// Corrupt length below the minimum of 2.
	corrupt := buildJPEG(app0JFIF())
	corrupt[4], corrupt[5] = 0, 1
	if Has(corrupt) {
		t.Error("corrupt segment length reported as having metadata")
	}
}

func TestHasJPEGSegmentCap(t *testing.T) {
	// More zero-progress-free segments than the walk is willing to
	// visit; the scan must terminate and report false.
	seg := []byte{0xFF, 0xE0, 0x00, 0x02}
	buf := []byte{0xFF, 0xD8}
	for i := 0; i < maxJPEGSegments+10; i++ {
		buf = append(buf, seg...)
	}
	if Has(buf) {
		t.Error("capped scan reported metadata")
	}
}

func TestHasPNG(t *testing.T) {
	ihdr := pngChunk("IHDR", make([]byte, 13))

	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"exif chunk present", buildPNG(ihdr, pngChunk("eXIf", []byte("MM\x00\x2a"))), true},
		{"no exif chunk", buildPNG(ihdr, pngChunk("IDAT", []byte{1, 2, 3})), false},
		{"signature only", buildPNG(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Has(tt.buf); got != tt.want {
				t.Errorf("Has = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasPNGCorruptLengthIsFalse(t *testing.T) {
	// Length field pointing past the end of the buffer.
	buf := buildPNG(pngChunk("IHDR", make([]byte, 13)))
	binary.BigEndian.PutUint32(buf[8:], 0xFFFFFF00)
	if Has(buf) {
		t.Error("oversized chunk length reported as having metadata")
	}
}

func TestHasWebP(t *testing.T) {
	vp8 := webpChunk("VP8 ", []byte{0x10, 0x20, 0x30})

	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"exif chunk present", buildWebP(vp8, webpChunk("EXIF", []byte("II\x2a\x00"))), true},
		{"no exif chunk", buildWebP(vp8), false},
		{"header only", buildWebP(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Has(tt.buf); got != tt.want {
				t.Errorf("Has = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasWebPCorruptSizeIsFalse(t *testing.T) {
	buf := buildWebP(webpChunk("VP8 ", []byte{1, 2, 3, 4}))
	binary.LittleEndian.PutUint32(buf[16:], 0xFFFFFFF0)
	if Has(buf) {
		t.Error("oversized chunk reported as having metadata")
	}
}

func TestHasUnknownSignature(t *testing.T) {
	for _, buf := range [][]byte{
		[]byte("GIF89a...."),
		[]byte("BM......"),
		{0x00, 0x01, 0x02},
		nil,
	} {
		if Has(buf) {
			t.Errorf("unknown signature %q reported as having metadata", buf)
		}
	}
}

package heic

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsHeic(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		want     bool
	}{
		{"heic extension", "IMG_0001.heic", "", true},
		{"heif extension", "photo.heif", "", true},
		{"uppercase extension", "IMG_0002.HEIC", "", true},
		{"heic mime only", "upload.bin", "image/heic", true},
		{"heif mime only", "upload.bin", "image/heif", true},
		{"mixed-case mime", "upload.bin", "Image/HEIC", true},
		{"jpeg", "photo.jpg", "image/jpeg", false},
		{"png", "shot.png", "image/png", false},
		{"no hints", "file", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHeic(tt.filename, tt.mime); got != tt.want {
				t.Errorf("IsHeic(%q, %q) = %v, want %v", tt.filename, tt.mime, got, tt.want)
			}
		})
	}
}

func TestConvertEmptyInput(t *testing.T) {
	p := New(time.Second)
	_, err := p.Convert(context.Background(), nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestConvertTimeout(t *testing.T) {
	p := New(20 * time.Millisecond)
	p.convert = func(data []byte) ([]byte, error) {
		time.Sleep(500 * time.Millisecond)
		return []byte("too late"), nil
	}

	start := time.Now()
	_, err := p.Convert(context.Background(), []byte{1})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 300*time.Millisecond {
		t.Error("timeout did not fire promptly")
	}
}

func TestConvertEmptyResult(t *testing.T) {
	p := New(time.Second)
	p.convert = func(data []byte) ([]byte, error) { return nil, nil }

	_, err := p.Convert(context.Background(), []byte{1})
	if err == nil {
		t.Error("empty result should be an error")
	}
}

func TestConvertAllIsolatesFailures(t *testing.T) {
	p := New(time.Second)
	p.convert = func(data []byte) ([]byte, error) {
		if string(data) == "corrupt" {
			return nil, errors.New("decode: bad box header")
		}
		return append([]byte{0xFF, 0xD8}, data...), nil
	}

	batch := []File{
		{Name: "a.heic", Mime: "image/heic", Data: []byte("ok-a")},
		{Name: "b.heic", Mime: "image/heic", Data: []byte("corrupt")},
		{Name: "c.heic", Mime: "image/heic", Data: []byte("ok-c")},
	}

	out, converted := p.ConvertAll(context.Background(), batch)

	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if converted != 2 {
		t.Errorf("converted = %d, want 2", converted)
	}

	// Failed file passes through untouched.
	if string(out[1].Data) != "corrupt" || out[1].Name != "b.heic" || out[1].Mime != "image/heic" {
		t.Errorf("failed file was modified: %+v", out[1])
	}

	// Successful conversions are renamed and retyped.
	if out[0].Name != "a.jpg" || out[0].Mime != "image/jpeg" {
		t.Errorf("converted file metadata wrong: %+v", out[0])
	}
	if out[2].Name != "c.jpg" {
		t.Errorf("converted file name = %q, want c.jpg", out[2].Name)
	}
}

func TestConvertAllSkipsNonHeic(t *testing.T) {
	calls := 0
	p := New(time.Second)
	p.convert = func(data []byte) ([]byte, error) {
		calls++
		return data, nil
	}

	batch := []File{
		{Name: "photo.jpg", Mime: "image/jpeg", Data: []byte("jpeg")},
		{Name: "shot.png", Mime: "image/png", Data: []byte("png")},
	}

	out, converted := p.ConvertAll(context.Background(), batch)
	if calls != 0 {
		t.Errorf("converter invoked %d times for non-heic batch", calls)
	}
	if converted != 0 {
		t.Errorf("converted = %d, want 0", converted)
	}
	if string(out[0].Data) != "jpeg" || string(out[1].Data) != "png" {
		t.Error("non-heic files were modified")
	}
}

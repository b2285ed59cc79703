// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/olegiv/bsr-go/internal/model"
)

// createTestImage creates a simple test image with the given dimensions.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestCompact_ScalesDownWideImages(t *testing.T) {
	p := NewProcessor(100, 0)

	res, err := p.Compact(encodeJPEG(t, createTestImage(400, 200)))
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if res.Width != 100 || res.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", res.Width, res.Height)
	}
	if res.MIMEType != model.MimeTypeJPEG {
		t.Errorf("MIMEType = %q, want jpeg", res.MIMEType)
	}
}

func TestCompact_KeepsSmallImagesAndPNG(t *testing.T) {
	p := NewProcessor(0, 0)

	res, err := p.Compact(encodePNG(t, createTestImage(64, 32)))
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if res.Width != 64 || res.Height != 32 {
		t.Errorf("size = %dx%d, want 64x32", res.Width, res.Height)
	}
	if res.MIMEType != model.MimeTypePNG {
		t.Errorf("MIMEType = %q, want png", res.MIMEType)
	}
}

func TestCompact_RejectsUnknownData(t *testing.T) {
	p := NewProcessor(0, 0)

	if _, err := p.Compact([]byte("definitely not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDataURIRoundTrip(t *testing.T) {
	data := encodePNG(t, createTestImage(4, 4))
	uri := EncodeDataURI(model.MimeTypePNG, data)

	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %q", uri[:30])
	}

	mimeType, decoded, err := DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if mimeType != model.MimeTypePNG || !bytes.Equal(decoded, data) {
		t.Error("round trip mismatch")
	}
}

func TestDecodeDataURI_Invalid(t *testing.T) {
	tests := []string{
		"https://example.com/a.png",
		"data:image/png,rawdata",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,***",
		"data:image/png;base64",
	}
	for _, uri := range tests {
		t.Run(uri, func(t *testing.T) {
			if _, _, err := DecodeDataURI(uri); !errors.Is(err, ErrInvalidDataURI) {
				t.Errorf("err = %v, want ErrInvalidDataURI", err)
			}
		})
	}
}

func TestCompactDataURI(t *testing.T) {
	p := NewProcessor(50, 0)

	remote := "https://images.unsplash.com/photo.jpg"
	if got, err := p.CompactDataURI(remote); err != nil || got != remote {
		t.Errorf("remote URL changed: %q, %v", got, err)
	}

	uri := EncodeDataURI(model.MimeTypePNG, encodePNG(t, createTestImage(200, 100)))
	got, err := p.CompactDataURI(uri)
	if err != nil {
		t.Fatalf("CompactDataURI: %v", err)
	}
	_, data, err := DecodeDataURI(got)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image.Decode: %v", err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("width = %d, want 50", img.Bounds().Dx())
	}
}

func TestApplyOrientation(t *testing.T) {
	img := createTestImage(40, 20)

	tests := []struct {
		orientation int
		wantW       int
		wantH       int
	}{
		{1, 40, 20},
		{3, 40, 20},
		{6, 20, 40},
		{8, 20, 40},
	}
	for _, tt := range tests {
		b := applyOrientation(img, tt.orientation).Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("orientation %d: %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
		}
	}
}

// withDeclaredSize rewrites the IHDR chunk of a PNG so it claims the given
// dimensions while the pixel data stays tiny.
func withDeclaredSize(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()
	if len(data) < 33 || string(data[12:16]) != "IHDR" {
		t.Fatal("unexpected PNG layout")
	}
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompact_RejectsHugeDimensions(t *testing.T) {
	p := NewProcessor(0, 0)
	data := withDeclaredSize(t, encodePNG(t, image.NewGray(image.Rect(0, 0, 1, 1))), 12000, 12000)

	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if w != 12000 || h != 12000 {
		t.Fatalf("Dimensions = %dx%d, want 12000x12000", w, h)
	}

	if _, err := p.Compact(data); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Compact error = %v, want ErrImageTooLarge", err)
	}
	if _, err := p.CompactDataURI(EncodeDataURI(model.MimeTypePNG, data)); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("CompactDataURI error = %v, want ErrImageTooLarge", err)
	}
}

func TestCompact_AcceptsAtPixelLimit(t *testing.T) {
	data := encodePNG(t, createTestImage(10, 10))
	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if w*h > MaxPixels {
		t.Fatalf("test image unexpectedly over limit")
	}
	if _, err := NewProcessor(0, 0).Compact(data); err != nil {
		t.Errorf("Compact: %v", err)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging compacts images before they are stored as data URIs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/bsr-go/internal/model"
)

// Errors returned by the processor.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDataURI    = errors.New("invalid image data URI")
	ErrImageTooLarge     = errors.New("image dimensions too large")
)

// Defaults for stored images.
const (
	DefaultMaxWidth = 1200
	DefaultQuality  = 82

	// MaxPixels caps width*height of accepted images. A decoded image
	// costs up to 4 bytes per pixel, so this bounds memory at about 160 MB.
	MaxPixels = 40_000_000
)

// Result is a compacted image.
type Result struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// DataURI encodes the result as a base64 data URI.
func (r Result) DataURI() string {
	return EncodeDataURI(r.MIMEType, r.Data)
}

// Processor shrinks images so they fit the storage quota.
type Processor struct {
	maxWidth int
	quality  int
}

// NewProcessor creates a processor. Zero values select the defaults.
func NewProcessor(maxWidth, quality int) *Processor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Processor{maxWidth: maxWidth, quality: quality}
}

// Compact decodes data, applies the EXIF orientation, scales it down to the
// maximum width and re-encodes it. PNG stays PNG; everything else becomes JPEG.
// Images declaring more than MaxPixels are rejected before decoding.
func (p *Processor) Compact(data []byte) (Result, error) {
	format := detectFormat(data)
	if format == "" {
		return Result{}, ErrUnsupportedFormat
	}

	width, height, err := Dimensions(data)
	if err != nil {
		return Result{}, err
	}
	if width*height > MaxPixels {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding image: %w", err)
	}

	if format == "jpeg" {
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	}

	if img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	out, mimeType, err := p.encode(img, format)
	if err != nil {
		return Result{}, fmt.Errorf("encoding image: %w", err)
	}

	bounds := img.Bounds()
	return Result{
		MIMEType: mimeType,
		Data:     out,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

// Dimensions reads the image size from its header without decoding pixels.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("reading image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// CompactDataURI compacts the image carried by a data URI. Remote URLs are
// returned untouched.
func (p *Processor) CompactDataURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return uri, nil
	}
	_, data, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	res, err := p.Compact(data)
	if err != nil {
		return "", err
	}
	return res.DataURI(), nil
}

func (p *Processor) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), model.MimeTypePNG, nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), model.MimeTypeJPEG, nil
}

// EncodeDataURI builds a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 image data URI into its MIME type and bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mimeType, "image/") {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mimeType, data, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies an EXIF orientation (1-8) to an image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

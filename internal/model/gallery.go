// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"
)

// Supported MIME types for generated and uploaded images.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeWebP = "image/webp"
)

// GalleryImage is a captioned picture shown in the gallery.
// URL is either a remote address or a data URI.
type GalleryImage struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks required fields.
func (g GalleryImage) Validate() error {
	var errs []error
	if g.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if !strings.HasPrefix(g.URL, "http://") && !strings.HasPrefix(g.URL, "https://") && !strings.HasPrefix(g.URL, "data:image/") {
		errs = append(errs, errors.New("url must be an http(s) address or an image data URI"))
	}
	return errors.Join(errs...)
}

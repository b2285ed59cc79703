// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/olegiv/bsr-go/internal/imaging"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

const (
	msgGalleryFieldsRequired = "Please provide both an image and a caption."
	msgGalleryNotFound       = "Image not found"
	msgUnsupportedImage      = "Unsupported image. Please upload a JPEG, PNG, GIF or WebP file."
)

// GalleryHandler serves and manages gallery images.
type GalleryHandler struct {
	store  *store.Store
	images *imaging.Processor
	text   *TextPolicy
	logger *slog.Logger
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(st *store.Store, images *imaging.Processor, text *TextPolicy, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		store:  st,
		images: images,
		text:   text,
		logger: logger.With("component", "gallery"),
	}
}

type galleryRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// List handles GET /api/gallery.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.store.GetGallery(r.Context())
	if err = tolerateCorrupt(h.logger, "list gallery", err); err != nil {
		writeStoreError(w, h.logger, "list gallery", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"images": images})
}

// Create handles POST /api/admin/gallery.
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req galleryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	img := model.GalleryImage{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if !h.apply(w, &img, req) {
		return
	}

	if err := h.store.SaveGalleryImage(r.Context(), img); err != nil {
		writeStoreError(w, h.logger, "create gallery image", err)
		return
	}

	h.logger.Info("gallery image added", "image_id", img.ID)
	writeJSONCreated(w, map[string]any{"image": img})
}

// Update handles PUT /api/admin/gallery/{id}.
func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	images, err := h.store.GetGallery(r.Context())
	if err = tolerateCorrupt(h.logger, "find gallery image", err); err != nil {
		writeStoreError(w, h.logger, "find gallery image", err)
		return
	}

	var (
		img   model.GalleryImage
		found bool
	)
	for _, g := range images {
		if g.ID == id {
			img, found = g, true
			break
		}
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, msgGalleryNotFound)
		return
	}

	var req galleryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.apply(w, &img, req) {
		return
	}

	if err := h.store.UpdateGalleryImage(r.Context(), img); err != nil {
		writeStoreError(w, h.logger, "update gallery image", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"image": img})
}

// Delete handles DELETE /api/admin/gallery/{id}.
func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteGalleryImage(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, "delete gallery image", err)
		return
	}

	h.logger.Info("gallery image deleted", "image_id", id)
	writeJSONSuccess(w, nil)
}

func (h *GalleryHandler) apply(w http.ResponseWriter, img *model.GalleryImage, req galleryRequest) bool {
	url := strings.TrimSpace(req.URL)
	caption := h.text.Plain(req.Caption)
	if url == "" || caption == "" {
		writeJSONError(w, http.StatusBadRequest, msgGalleryFieldsRequired)
		return false
	}

	compacted, err := h.images.CompactDataURI(url)
	if err != nil {
		h.logger.Warn("rejected gallery image", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgUnsupportedImage)
		return false
	}

	img.URL = compacted
	img.Caption = caption
	if err := img.Validate(); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

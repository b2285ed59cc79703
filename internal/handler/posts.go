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
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

// DefaultPostImageURL is used when a post is created without an image.
const DefaultPostImageURL = "https://images.unsplash.com/photo-1504052434569-70ad5836ab65?auto=format&fit=crop&q=80&w=800"

const (
	msgPostFieldsRequired = "Please fill in all required fields."
	msgPostNotFound       = "Post not found"
)

// PostsHandler serves reflections to readers and manages them for admins.
type PostsHandler struct {
	store  *store.Store
	images *imaging.Processor
	text   *TextPolicy
	logger *slog.Logger
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(st *store.Store, images *imaging.Processor, text *TextPolicy, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		store:  st,
		images: images,
		text:   text,
		logger: logger.With("component", "posts"),
	}
}

type postRequest struct {
	Title      string `json:"title"`
	Verse      string `json:"verse"`
	Reflection string `json:"reflection"`
	ImageURL   string `json:"imageUrl"`
	Tags       string `json:"tags"`
	Language   string `json:"language"`
}

type postResponse struct {
	model.Post
	ReflectionHTML string `json:"reflectionHtml"`
}

// List handles GET /api/posts. Posts are filtered by the request
// language; when none match, all posts are returned and fallback is set.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.GetPosts(r.Context())
	if err = tolerateCorrupt(h.logger, "list posts", err); err != nil {
		writeStoreError(w, h.logger, "list posts", err)
		return
	}

	lang := middleware.GetLanguage(r)
	filtered := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p.Language == lang {
			filtered = append(filtered, p)
		}
	}

	fallback := false
	if len(filtered) == 0 && len(posts) > 0 {
		filtered = posts
		fallback = true
	}

	writeJSONSuccess(w, map[string]any{
		"posts":    filtered,
		"language": lang,
		"fallback": fallback,
	})
}

// Get handles GET /api/posts/{id}.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, ok := h.find(w, r)
	if !ok {
		return
	}

	rendered, err := h.text.RenderMarkdown(post.Reflection)
	if err != nil {
		h.logger.Error("failed to render reflection", "post_id", post.ID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSONSuccess(w, map[string]any{
		"post": postResponse{Post: post, ReflectionHTML: rendered},
	})
}

// Create handles POST /api/admin/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post := model.Post{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Tags:      []string{},
	}
	if user := middleware.GetUser(r); user != nil {
		post.AuthorID = user.ID
	}
	if !h.apply(w, r, &post, req) {
		return
	}

	if err := h.store.SavePost(r.Context(), post); err != nil {
		writeStoreError(w, h.logger, "create post", err)
		return
	}

	h.logger.Info("post created", "post_id", post.ID, "language", post.Language)
	writeJSONCreated(w, map[string]any{"post": post})
}

// Update handles PUT /api/admin/posts/{id}.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, ok := h.find(w, r)
	if !ok {
		return
	}

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.apply(w, r, &post, req) {
		return
	}

	if err := h.store.UpdatePost(r.Context(), post); err != nil {
		writeStoreError(w, h.logger, "update post", err)
		return
	}

	h.logger.Info("post updated", "post_id", post.ID)
	writeJSONSuccess(w, map[string]any{"post": post})
}

// Delete handles DELETE /api/admin/posts/{id}.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeletePost(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, "delete post", err)
		return
	}

	h.logger.Info("post deleted", "post_id", id)
	writeJSONSuccess(w, nil)
}

func (h *PostsHandler) find(w http.ResponseWriter, r *http.Request) (model.Post, bool) {
	id := chi.URLParam(r, "id")
	post, found, err := h.store.FindPost(r.Context(), id)
	if err = tolerateCorrupt(h.logger, "find post", err); err != nil {
		writeStoreError(w, h.logger, "find post", err)
		return model.Post{}, false
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, msgPostNotFound)
		return model.Post{}, false
	}
	return post, true
}

// apply copies the editable fields of req onto post.
func (h *PostsHandler) apply(w http.ResponseWriter, r *http.Request, post *model.Post, req postRequest) bool {
	title := h.text.Plain(req.Title)
	verse := h.text.Plain(req.Verse)
	reflection := strings.TrimSpace(req.Reflection)
	if title == "" || verse == "" || reflection == "" {
		writeJSONError(w, http.StatusBadRequest, msgPostFieldsRequired)
		return false
	}

	lang, ok := requestLanguage(w, r, req.Language)
	if !ok {
		return false
	}

	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		imageURL = post.ImageURL
	}
	if imageURL == "" {
		imageURL = DefaultPostImageURL
	}
	compacted, err := h.images.CompactDataURI(imageURL)
	if err != nil {
		h.logger.Warn("rejected post image", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgUnsupportedImage)
		return false
	}

	post.Title = title
	post.Verse = verse
	post.Reflection = reflection
	post.ImageURL = compacted
	post.Tags = model.ParseTags(req.Tags)
	post.Language = lang

	if err := post.Validate(); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

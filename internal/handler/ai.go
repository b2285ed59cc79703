// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/imaging"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/model"
)

const (
	msgVerseRequired    = "Please enter a verse first."
	msgReflectionFailed = "AI generation failed. Please write manually."
	msgPromptRequired   = "Enter a prompt for the AI to imagine."
	msgImageFailed      = "Image generation failed."
)

// DefaultPassageReference is looked up when no reference is given.
const DefaultPassageReference = "John 3:16"

// PopularVerses are offered as shortcuts on the reading page.
var PopularVerses = []string{"Psalm 23", "Romans 8:28", "Jeremiah 29:11", "Philippians 4:13", "Matthew 5:1-12"}

// AIHandler exposes the generation helpers of the AI façade.
// Failures are not HTTP errors: the body carries ok=false, the fallback
// content and a reason label.
type AIHandler struct {
	facade *ai.Facade
	images *imaging.Processor
	text   *TextPolicy
	logger *slog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(facade *ai.Facade, images *imaging.Processor, text *TextPolicy, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		facade: facade,
		images: images,
		text:   text,
		logger: logger.With("component", "ai_handler"),
	}
}

type reflectionRequest struct {
	Verse    string `json:"verse"`
	Language string `json:"language"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

// Reflection handles POST /api/admin/ai/reflection.
func (h *AIHandler) Reflection(w http.ResponseWriter, r *http.Request) {
	var req reflectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	verse := h.text.Plain(req.Verse)
	if verse == "" {
		writeJSONError(w, http.StatusBadRequest, msgVerseRequired)
		return
	}
	lang, ok := requestLanguage(w, r, req.Language)
	if !ok {
		return
	}

	res := h.facade.GenerateReflection(r.Context(), verse, lang)
	data := map[string]any{
		"reflection": res.Value,
		"language":   lang,
	}
	if !res.OK {
		h.logger.Warn("reflection generation failed", "reason", ai.Reason(res.Err), "error", res.Err)
		data["message"] = msgReflectionFailed
	}
	writeAIResult(w, res.OK, res.Err, data)
}

// Image handles POST /api/admin/ai/image. The generated picture is
// compacted and returned as a data URI.
func (h *AIHandler) Image(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prompt := h.text.Plain(req.Prompt)
	if prompt == "" {
		writeJSONError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}

	res := h.facade.GenerateImage(r.Context(), prompt)
	if !res.OK {
		h.logger.Warn("image generation failed", "reason", ai.Reason(res.Err), "error", res.Err)
		writeAIResult(w, false, res.Err, map[string]any{
			"imageUrl": "",
			"message":  msgImageFailed,
		})
		return
	}

	uri := res.Value.DataURI()
	if compacted, err := h.images.Compact(res.Value.Data); err == nil {
		uri = compacted.DataURI()
	} else {
		h.logger.Warn("could not compact generated image, storing as is", "error", err)
	}
	writeAIResult(w, true, nil, map[string]any{"imageUrl": uri})
}

// Passage handles GET /api/bible/passage?reference=...
func (h *AIHandler) Passage(w http.ResponseWriter, r *http.Request) {
	reference := h.text.Plain(r.URL.Query().Get("reference"))
	if reference == "" {
		reference = DefaultPassageReference
	}
	lang := middleware.GetLanguage(r)

	res := h.facade.FetchPassage(r.Context(), reference, lang)
	if !res.OK {
		h.logger.Warn("passage lookup failed", "reference", reference, "reason", ai.Reason(res.Err), "error", res.Err)
	}
	writeAIResult(w, res.OK, res.Err, map[string]any{
		"reference":     reference,
		"language":      lang,
		"verse":         res.Value.Verse,
		"context":       res.Value.Context,
		"popularVerses": PopularVerses,
	})
}

// writeAIResult adds the outcome fields to data and writes a 200.
func writeAIResult(w http.ResponseWriter, ok bool, err error, data map[string]any) {
	data["ok"] = ok
	data["fallback"] = !ok
	data["reason"] = ai.Reason(err)
	writeJSONSuccess(w, data)
}

// requestLanguage prefers an explicit body field over the request language.
func requestLanguage(w http.ResponseWriter, r *http.Request, field string) (model.Language, bool) {
	if strings.TrimSpace(field) == "" {
		return middleware.GetLanguage(r), true
	}
	lang, err := model.ParseLanguage(field)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return lang, true
}

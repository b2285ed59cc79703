// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// TextPolicy cleans user input and renders stored Markdown.
type TextPolicy struct {
	strict   *bluemonday.Policy
	ugc      *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewTextPolicy creates the sanitizing and rendering policy.
func NewTextPolicy() *TextPolicy {
	return &TextPolicy{
		strict:   bluemonday.StrictPolicy(),
		ugc:      bluemonday.UGCPolicy(),
		markdown: goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
	}
}

// Plain strips all markup from s and trims it. Entities produced by the
// sanitizer are decoded again, so "&" stays "&" in storage.
func (p *TextPolicy) Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(p.strict.Sanitize(s)))
}

// RenderMarkdown converts Markdown to sanitized HTML.
func (p *TextPolicy) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return p.ugc.Sanitize(buf.String()), nil
}

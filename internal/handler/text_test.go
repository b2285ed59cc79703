// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"strings"
	"testing"
)

func TestTextPolicy_Plain(t *testing.T) {
	p := NewTextPolicy()

	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"<script>alert(1)</script>Hi", "Hi"},
		{"<b>Bold</b> & brave", "Bold & brave"},
		{"Jean's \"quote\"", "Jean's \"quote\""},
	}
	for _, tt := range tests {
		if got := p.Plain(tt.in); got != tt.want {
			t.Errorf("Plain(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextPolicy_RenderMarkdown(t *testing.T) {
	p := NewTextPolicy()

	got, err := p.RenderMarkdown("First paragraph with **hope**.\n\nSecond <script>alert(1)</script> paragraph.")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(got, "<strong>hope</strong>") {
		t.Errorf("missing emphasis in %q", got)
	}
	if strings.Count(got, "<p>") != 2 {
		t.Errorf("want two paragraphs, got %q", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("script survived sanitizing: %q", got)
	}
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"English", LanguageEnglish, false},
		{"english", LanguageEnglish, false},
		{"en", LanguageEnglish, false},
		{"Kinyarwanda", LanguageKinyarwanda, false},
		{"rw", LanguageKinyarwanda, false},
		{"French", LanguageFrench, false},
		{"fr", LanguageFrench, false},
		{"Swahili", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLanguage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguageValid(t *testing.T) {
	for _, l := range Languages {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if Language("German").Valid() {
		t.Error("German should not be valid")
	}
}

func TestLanguageCode(t *testing.T) {
	if got := LanguageKinyarwanda.Code(); got != "rw" {
		t.Errorf("Code() = %q, want rw", got)
	}
	if got := LanguageFrench.Code(); got != "fr" {
		t.Errorf("Code() = %q, want fr", got)
	}
	if got := LanguageEnglish.Code(); got != "en" {
		t.Errorf("Code() = %q, want en", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   Language
	}{
		{"", LanguageEnglish},
		{"fr-FR,fr;q=0.9,en;q=0.5", LanguageFrench},
		{"rw-RW", LanguageKinyarwanda},
		{"en-US", LanguageEnglish},
		{"de-DE", LanguageEnglish},
		{"not a header;;", LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := MatchLanguage(tt.header); got != tt.want {
				t.Errorf("MatchLanguage(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

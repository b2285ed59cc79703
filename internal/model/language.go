// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the three content languages of the ministry site.
type Language string

// Supported content languages.
const (
	LanguageKinyarwanda Language = "Kinyarwanda"
	LanguageEnglish     Language = "English"
	LanguageFrench      Language = "French"
)

// DefaultLanguage is used when a request carries no usable preference.
const DefaultLanguage = LanguageEnglish

// Languages lists the supported languages. English comes first because
// the matcher treats its first entry as the fallback.
var Languages = []Language{LanguageEnglish, LanguageKinyarwanda, LanguageFrench}

var languageTags = []language.Tag{
	language.English,
	language.MustParse("rw"),
	language.French,
}

var languageMatcher = language.NewMatcher(languageTags)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LanguageKinyarwanda, LanguageEnglish, LanguageFrench:
		return true
	}
	return false
}

// Code returns the ISO 639-1 code of the language.
func (l Language) Code() string {
	switch l {
	case LanguageKinyarwanda:
		return "rw"
	case LanguageFrench:
		return "fr"
	default:
		return "en"
	}
}

// ParseLanguage accepts the English language name (any case) or its ISO code.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kinyarwanda", "rw", "kin":
		return LanguageKinyarwanda, nil
	case "english", "en":
		return LanguageEnglish, nil
	case "french", "fr", "français", "francais":
		return LanguageFrench, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// MatchLanguage picks the best supported language for an Accept-Language header value.
func MatchLanguage(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, confidence := languageMatcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(Languages) {
		return DefaultLanguage
	}
	return Languages[idx]
}

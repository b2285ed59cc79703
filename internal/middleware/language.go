// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/olegiv/bsr-go/internal/model"
)

// LanguageQueryParam is the query parameter selecting the content language.
const LanguageQueryParam = "language"

// Language creates middleware that resolves the content language.
// Priority order:
// 1. Query parameter ?language= (name or ISO code)
// 2. Accept-Language header
// 3. English
func Language(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := model.DefaultLanguage
		if q := r.URL.Query().Get(LanguageQueryParam); q != "" {
			parsed, err := model.ParseLanguage(q)
			if err != nil {
				WriteAPIError(w, http.StatusBadRequest, "invalid_language", err.Error(), nil)
				return
			}
			lang = parsed
		} else if accept := r.Header.Get("Accept-Language"); accept != "" {
			lang = model.MatchLanguage(accept)
		}

		ctx := context.WithValue(r.Context(), ContextKeyLanguage, lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLanguage returns the resolved language of the request, or English
// if the Language middleware did not run.
func GetLanguage(r *http.Request) model.Language {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(model.Language); ok {
		return lang
	}
	return model.DefaultLanguage
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"
)

// Post is a devotional reflection on a Bible verse.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Verse      string    `json:"verse"`
	Reflection string    `json:"reflection"`
	AuthorID   string    `json:"authorId"`
	CreatedAt  time.Time `json:"createdAt"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Tags       []string  `json:"tags"`
	Language   Language  `json:"language"`
}

// Validate checks required fields and the language enum.
func (p Post) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if strings.TrimSpace(p.Verse) == "" {
		errs = append(errs, errors.New("verse is required"))
	}
	if !p.Language.Valid() {
		errs = append(errs, errors.New("language must be Kinyarwanda, English or French"))
	}
	return errors.Join(errs...)
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"
)

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks required fields.
func (m ContactMessage) Validate() error {
	var errs []error
	if m.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !strings.Contains(m.Email, "@") {
		errs = append(errs, errors.New("a valid email is required"))
	}
	if strings.TrimSpace(m.Message) == "" {
		errs = append(errs, errors.New("message is required"))
	}
	return errors.Join(errs...)
}

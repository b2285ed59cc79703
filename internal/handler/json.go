// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/bsr-go/internal/store"
)

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONSuccess writes a JSON success response.
func writeJSONSuccess(w http.ResponseWriter, data map[string]any) {
	writeJSONStatus(w, http.StatusOK, data)
}

// writeJSONCreated writes a 201 JSON success response.
func writeJSONCreated(w http.ResponseWriter, data map[string]any) {
	writeJSONStatus(w, http.StatusCreated, data)
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if data == nil {
		data = make(map[string]any)
	}
	data["success"] = true
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields
// and oversized bodies. On failure it writes an error and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

// writeValidationError reports joined validation errors as a single 400.
func writeValidationError(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, strings.ReplaceAll(err.Error(), "\n", "; "))
}

// writeStoreError maps store failures to HTTP statuses.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var (
		full    *store.StorageFullError
		corrupt *store.CorruptStoreError
		invalid *store.ValidationError
	)
	switch {
	case errors.As(err, &invalid):
		writeValidationError(w, invalid.Err)
	case errors.As(err, &full):
		logger.Warn("storage full", "op", op, "key", full.Key, "error", err)
		writeJSONError(w, http.StatusInsufficientStorage, "Storage is full. Remove some images or posts and try again.")
	case errors.As(err, &corrupt):
		logger.Error("corrupt collection reset", "op", op, "key", corrupt.Key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Stored data was unreadable and has been reset.")
	default:
		logger.Error("store operation failed", "op", op, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// tolerateCorrupt turns a CorruptStoreError on a read into a logged
// warning, so readers get the fallback contents instead of a failure.
func tolerateCorrupt(logger *slog.Logger, op string, err error) error {
	var corrupt *store.CorruptStoreError
	if errors.As(err, &corrupt) {
		logger.Error("corrupt collection reset", "op", op, "key", corrupt.Key, "error", err)
		return nil
	}
	return err
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"encoding/base64"
)

// Provider IDs.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Provider is a remote generative model backend.
// Implementations return classified errors (see errors.go).
type Provider interface {
	ID() string
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
	StreamChat(ctx context.Context, req ChatRequest) (FragmentReader, error)
}

// TextRequest is a single-shot text generation request.
type TextRequest struct {
	Model           string
	Prompt          string
	Temperature     float64 // 0 = provider default
	MaxOutputTokens int     // 0 = provider default
	JSON            bool    // request a JSON object response
}

// ImageRequest is an image generation request.
type ImageRequest struct {
	Model  string
	Prompt string
}

// Speaker identifies who produced a chat turn.
type Speaker string

// Chat speakers.
const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Turn is one message of a chat history.
type Turn struct {
	Speaker Speaker
	Text    string
}

// ChatRequest submits one chat turn with the preceding history.
type ChatRequest struct {
	Model   string
	System  string
	History []Turn
	Message string
}

// FragmentReader yields the text fragments of a streamed reply.
// Recv returns io.EOF after the last fragment.
type FragmentReader interface {
	Recv() (string, error)
	Close() error
}

// Image is a generated image.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes the image as a base64 data URI.
func (img Image) DataURI() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// maxSSELine bounds a single server-sent event line.
const maxSSELine = 4 << 20

// geminiProvider talks to the Generative Language REST API.
type geminiProvider struct {
	client *resty.Client
}

func newGeminiProvider(baseURL, apiKey string) *geminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", apiKey)

	return &geminiProvider{client: c}
}

func (p *geminiProvider) ID() string { return ProviderGemini }

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// text joins the text parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func userContent(text string) geminiContent {
	return geminiContent{Role: "user", Parts: []geminiPart{{Text: text}}}
}

func (p *geminiProvider) generate(ctx context.Context, op, model string, body *geminiRequest) (*geminiResponse, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1beta/models/" + model + ":generateContent")
	if err != nil {
		return nil, &RemoteUnavailableError{Op: op, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, classifyStatus(op, resp.StatusCode(), resp.Header(), resp.String())
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &MalformedResponseError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(out.Candidates) == 0 {
		reason := "no candidates returned"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + out.PromptFeedback.BlockReason
		}
		return nil, &MalformedResponseError{Op: op, Err: errors.New(reason)}
	}
	return &out, nil
}

// GenerateText returns the text of the first candidate. Empty text is not
// an error here; the façade decides what an empty answer means.
func (p *geminiProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	op := opReflection
	body := &geminiRequest{Contents: []geminiContent{userContent(req.Prompt)}}

	cfg := &geminiGenerationConfig{MaxOutputTokens: req.MaxOutputTokens}
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	if req.JSON {
		op = opPassage
		cfg.ResponseMimeType = "application/json"
	}
	body.GenerationConfig = cfg

	out, err := p.generate(ctx, op, req.Model, body)
	if err != nil {
		return "", err
	}
	return out.text(), nil
}

// GenerateImage returns the first inline image part of the first candidate.
func (p *geminiProvider) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	out, err := p.generate(ctx, opImage, req.Model, &geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	for _, part := range out.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, &MalformedResponseError{Op: opImage, Err: fmt.Errorf("image base64 decode: %w", err)}
		}
		return &Image{MIMEType: part.InlineData.MimeType, Data: data}, nil
	}
	return nil, ErrNoImage
}

// StreamChat opens a server-sent events stream for one chat turn.
func (p *geminiProvider) StreamChat(ctx context.Context, req ChatRequest) (FragmentReader, error) {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := "user"
		if turn.Speaker == SpeakerModel {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Text}}})
	}
	contents = append(contents, userContent(req.Message))

	body := &geminiRequest{Contents: contents}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetQueryParam("alt", "sse").
		SetDoNotParseResponse(true).
		Post("/v1beta/models/" + req.Model + ":streamGenerateContent")
	if err != nil {
		return nil, &RemoteUnavailableError{Op: opChat, Err: err}
	}

	raw := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		defer func() { _ = raw.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(raw, 4096))
		return nil, classifyStatus(opChat, resp.StatusCode(), resp.Header(), string(msg))
	}

	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &geminiStream{body: raw, scanner: scanner}, nil
}

// geminiStream decodes "data:" lines of an SSE body into text fragments.
type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *geminiStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", &MalformedResponseError{Op: opChat, Err: fmt.Errorf("decode chunk: %w", err)}
		}
		return chunk.text(), nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}

// Ensure geminiProvider implements Provider.
var _ Provider = (*geminiProvider)(nil)

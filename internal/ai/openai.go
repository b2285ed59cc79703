// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"
)

// openAIProvider uses the official OpenAI SDK. Retries are left to the façade.
type openAIProvider struct {
	client openai.Client
}

func newOpenAIProvider(baseURL, apiKey string) *openAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{client: openai.NewClient(opts...)}
}

func (p *openAIProvider) ID() string { return ProviderOpenAI }

func (p *openAIProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	op := opReflection
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.JSON {
		op = opPassage
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(op, err)
	}
	if len(completion.Choices) == 0 {
		return "", &MalformedResponseError{Op: op, Err: errors.New("no choices returned")}
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *openAIProvider) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          openai.ImageModel(req.Model),
		Prompt:         req.Prompt,
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classifyOpenAIError(opImage, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &MalformedResponseError{Op: opImage, Err: fmt.Errorf("image base64 decode: %w", err)}
	}
	return &Image{MIMEType: http.DetectContentType(data), Data: data}, nil
}

func (p *openAIProvider) StreamChat(ctx context.Context, req ChatRequest) (FragmentReader, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		if turn.Speaker == SpeakerModel {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.Message))

	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	})
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, classifyOpenAIError(opChat, err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openAIStream) Recv() (string, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return "", classifyOpenAIError(opChat, err)
		}
		return "", io.EOF
	}

	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// classifyOpenAIError maps SDK errors onto the façade taxonomy.
func classifyOpenAIError(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(op, apiErr.StatusCode, header, apiErr.Error())
	}
	return &RemoteUnavailableError{Op: op, Err: err}
}

// Ensure openAIProvider implements Provider.
var _ Provider = (*openAIProvider)(nil)

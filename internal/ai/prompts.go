// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/bsr-go/internal/model"
)

// Fallback content returned on failure paths.
const (
	ReflectionEmptyFallback = "No reflection could be generated at this time."
	PassageNotFound         = "Passage not found."
	PassageNoContext        = "No context available."
	PassageUnavailable      = "Unable to retrieve the passage at this moment."
)

// Sampling parameters for reflections.
const (
	reflectionTemperature     = 0.7
	reflectionMaxOutputTokens = 1000
)

// AssistantName is the persona of the chat assistant.
const AssistantName = "BSR Faith Assistant"

// ReflectionErrorFallback is returned when reflection generation fails.
func ReflectionErrorFallback(lang model.Language) string {
	return fmt.Sprintf("Error generating reflection in %s. Please write manually.", lang)
}

func buildReflectionPrompt(verse string, lang model.Language) string {
	return fmt.Sprintf(`Provide a thoughtful, short reflection (2-3 paragraphs) on the Bible verse: "%s".
Write the entire reflection in the %s language.
Contextualize it slightly for the people of Rwanda, focusing on themes of hope, unity, and faith.
Use a warm and pastoral tone.`, verse, lang)
}

func buildImagePrompt(prompt string) string {
	return fmt.Sprintf(`A high-quality, professional, and inspiring photography-style image for a Christian ministry in Rwanda.
The scene should be: %s.
Style: Soft natural lighting, cinematic composition, warm colors, hopeful atmosphere.
Avoid blurry elements, focus on sharp details.`, prompt)
}

func buildPassagePrompt(reference string, lang model.Language) string {
	return fmt.Sprintf(`Provide the full text of the Bible passage: "%s".
The text MUST be in the %s language.
Also provide a very brief historical or thematic context (1-2 sentences) in %s.
Format the output as a JSON object with keys "text" and "context".
Do not include markdown formatting like `+"```json"+`.`, reference, lang, lang)
}

func buildChatInstruction(lang model.Language) string {
	return fmt.Sprintf(`You are the "%s", a wise and compassionate spiritual guide for the Bible Society of Rwanda.
Your goal is to help users engage deeply with the Bible.
- Always respond in %s.
- Use a pastoral, encouraging, and respectful tone.
- When quoting scripture, mention the reference.
- Provide comfort, theological explanations, or prayer when requested.
- Be sensitive to the Rwandan context of reconciliation and faith.`, AssistantName, lang)
}

// Passage is a Bible passage with a short context note.
type Passage struct {
	Verse   string `json:"verse"`
	Context string `json:"context"`
}

type passagePayload struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// parsePassage decodes the model's JSON answer. A missing context is
// replaced by a placeholder; a missing text or undecodable body yields
// the not-found placeholders and a *MalformedResponseError.
func parsePassage(response string) (Passage, error) {
	notFound := Passage{Verse: PassageNotFound, Context: PassageNoContext}

	var payload passagePayload
	if err := decodeJSONObject(response, &payload); err != nil {
		return notFound, &MalformedResponseError{Op: opPassage, Err: err}
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return notFound, &MalformedResponseError{Op: opPassage, Err: errors.New("missing passage text")}
	}

	ctx := strings.TrimSpace(payload.Context)
	if ctx == "" {
		ctx = PassageNoContext
	}
	return Passage{Verse: text, Context: ctx}, nil
}

// decodeJSONObject parses a JSON object, tolerating markdown code fences
// and surrounding prose.
func decodeJSONObject(response string, v any) error {
	cleaned := stripCodeFences(response)

	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON found in response: %w", err)
	}
	if err2 := json.Unmarshal([]byte(response[start:end+1]), v); err2 != nil {
		return fmt.Errorf("could not parse JSON from response: %w (original: %w)", err2, err)
	}
	return nil
}

func stripCodeFences(s string) string {
	cleaned := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = strings.TrimPrefix(cleaned, "```json")
	case strings.HasPrefix(cleaned, "```"):
		cleaned = strings.TrimPrefix(cleaned, "```")
	default:
		return cleaned
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

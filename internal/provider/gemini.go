// ABOUTME: Gemini adapter over the generateContent API.
// ABOUTME: System turns map to systemInstruction; assistant turns to "model".

package provider

import (
	"context"
	"fmt"
	"time"
)

const geminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-flash-preview:generateContent"

// Gemini completes conversations through the generateContent API.
type Gemini struct {
	Model  string
	APIKey string

	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiResult struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	var system string
	var contents []geminiContent
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	body := map[string]any{"contents": contents}
	if system != "" {
		body["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	url := g.BaseURL
	if url == "" {
		url = geminiURL
	}

	var result geminiResult
	err := postJSON(ctx, url, map[string]string{"x-goog-api-key": g.APIKey}, body, 180*time.Second, &result)
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

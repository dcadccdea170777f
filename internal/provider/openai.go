// ABOUTME: OpenAI adapter over the responses API.
// ABOUTME: Web search is enabled for the model families that support it.

package provider

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const openAIURL = "https://api.openai.com/v1/responses"

// OpenAI completes conversations through the OpenAI responses API.
type OpenAI struct {
	Model  string
	APIKey string

	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	body := map[string]any{
		"model": o.Model,
		"input": messages,
	}
	if strings.Contains(o.Model, "5") {
		body["tools"] = []map[string]string{{"type": "web_search"}}
	}

	url := o.BaseURL
	if url == "" {
		url = openAIURL
	}

	var result responsesResult
	err := postJSON(ctx, url, map[string]string{"Authorization": "Bearer " + o.APIKey}, body, 180*time.Second, &result)
	if err != nil {
		return "", err
	}
	if text := result.text(); text != "" {
		return text, nil
	}
	// No message text in the output; surface the raw shape so the failure
	// is visible in the transcript instead of silently empty.
	raw, _ := json.Marshal(result)
	return string(raw), nil
}

// ABOUTME: xAI adapter over their responses-compatible API.
// ABOUTME: Reasoning models can think for a long time; the timeout allows it.

package provider

import (
	"context"
	"encoding/json"
	"time"
)

const (
	xaiURL   = "https://api.x.ai/v1/responses"
	xaiModel = "grok-4-1-fast-reasoning"
)

// XAI completes conversations through the xAI responses API. The concrete
// model is pinned; "grok" in the request only selects this adapter.
type XAI struct {
	APIKey string

	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

func (x *XAI) Name() string { return "xai" }

func (x *XAI) Complete(ctx context.Context, messages []Message) (string, error) {
	body := map[string]any{
		"model": xaiModel,
		"input": messages,
	}

	url := x.BaseURL
	if url == "" {
		url = xaiURL
	}

	var result responsesResult
	err := postJSON(ctx, url, map[string]string{"Authorization": "Bearer " + x.APIKey}, body, 3600*time.Second, &result)
	if err != nil {
		return "", err
	}
	if text := result.text(); text != "" {
		return text, nil
	}
	raw, _ := json.Marshal(result)
	return string(raw), nil
}

// ABOUTME: Completer interface, model routing, and the shared HTTP plumbing.
// ABOUTME: Remote API errors surface with their status code and server message.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one conversation turn. Role is "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces one assistant completion for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// APIError is a non-2xx response from a provider, carrying the server's own
// error message when one could be extracted.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// ForModel routes a model name to its adapter by substring, so point
// releases (gpt-5.2, gemini-3-pro) work without a code change.
func ForModel(model, apiKey string) (Completer, error) {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gpt"):
		return &OpenAI{Model: model, APIKey: apiKey}, nil
	case strings.Contains(lower, "gemini"):
		return &Gemini{Model: model, APIKey: apiKey}, nil
	case strings.Contains(lower, "grok"):
		return &XAI{APIKey: apiKey}, nil
	}
	return nil, fmt.Errorf("unknown model: %s", model)
}

// Keys holds server-side fallback API keys per backend family, used when a
// request carries no key of its own.
type Keys struct {
	OpenAI string
	Gemini string
	XAI    string
}

// For returns the configured key for the backend that ForModel would route
// model to, or "" when none is configured.
func (k Keys) For(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "gpt"):
		return k.OpenAI
	case strings.Contains(lower, "gemini"):
		return k.Gemini
	case strings.Contains(lower, "grok"):
		return k.XAI
	}
	return ""
}

var httpClient = &http.Client{}

// postJSON sends one JSON request and decodes the JSON response into out.
// Non-2xx responses become *APIError with the body's error message when the
// body is the conventional {"error": {"message": ...}} shape.
func postJSON(ctx context.Context, url string, headers map[string]string, body any, timeout time.Duration, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: apiErrorMessage(raw)}
	}
	return json.Unmarshal(raw, out)
}

// apiErrorMessage digs the server's message out of an error body, falling
// back to a truncated copy of the body itself.
func apiErrorMessage(raw []byte) string {
	var envelope struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		switch e := envelope.Error.(type) {
		case map[string]any:
			if msg, isStr := e["message"].(string); isStr && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
	}
	body := string(raw)
	if len(body) > 500 {
		body = body[:500]
	}
	return body
}

// ABOUTME: Tests for model routing, responses decoding, and error surfacing.
// ABOUTME: Adapters point at httptest servers; nothing leaves the process.

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForModelRouting(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-5.2", "openai"},
		{"GPT-4o", "openai"},
		{"gemini-3-flash-preview", "gemini"},
		{"grok-4", "xai"},
	}
	for _, tt := range tests {
		c, err := ForModel(tt.model, "key")
		require.NoError(t, err, tt.model)
		assert.Equal(t, tt.want, c.Name())
	}

	_, err := ForModel("llama-3", "key")
	assert.Error(t, err)
}

func responsesBody(text string) map[string]any {
	return map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
}

func TestOpenAICompletes(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(responsesBody("I created the container."))
	}))
	defer srv.Close()

	o := &OpenAI{Model: "gpt-5.2", APIKey: "sk-test", BaseURL: srv.URL}
	text, err := o.Complete(context.Background(), []Message{{Role: "user", Content: "make a container"}})

	require.NoError(t, err)
	assert.Equal(t, "I created the container.", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Contains(t, gotBody, "tools", "gpt-5 family requests web search")
}

func TestOpenAIErrorSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit reached"}}`))
	}))
	defer srv.Close()

	o := &OpenAI{Model: "gpt-4o", APIKey: "sk-test", BaseURL: srv.URL}
	_, err := o.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Status)
	assert.Contains(t, err.Error(), "API error (429): Rate limit reached")
}

func TestGeminiMapsRolesAndSystem(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "done"}}},
			}},
		})
	}))
	defer srv.Close()

	g := &Gemini{Model: "gemini-3-flash-preview", APIKey: "k", BaseURL: srv.URL}
	text, err := g.Complete(context.Background(), []Message{
		{Role: "system", Content: "you are a gateway"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Contains(t, gotBody, "systemInstruction")

	contents := gotBody["contents"].([]any)
	require.Len(t, contents, 2, "system turn must not appear in contents")
	assert.Equal(t, "user", contents[0].(map[string]any)["role"])
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
}

func TestXAIPinsModel(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(responsesBody("ok"))
	}))
	defer srv.Close()

	x := &XAI{APIKey: "k", BaseURL: srv.URL}
	_, err := x.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})

	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast-reasoning", gotBody["model"])
}

func TestResponsesAnnotationSplicing(t *testing.T) {
	r := &responsesResult{}
	raw := `{
		"output": [{
			"type": "message",
			"content": [{
				"type": "output_text",
				"text": "See the release notes for details.",
				"annotations": [{
					"type": "url_citation",
					"url": "https://example.com/notes",
					"title": "release notes",
					"start_index": 8,
					"end_index": 21
				}]
			}]
		}]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), r))

	assert.Equal(t, "See the [release notes](https://example.com/notes) for details.", r.text())
}

func TestResponsesIgnoresNonMessageOutput(t *testing.T) {
	r := &responsesResult{}
	raw := `{"output": [
		{"type": "reasoning", "content": []},
		{"type": "message", "content": [{"type": "output_text", "text": "answer"}]}
	]}`
	require.NoError(t, json.Unmarshal([]byte(raw), r))
	assert.Equal(t, "answer", r.text())
}

func TestKeysFallbackFollowsRouting(t *testing.T) {
	keys := Keys{OpenAI: "sk-openai", Gemini: "sk-gemini", XAI: "sk-xai"}

	assert.Equal(t, "sk-openai", keys.For("gpt-5.2"))
	assert.Equal(t, "sk-gemini", keys.For("gemini-3-flash-preview"))
	assert.Equal(t, "sk-xai", keys.For("grok-4"))
	assert.Equal(t, "", keys.For("llama-3"))
	assert.Equal(t, "", Keys{}.For("gpt-5.2"))
}

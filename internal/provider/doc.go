// ABOUTME: Model provider adapters: OpenAI, Gemini, and xAI backends.
// ABOUTME: All adapters reduce to one call: messages in, assistant text out.

// Package provider turns a conversation into one assistant completion.
//
// The caller supplies the model name and API key per request; ForModel picks
// the adapter by substring so new model versions route without code changes.
// Adapters are synchronous and single-shot: the orchestration loop owns
// retries and round budgets, not this package.
package provider

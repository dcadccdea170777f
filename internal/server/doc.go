// ABOUTME: HTTP surface of the gateway: chat stream, direct execute, health.
// ABOUTME: Serves NDJSON progress events; TLS uses the node's own certificate.

// Package server exposes the gateway over HTTP.
//
// POST /chat runs an orchestration session and streams Event records as
// NDJSON, one object per line. POST /execute runs a single action and
// returns its Result, for frontend buttons that bypass the model. GET
// /health reports liveness. All endpoints answer CORS preflight; Bearer
// auth is enforced when configured.
package server

// ABOUTME: Bearer-token authentication for the HTTP API.
// ABOUTME: Optional; a gateway on a trusted LAN can run open.

// Package auth verifies HS256 JWTs presented as Bearer tokens.
//
// Tokens carry the principal in the "sub" claim. The middleware guards the
// API endpoints when a secret is configured; the token subcommand mints
// tokens for frontends and scripts.
package auth

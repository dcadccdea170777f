// ABOUTME: Embedded ISO catalog and system prompt assembly.
// ABOUTME: Tables and prompt text ship inside the binary; no runtime files.

// Package catalog carries the ISO download tables and renders the system
// prompt that grounds the model in live host state.
//
// Two tables are embedded as TOML: always-current entries whose URLs use
// "latest" symlinks, and URL patterns for versioned releases where the model
// substitutes version placeholders itself. Both render into the prompt so
// the model can pick a known-good URL instead of inventing one.
package catalog

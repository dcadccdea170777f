// ABOUTME: SQLite-backed ledger of executed actions.
// ABOUTME: Append-only; sessions and admins read it, nothing rewrites it.

// Package store persists every executed action with its session, round, and
// outcome. The ledger is the system's audit trail: the chat stream is
// ephemeral, the ledger is what remains after the browser tab closes.
package store

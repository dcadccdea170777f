// ABOUTME: Multi-round orchestration loop between the model and the gateway.
// ABOUTME: Emits progress events to a sink; sink failure aborts the session.

// Package orchestrator drives a chat session: it grounds the model in a host
// snapshot, extracts directives from each completion, executes them in order,
// and feeds the results back as the next user turn. Sessions run a bounded
// number of rounds; when the budget runs out the model is asked for a plain
// summary instead of more directives.
//
// All progress flows through a Sink. The first Emit error is treated as a
// disconnected client: any running shell command is killed and the session
// stops without further provider calls.
package orchestrator

// ABOUTME: Event stream vocabulary and the Sink abstraction.
// ABOUTME: One Event marshals to one NDJSON line on the wire.

package orchestrator

import "errors"

// Event types emitted during a session.
const (
	EventStatus     = "status"
	EventShellStart = "shell_start"
	EventShellOut   = "shell_output"
	EventShellEnd   = "shell_end"
	EventDone       = "done"
	EventError      = "error"
)

// Event is one progress record. Fields are sparse; each type fills only the
// fields that apply to it.
type Event struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`

	// Shell streaming fields. VMID is the container id, or "host".
	VMID     string `json:"vmid,omitempty"`
	Command  string `json:"command,omitempty"`
	Node     string `json:"node,omitempty"`
	IsHost   bool   `json:"is_host,omitempty"`
	Output   string `json:"output,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`

	// Set on a status event when the action just created a guest.
	CreatedVMID int    `json:"created_vmid,omitempty"`
	CreatedType string `json:"created_type,omitempty"`
}

// Sink receives session events. Emit returning an error means the client is
// unreachable; the session must stop producing work on its behalf.
type Sink interface {
	Emit(Event) error
}

// ErrClientGone is returned by a session aborted because its sink failed.
var ErrClientGone = errors.New("client disconnected")

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event) error

func (f SinkFunc) Emit(e Event) error { return f(e) }

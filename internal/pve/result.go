// ABOUTME: Result type returned by every gateway action.
// ABOUTME: Immutable once produced; shapes match the frontend wire contract.

package pve

import "fmt"

// Result is the outcome of one executed action. Exactly one of Message and
// Error carries the human-readable summary, matching Success.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Data     any    `json:"data,omitempty"`
	VMID     int    `json:"vmid,omitempty"`
	Output   string `json:"output,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// ok builds a success Result with a message.
func ok(message string) Result {
	return Result{Success: true, Message: message}
}

// okData builds a success Result carrying a data payload.
func okData(data any) Result {
	return Result{Success: true, Data: data}
}

// fail builds a failure Result with an error message.
func fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// failErr builds a failure Result from an error.
func failErr(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// ABOUTME: Streaming shell execution with line-by-line sink events.
// ABOUTME: A context deadline bounds runtime; a failed sink kills the process.

package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/2389/pve-gateway/internal/pve"
)

// maxStreamLine bounds a single output line fed through the scanner.
const maxStreamLine = 1 << 20

// streamShell runs argv with stderr merged into stdout, emitting one
// shell_output event per line. The deadline on the command's context kills
// the process; a sink reporting a dead client cancels it early. Returns
// ErrClientGone in the latter case; every other outcome is expressed in the
// Result. A process that exits on its own is never classified as timed out:
// the timeout branch requires both an expired deadline and the -1 exit code
// of a killed process.
func streamShell(ctx context.Context, argv []string, ident string, timeout time.Duration, sink Sink) (pve.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return pve.Result{Success: false, Error: err.Error()}, nil
	}
	cmd.Stderr = cmd.Stdout // merge, same as the frontend expects

	if err := cmd.Start(); err != nil {
		return pve.Result{Success: false, Error: err.Error()}, nil
	}

	var captured []byte
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		captured = append(captured, line...)
		if err := sink.Emit(Event{Type: EventShellOut, VMID: ident, Output: line}); err != nil {
			cancel()
			_ = cmd.Wait()
			return pve.Result{}, ErrClientGone
		}
	}

	_ = cmd.Wait()
	exitCode := cmd.ProcessState.ExitCode()

	if ctx.Err() == context.DeadlineExceeded && exitCode == -1 {
		minusOne := -1
		_ = sink.Emit(Event{Type: EventShellEnd, VMID: ident, ExitCode: &minusOne})
		return pve.Result{
			Success: false,
			Error:   fmt.Sprintf("Command timed out after %ds", int(timeout.Seconds())),
		}, nil
	}

	if err := sink.Emit(Event{Type: EventShellEnd, VMID: ident, ExitCode: &exitCode}); err != nil {
		return pve.Result{}, ErrClientGone
	}

	return pve.Result{
		Success:  exitCode == 0,
		Output:   pve.TruncateTail(string(captured), 3000),
		Stderr:   "",
		ExitCode: &exitCode,
	}, nil
}

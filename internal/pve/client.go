// ABOUTME: pvesh CLI wrapper implementing the API interface.
// ABOUTME: Also provides the Runner abstraction for other host commands (pveam, pct).

package pve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// API issues management calls against the local PVE node.
// Implementations return the decoded JSON value (map, slice, string, number)
// or nil when the call produced no output.
type API interface {
	Call(ctx context.Context, method, path string, params map[string]string, timeout time.Duration) (any, error)
}

// Runner executes a host command and captures its output.
// Used for tools without an API path (pveam) and for non-streaming exec.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ErrCommandTimeout indicates a host command hit its deadline and was killed.
var ErrCommandTimeout = errors.New("command timed out")

// CLI implements API and Runner by shelling out on the PVE host.
type CLI struct{}

// NewCLI returns a CLI bound to the local node's pvesh binary.
func NewCLI() *CLI {
	return &CLI{}
}

// Call invokes pvesh with JSON output and decodes the result.
// Params are passed as "-key value" pairs in sorted order for stable argv.
func (c *CLI) Call(ctx context.Context, method, path string, params map[string]string, timeout time.Duration) (any, error) {
	args := []string{method, path, "--output-format", "json"}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-"+k, params[k])
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pvesh", args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: pvesh %s %s", ErrCommandTimeout, method, path)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "pvesh command failed"
		}
		return nil, fmt.Errorf("pvesh %s %s: %s", method, path, msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		// Some endpoints emit a bare string (e.g. a UPID); pass it through.
		return out, nil
	}
	return v, nil
}

// Run executes a host command, returning captured output and the exit code.
func (c *CLI) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), -1, ErrCommandTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// ABOUTME: TaskPoller drives an opaque UPID task handle to a terminal state.
// ABOUTME: Terminal means status "stopped"; success means exitstatus "OK".

package pve

import (
	"context"
	"strings"
	"time"
)

// StatusTimeout is the terminal status reported when a task does not reach a
// terminal state within its budget. It is distinct from any remote exitstatus,
// so callers can tell a timeout from an explicit failure.
const StatusTimeout = "timeout"

// TaskPoller polls asynchronous PVE tasks until they stop or the budget runs out.
type TaskPoller struct {
	api      API
	interval time.Duration
}

// NewTaskPoller returns a poller using the given fixed poll interval.
func NewTaskPoller(api API, interval time.Duration) *TaskPoller {
	return &TaskPoller{api: api, interval: interval}
}

// IsUPID reports whether a pvesh return value is an asynchronous task handle.
func IsUPID(v any) (string, bool) {
	s, isStr := v.(string)
	if isStr && strings.HasPrefix(s, "UPID:") {
		return s, true
	}
	return "", false
}

// Await polls the task's status until a terminal state is observed or the
// budget elapses. Returns whether the task succeeded and the terminal status:
// the remote exitstatus on completion, or StatusTimeout on budget exhaustion.
// Terminal states are sticky; polling stops at the first one seen.
func (p *TaskPoller) Await(ctx context.Context, node, upid string, budget time.Duration) (bool, string) {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		v, err := p.api.Call(ctx, "get", "/nodes/"+node+"/tasks/"+upid+"/status", nil, 30*time.Second)
		if err == nil {
			if m, isMap := asMap(v); isMap && str(m, "status") == "stopped" {
				exit := str(m, "exitstatus")
				return exit == "OK", exit
			}
		}
		select {
		case <-ctx.Done():
			return false, StatusTimeout
		case <-time.After(p.interval):
		}
	}
	return false, StatusTimeout
}

// ABOUTME: Tests for UPID task polling terminal-state semantics.
// ABOUTME: Timeout must stay distinguishable from an explicit task failure.

package pve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUPID(t *testing.T) {
	upid, yes := IsUPID("UPID:pve:000A1B2C:0123:qmcreate:104:root@pam:")
	assert.True(t, yes)
	assert.Contains(t, upid, "qmcreate")

	_, yes = IsUPID("done")
	assert.False(t, yes)
	_, yes = IsUPID(map[string]any{"status": "stopped"})
	assert.False(t, yes)
}

func TestAwaitSuccess(t *testing.T) {
	polls := 0
	api := &fakeAPI{handler: func(_, _ string, _ map[string]string) (any, error) {
		polls++
		if polls < 3 {
			return map[string]any{"status": "running"}, nil
		}
		return map[string]any{"status": "stopped", "exitstatus": "OK"}, nil
	}}
	p := NewTaskPoller(api, time.Millisecond)

	okTask, status := p.Await(context.Background(), "pve", "UPID:pve:1:", time.Second)

	assert.True(t, okTask)
	assert.Equal(t, "OK", status)
	assert.Equal(t, 3, polls, "polling must stop at the first terminal state")
}

func TestAwaitExplicitFailure(t *testing.T) {
	api := &fakeAPI{handler: func(_, _ string, _ map[string]string) (any, error) {
		return map[string]any{"status": "stopped", "exitstatus": "command 'vzctl' failed: exit code 1"}, nil
	}}
	p := NewTaskPoller(api, time.Millisecond)

	okTask, status := p.Await(context.Background(), "pve", "UPID:pve:1:", time.Second)

	assert.False(t, okTask)
	assert.Contains(t, status, "failed")
	assert.NotEqual(t, StatusTimeout, status, "explicit failure is not a timeout")
}

func TestAwaitBudgetExhaustion(t *testing.T) {
	api := &fakeAPI{handler: func(_, _ string, _ map[string]string) (any, error) {
		return map[string]any{"status": "running"}, nil
	}}
	p := NewTaskPoller(api, time.Millisecond)

	okTask, status := p.Await(context.Background(), "pve", "UPID:pve:1:", 20*time.Millisecond)

	assert.False(t, okTask)
	assert.Equal(t, StatusTimeout, status)
}

func TestAwaitContextCancel(t *testing.T) {
	api := &fakeAPI{handler: func(_, _ string, _ map[string]string) (any, error) {
		return map[string]any{"status": "running"}, nil
	}}
	p := NewTaskPoller(api, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	okTask, status := p.Await(ctx, "pve", "UPID:pve:1:", time.Minute)

	assert.False(t, okTask)
	assert.Equal(t, StatusTimeout, status)
}

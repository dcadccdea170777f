// ABOUTME: Post-action state verification by polling live guest status.
// ABOUTME: Existence-only checks pass an empty expected status.

package pve

import (
	"context"
	"fmt"
	"time"
)

// verifyGuest checks that a guest exists; with a non-empty expected value it
// additionally requires the live status field to match.
func (g *Gateway) verifyGuest(ctx context.Context, node string, kind guestKind, vmid int, expected string) bool {
	path := fmt.Sprintf("/nodes/%s/%s/%d/status/current", node, kind, vmid)
	v, err := g.api.Call(ctx, "get", path, nil, g.budgets.Call)
	if err != nil {
		return false
	}
	m, isMap := asMap(v)
	if !isMap {
		return false
	}
	if expected == "" {
		return true
	}
	return str(m, "status") == expected
}

// pollState polls the guest status at the configured interval until it
// verifies, up to the budget. One final check runs after the budget elapses
// so a slow last transition still counts.
func (g *Gateway) pollState(ctx context.Context, node string, kind guestKind, vmid int, expected string, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if g.verifyGuest(ctx, node, kind, vmid, expected) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(g.budgets.PollInterval):
		}
	}
	return g.verifyGuest(ctx, node, kind, vmid, expected)
}

// ABOUTME: Storage pool selection by content type.
// ABOUTME: Prefers the active pool with the most free space; local-lvm as a fallback.

package pve

import (
	"context"
	"strings"
)

// bestStorage picks the active storage pool with the most available space
// that accepts the given content type ("images", "rootdir", "iso", "vztmpl").
func (g *Gateway) bestStorage(ctx context.Context, node, contentType string) string {
	v, err := g.api.Call(ctx, "get", "/nodes/"+node+"/storage", nil, g.budgets.Call)
	if err != nil {
		return "local-lvm"
	}
	pools, isSlice := asSlice(v)
	if !isSlice {
		return "local-lvm"
	}

	bestName := ""
	bestAvail := -1.0
	for _, p := range pools {
		m, isMap := asMap(p)
		if !isMap || num(m, "active") == 0 {
			continue
		}
		if !strings.Contains(str(m, "content"), contentType) {
			continue
		}
		if avail := num(m, "avail"); avail > bestAvail {
			bestAvail = avail
			bestName = str(m, "storage")
		}
	}
	if bestName == "" {
		return "local-lvm"
	}
	return bestName
}

// ABOUTME: Container status, config, disk, snapshot, clone, and migrate actions.
// ABOUTME: Clone and migrate return UPIDs and are driven through the TaskPoller.

package pve

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// allowedConfigKeys is the set of container config keys set_container_config
// may change. "delete" removes keys rather than setting one.
var allowedConfigKeys = map[string]bool{
	"cores": true, "memory": true, "swap": true, "hostname": true,
	"nameserver": true, "searchdomain": true,
	"net0": true, "net1": true, "net2": true, "net3": true,
	"onboot": true, "description": true, "tags": true, "features": true,
	"cpulimit": true, "cpuunits": true, "protection": true, "tty": true,
	"startup": true,
	"mp0":     true, "mp1": true, "mp2": true, "mp3": true,
	"delete": true,
}

func (g *Gateway) getContainerStatus(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	v, err := g.api.Call(ctx, "get", fmt.Sprintf("/nodes/%s/lxc/%d/status/current", node, vmid), nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	return okData(v)
}

func (g *Gateway) getContainerConfig(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	v, err := g.api.Call(ctx, "get", fmt.Sprintf("/nodes/%s/lxc/%d/config", node, vmid), nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	return okData(v)
}

func (g *Gateway) setContainerConfig(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")

	p := map[string]string{}
	for key := range params {
		if key == "vmid" || !allowedConfigKeys[key] {
			continue
		}
		if v, has := strParam(params, key); has {
			p[key] = v
		}
	}
	if len(p) == 0 {
		keys := make([]string, 0, len(allowedConfigKeys))
		for k := range allowedConfigKeys {
			if k != "delete" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return fail("No valid config keys provided. Allowed: %s", strings.Join(keys, ", "))
	}

	if _, err := g.api.Call(ctx, "set", fmt.Sprintf("/nodes/%s/lxc/%d/config", node, vmid), p, g.budgets.Call); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Container %d configuration updated", vmid))
}

func (g *Gateway) resizeContainerDisk(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	disk := strParamOr(params, "disk", "rootfs")
	size, _ := strParam(params, "size")

	p := map[string]string{"disk": disk, "size": size}
	if _, err := g.api.Call(ctx, "set", fmt.Sprintf("/nodes/%s/lxc/%d/resize", node, vmid), p, g.budgets.Call); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Container %d disk %q resized to %s", vmid, disk, size))
}

func (g *Gateway) snapshotContainer(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	snapname, _ := strParam(params, "snapname")

	p := map[string]string{"snapname": snapname}
	if desc, has := strParam(params, "description"); has {
		p["description"] = desc
	}
	if _, err := g.api.Call(ctx, "create", fmt.Sprintf("/nodes/%s/lxc/%d/snapshot", node, vmid), p, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Snapshot %q created for container %d", snapname, vmid))
}

func (g *Gateway) listContainerSnapshots(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	v, err := g.api.Call(ctx, "get", fmt.Sprintf("/nodes/%s/lxc/%d/snapshot", node, vmid), nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	return okData(v)
}

func (g *Gateway) rollbackContainerSnapshot(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	snapname, _ := strParam(params, "snapname")

	path := fmt.Sprintf("/nodes/%s/lxc/%d/snapshot/%s/rollback", node, vmid, snapname)
	if _, err := g.api.Call(ctx, "create", path, nil, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Container %d rolled back to snapshot %q", vmid, snapname))
}

func (g *Gateway) deleteContainerSnapshot(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	snapname, _ := strParam(params, "snapname")

	path := fmt.Sprintf("/nodes/%s/lxc/%d/snapshot/%s", node, vmid, snapname)
	if _, err := g.api.Call(ctx, "delete", path, nil, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Snapshot %q deleted from container %d", snapname, vmid))
}

// cloneContainer clones a container to a new VMID. The API may return a UPID;
// if it does, the clone only counts once the task reaches a successful
// terminal state.
func (g *Gateway) cloneContainer(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	newid, _ := intParam(params, "newid")

	p := map[string]string{"newid": strconv.Itoa(newid)}
	if hostname, has := strParam(params, "hostname"); has {
		p["hostname"] = hostname
	}
	if desc, has := strParam(params, "description"); has {
		p["description"] = desc
	}
	if storage, has := strParam(params, "storage"); has {
		p["storage"] = storage
	}
	full := "1"
	if n, has := intParam(params, "full"); has && n == 0 {
		full = "0"
	}
	p["full"] = full

	v, err := g.api.Call(ctx, "create", fmt.Sprintf("/nodes/%s/lxc/%d/clone", node, vmid), p, g.budgets.CloneTask)
	if err != nil {
		return failErr(err)
	}
	if upid, isTask := IsUPID(v); isTask {
		if succeeded, status := g.tasks.Await(ctx, node, upid, g.budgets.CloneTask); !succeeded {
			return fail("Clone failed: %s", status)
		}
	}
	return Result{Success: true, Message: fmt.Sprintf("Container %d cloned to %d", vmid, newid), VMID: newid}
}

// migrateContainer moves a container to another cluster node via a UPID task.
func (g *Gateway) migrateContainer(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	target, _ := strParam(params, "target")

	p := map[string]string{"target": target}
	v, err := g.api.Call(ctx, "create", fmt.Sprintf("/nodes/%s/lxc/%d/migrate", node, vmid), p, g.budgets.CloneTask)
	if err != nil {
		return failErr(err)
	}
	if upid, isTask := IsUPID(v); isTask {
		if succeeded, status := g.tasks.Await(ctx, node, upid, g.budgets.CloneTask); !succeeded {
			return fail("Migration failed: %s", status)
		}
	}
	return ok(fmt.Sprintf("Container %d migrated to node %q", vmid, target))
}

// saveNotes appends notes to the guest's description field so access details
// stay visible in the PVE UI.
func (g *Gateway) saveNotes(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	notes, _ := strParam(params, "notes")
	kind := strParamOr(params, "kind", "ct")

	subtree, label := "lxc", "container"
	if kind == "vm" {
		subtree, label = "qemu", "VM"
	}
	path := fmt.Sprintf("/nodes/%s/%s/%d/config", node, subtree, vmid)

	existing, err := g.api.Call(ctx, "get", path, nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	oldDesc := ""
	if m, isMap := asMap(existing); isMap {
		oldDesc = str(m, "description")
	}
	newDesc := notes
	if oldDesc != "" {
		newDesc = oldDesc + "\n\n---\n" + notes
	}

	if _, err := g.api.Call(ctx, "set", path, map[string]string{"description": newDesc}, g.budgets.Call); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Notes saved to %s %d", label, vmid))
}

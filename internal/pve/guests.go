// ABOUTME: Guest lifecycle actions: create, start, stop, suspend, resume, delete.
// ABOUTME: Control calls are followed by state verification; accepted is not done.

package pve

import (
	"context"
	"fmt"
	"strconv"
)

// guestKind selects the qemu or lxc API subtree.
type guestKind string

const (
	guestVM guestKind = "qemu"
	guestCT guestKind = "lxc"
)

// label returns the user-facing name for the guest kind.
func (k guestKind) label() string {
	if k == guestVM {
		return "VM"
	}
	return "Container"
}

// controlGuest starts or stops a guest and verifies the expected end state.
// The control call succeeding only means the request was accepted; success is
// reported only once the live status reaches the expected value.
func (g *Gateway) controlGuest(ctx context.Context, node string, kind guestKind, params map[string]any, start bool) Result {
	vmid, _ := intParam(params, "vmid")

	op, verb, expected := "stop", "stopped", "stopped"
	if start {
		op, verb, expected = "start", "started", "running"
	}

	path := fmt.Sprintf("/nodes/%s/%s/%d/status/%s", node, kind, vmid, op)
	if _, err := g.api.Call(ctx, "create", path, nil, g.budgets.Control); err != nil {
		return failErr(err)
	}

	if g.pollState(ctx, node, kind, vmid, expected, g.budgets.StatePoll) {
		return ok(fmt.Sprintf("%s %d %s successfully", kind.label(), vmid, verb))
	}
	return fail("%s %d %s did not reach %s state", kind.label(), vmid, op, expected)
}

// pauseContainer suspends or resumes a container. These transitions have no
// polled end state; the accepted call is the result.
func (g *Gateway) pauseContainer(ctx context.Context, node string, params map[string]any, suspend bool) Result {
	vmid, _ := intParam(params, "vmid")

	op, verb := "resume", "resumed"
	if suspend {
		op, verb = "suspend", "suspended"
	}

	path := fmt.Sprintf("/nodes/%s/lxc/%d/status/%s", node, vmid, op)
	if _, err := g.api.Call(ctx, "create", path, nil, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Container %d %s", vmid, verb))
}

// createVM creates a QEMU virtual machine. Windows guests get OVMF firmware
// with an EFI disk; win11 additionally gets a v2.0 TPM state volume.
// Verification is existence-only: a fresh VM has no expected status.
func (g *Gateway) createVM(ctx context.Context, node string, params map[string]any) Result {
	vmid, hasID := intParam(params, "vmid")
	if !hasID {
		id, err := g.nextVMID(ctx)
		if err != nil {
			return failErr(err)
		}
		vmid = id
	}

	storage, hasStorage := strParam(params, "storage")
	if !hasStorage {
		storage = g.bestStorage(ctx, node, "images")
	}

	name := strParamOr(params, "name", "vm-"+strconv.Itoa(vmid))
	ostype := strParamOr(params, "ostype", "l26")
	isWindows := len(ostype) >= 3 && ostype[:3] == "win"

	defaultBIOS := "seabios"
	if isWindows {
		defaultBIOS = "ovmf"
	}
	bios := strParamOr(params, "bios", defaultBIOS)
	diskSize := intParamOr(params, "disk_size", 32)

	p := map[string]string{
		"vmid":    strconv.Itoa(vmid),
		"name":    name,
		"cores":   strconv.Itoa(intParamOr(params, "cores", 2)),
		"memory":  strconv.Itoa(intParamOr(params, "memory", 2048)),
		"ostype":  ostype,
		"bios":    bios,
		"machine": strParamOr(params, "machine", "q35"),
		"cpu":     strParamOr(params, "cpu", "x86-64-v2-AES"),
		"scsihw":  "virtio-scsi-single",
		"scsi0":   storage + ":" + strconv.Itoa(diskSize) + ",iothread=1",
		"net0":    "virtio,bridge=" + strParamOr(params, "net_bridge", "vmbr0"),
		"agent":   "1",
	}

	if bios == "ovmf" {
		efidisk := storage + ":1,efitype=4m"
		if isWindows {
			efidisk += ",pre-enrolled-keys=1"
		}
		p["efidisk0"] = efidisk
	}
	if ostype == "win11" {
		p["tpmstate0"] = storage + ":1,version=v2.0"
	}
	if iso, hasISO := strParam(params, "iso"); hasISO {
		p["ide2"] = iso + ",media=cdrom"
		p["boot"] = "order=ide2;scsi0;net0"
	} else {
		p["boot"] = "order=scsi0;net0"
	}

	if _, err := g.api.Call(ctx, "create", "/nodes/"+node+"/qemu", p, g.budgets.Control); err != nil {
		return failErr(err)
	}

	if g.pollState(ctx, node, guestVM, vmid, "", g.budgets.CreateVerify) {
		return Result{Success: true, Message: fmt.Sprintf("VM %d (%s) created successfully", vmid, name), VMID: vmid}
	}
	return fail("VM creation timed out — check the task log")
}

// createContainer creates an LXC container from a template volid.
func (g *Gateway) createContainer(ctx context.Context, node string, params map[string]any) Result {
	vmid, hasID := intParam(params, "vmid")
	if !hasID {
		id, err := g.nextVMID(ctx)
		if err != nil {
			return failErr(err)
		}
		vmid = id
	}

	template, _ := strParam(params, "template")

	storage, hasStorage := strParam(params, "storage")
	if !hasStorage {
		storage = g.bestStorage(ctx, node, "rootdir")
	}

	hostname := strParamOr(params, "hostname", "ct-"+strconv.Itoa(vmid))
	memory := intParamOr(params, "memory", 512)

	swap := memory / 2
	if swap < 64 {
		swap = 64
	}

	net0 := "name=eth0,bridge=" + strParamOr(params, "net_bridge", "vmbr0")
	ipCfg := strParamOr(params, "ip", "dhcp")
	if ipCfg == "dhcp" {
		net0 += ",ip=dhcp"
	} else {
		net0 += ",ip=" + ipCfg
		if gw, hasGW := strParam(params, "gw"); hasGW {
			net0 += ",gw=" + gw
		}
	}

	unprivileged := "1"
	if boolParam(params, "privileged") {
		unprivileged = "0"
	}

	p := map[string]string{
		"vmid":         strconv.Itoa(vmid),
		"hostname":     hostname,
		"cores":        strconv.Itoa(intParamOr(params, "cores", 1)),
		"memory":       strconv.Itoa(memory),
		"swap":         strconv.Itoa(swap),
		"rootfs":       storage + ":" + strconv.Itoa(intParamOr(params, "disk_size", 8)),
		"ostemplate":   template,
		"net0":         net0,
		"password":     strParamOr(params, "password", "changeme123"),
		"unprivileged": unprivileged,
	}
	if features, has := strParam(params, "features"); has {
		p["features"] = features
	}
	if ns, has := strParam(params, "nameserver"); has {
		p["nameserver"] = ns
	}
	if keys, has := strParam(params, "ssh_public_keys"); has {
		p["ssh-public-keys"] = keys
	}

	if _, err := g.api.Call(ctx, "create", "/nodes/"+node+"/lxc", p, g.budgets.Control); err != nil {
		return failErr(err)
	}

	if g.pollState(ctx, node, guestCT, vmid, "", g.budgets.CreateVerify) {
		return Result{Success: true, Message: fmt.Sprintf("Container %d (%s) created successfully", vmid, hostname), VMID: vmid}
	}
	return fail("Container creation timed out — check the task log")
}

// deleteVM destroys a stopped VM, purging unreferenced disks.
func (g *Gateway) deleteVM(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	if g.verifyGuest(ctx, node, guestVM, vmid, "running") {
		return fail("VM %d is running. Stop it first with stop_vm.", vmid)
	}

	p := map[string]string{"purge": "1", "destroy-unreferenced-disks": "1"}
	if _, err := g.api.Call(ctx, "delete", fmt.Sprintf("/nodes/%s/qemu/%d", node, vmid), p, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("VM %d deleted successfully", vmid))
}

// deleteContainer destroys a stopped container.
func (g *Gateway) deleteContainer(ctx context.Context, node string, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	if g.verifyGuest(ctx, node, guestCT, vmid, "running") {
		return fail("Container %d is running. Stop it first with stop_container.", vmid)
	}

	if _, err := g.api.Call(ctx, "delete", fmt.Sprintf("/nodes/%s/lxc/%d", node, vmid), nil, g.budgets.Control); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("Container %d deleted successfully", vmid))
}

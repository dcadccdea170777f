// ABOUTME: Non-streaming shell execution inside containers and on the host.
// ABOUTME: Output is captured whole and truncated to a bounded tail.

package pve

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

const (
	// maxStdoutTail bounds captured stdout in results fed back to the model.
	maxStdoutTail = 3000
	// maxStderrTail bounds captured stderr.
	maxStderrTail = 1500
)

// TruncateTail keeps at most max trailing bytes of s, prefixing a marker when
// anything was dropped. The tail matters more than the head: errors and final
// status lines come last.
func TruncateTail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "...(truncated)...\n" + s[len(s)-max:]
}

// ContainerArgv builds the argv for running a bash command inside a container.
func ContainerArgv(vmid int, command string) []string {
	return []string{"pct", "exec", strconv.Itoa(vmid), "--", "bash", "-c", command}
}

// HostArgv builds the argv for running a bash command on the host.
func HostArgv(command string) []string {
	return []string{"bash", "-c", command}
}

// VerifyContainerRunning reports whether the container exists and is running.
// Both exec paths require this before spawning anything.
func (g *Gateway) VerifyContainerRunning(ctx context.Context, vmid int) bool {
	return g.verifyGuest(ctx, g.Node(ctx), guestCT, vmid, "running")
}

// execContainer runs a command inside a running container, capturing output.
func (g *Gateway) execContainer(ctx context.Context, params map[string]any) Result {
	vmid, _ := intParam(params, "vmid")
	command, _ := strParam(params, "command")

	if !g.VerifyContainerRunning(ctx, vmid) {
		return fail("Container %d is not running. Start it first with start_container.", vmid)
	}
	argv := ContainerArgv(vmid, command)
	return g.runCaptured(ctx, argv)
}

// execHost runs a command directly on the PVE host as root.
func (g *Gateway) execHost(ctx context.Context, params map[string]any) Result {
	command, _ := strParam(params, "command")
	return g.runCaptured(ctx, HostArgv(command))
}

func (g *Gateway) runCaptured(ctx context.Context, argv []string) Result {
	stdout, stderr, exitCode, err := g.runner.Run(ctx, g.budgets.Exec, argv[0], argv[1:]...)
	if err != nil {
		if errors.Is(err, ErrCommandTimeout) {
			return fail("Command timed out after %ds", int(g.budgets.Exec.Seconds()))
		}
		return failErr(err)
	}

	code := exitCode
	return Result{
		Success:  exitCode == 0,
		Output:   TruncateTail(stdout, maxStdoutTail),
		Stderr:   TruncateTail(stderr, maxStderrTail),
		ExitCode: &code,
	}
}

// DescribeAction returns a short human-readable progress line for an action,
// emitted as a status event before execution.
func DescribeAction(action string, params map[string]any) string {
	vmid := strParamOr(params, "vmid", "")
	switch action {
	case "create_vm":
		return fmt.Sprintf("Creating VM %q...", strParamOr(params, "name", "vm"))
	case "create_container":
		return fmt.Sprintf("Creating container %q...", strParamOr(params, "hostname", "ct"))
	case "start_vm":
		return "Starting VM " + vmid + "..."
	case "stop_vm":
		return "Stopping VM " + vmid + "..."
	case "start_container":
		return "Starting container " + vmid + "..."
	case "stop_container":
		return "Stopping container " + vmid + "..."
	case "suspend_container":
		return "Suspending container " + vmid + "..."
	case "resume_container":
		return "Resuming container " + vmid + "..."
	case "delete_vm":
		return "Deleting VM " + vmid + "..."
	case "delete_container":
		return "Deleting container " + vmid + "..."
	case "list_vms":
		return "Listing VMs..."
	case "list_containers":
		return "Listing containers..."
	case "get_resources":
		return "Fetching cluster resources..."
	case "get_container_status":
		return "Fetching status for container " + vmid + "..."
	case "get_container_config":
		return "Fetching config for container " + vmid + "..."
	case "set_container_config":
		return "Updating config for container " + vmid + "..."
	case "resize_container_disk":
		return fmt.Sprintf("Resizing disk %q on container %s...", strParamOr(params, "disk", "rootfs"), vmid)
	case "snapshot_container":
		return fmt.Sprintf("Creating snapshot %q for container %s...", strParamOr(params, "snapname", ""), vmid)
	case "list_container_snapshots":
		return "Listing snapshots for container " + vmid + "..."
	case "rollback_container_snapshot":
		return fmt.Sprintf("Rolling back container %s to snapshot %q...", vmid, strParamOr(params, "snapname", ""))
	case "delete_container_snapshot":
		return fmt.Sprintf("Deleting snapshot %q from container %s...", strParamOr(params, "snapname", ""), vmid)
	case "clone_container":
		return fmt.Sprintf("Cloning container %s to %s...", vmid, strParamOr(params, "newid", ""))
	case "migrate_container":
		return fmt.Sprintf("Migrating container %s to node %q...", vmid, strParamOr(params, "target", ""))
	case "list_available_templates":
		return "Fetching available templates..."
	case "download_template":
		return "Downloading template " + strParamOr(params, "template", "") + "..."
	case "download_iso":
		return "Downloading ISO " + strParamOr(params, "filename", "") + "..."
	case "exec_container":
		return "Running: " + shortCommand(params)
	case "exec_host":
		return "Running on host: " + shortCommand(params)
	case "save_notes":
		label := "container"
		if strParamOr(params, "kind", "ct") == "vm" {
			label = "VM"
		}
		return fmt.Sprintf("Saving notes to %s %s...", label, vmid)
	}
	return "Executing " + action + "..."
}

func shortCommand(params map[string]any) string {
	cmd := strParamOr(params, "command", "")
	if len(cmd) > 80 {
		return cmd[:80] + "..."
	}
	return cmd
}

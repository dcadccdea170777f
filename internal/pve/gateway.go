// ABOUTME: Gateway is the uniform action entry point over the PVE management API.
// ABOUTME: Validates, dispatches, verifies end state, and invalidates the snapshot cache.

package pve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Budgets groups the per-operation-class timeouts. Each class has its own
// fixed ceiling; they are never composed into a session-wide deadline.
type Budgets struct {
	Call         time.Duration // plain query call
	Control      time.Duration // accepted control call (start/stop/create/delete)
	StatePoll    time.Duration // expected-state verification after start/stop
	CreateVerify time.Duration // existence verification after create
	CloneTask    time.Duration // clone and migrate UPID tasks
	TemplateTask time.Duration // pveam template download
	ISOTask      time.Duration // ISO download UPID task
	Exec         time.Duration // shell command ceiling
	PollInterval time.Duration // state verification interval
	TaskInterval time.Duration // UPID poll interval
}

// DefaultBudgets returns the production timeout set.
func DefaultBudgets() Budgets {
	return Budgets{
		Call:         30 * time.Second,
		Control:      120 * time.Second,
		StatePoll:    15 * time.Second,
		CreateVerify: 60 * time.Second,
		CloneTask:    600 * time.Second,
		TemplateTask: 600 * time.Second,
		ISOTask:      1800 * time.Second,
		Exec:         300 * time.Second,
		PollInterval: time.Second,
		TaskInterval: 5 * time.Second,
	}
}

// Gateway executes actions against the local PVE node.
type Gateway struct {
	api     API
	runner  Runner
	cache   *Cache
	tasks   *TaskPoller
	budgets Budgets
	logger  *slog.Logger

	nodeMu   sync.Mutex
	nodeName string
}

// NewGateway wires a Gateway over the given API and Runner. The cache is
// invalidated by every mutating action.
func NewGateway(api API, runner Runner, cache *Cache, budgets Budgets, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		api:     api,
		runner:  runner,
		cache:   cache,
		tasks:   NewTaskPoller(api, budgets.TaskInterval),
		budgets: budgets,
		logger:  logger.With("component", "pve"),
	}
}

// Budgets returns the gateway's timeout configuration.
func (g *Gateway) Budgets() Budgets { return g.budgets }

// Snapshot returns the gateway's snapshot cache.
func (g *Gateway) Snapshot() *Cache { return g.cache }

// SetNode pins the node name, overriding /nodes discovery. Used when the
// configured deployment names the node explicitly.
func (g *Gateway) SetNode(name string) {
	if name == "" {
		return
	}
	g.nodeMu.Lock()
	g.nodeName = name
	g.nodeMu.Unlock()
	if g.cache != nil {
		g.cache.SetNode(name)
	}
}

// Node returns the local node name, resolved once from /nodes and cached
// for the process lifetime.
func (g *Gateway) Node(ctx context.Context) string {
	g.nodeMu.Lock()
	defer g.nodeMu.Unlock()

	if g.nodeName != "" {
		return g.nodeName
	}

	v, err := g.api.Call(ctx, "get", "/nodes", nil, g.budgets.Call)
	if err == nil {
		if nodes, ok := asSlice(v); ok && len(nodes) > 0 {
			if m, ok := asMap(nodes[0]); ok {
				if name := str(m, "node"); name != "" {
					g.nodeName = name
					return g.nodeName
				}
			}
		}
	}
	g.nodeName = "localhost"
	return g.nodeName
}

// Execute runs one action from the closed vocabulary and returns its Result.
// Unknown names and missing required parameters fail without a remote call.
// Mutating actions invalidate the snapshot cache so the next Get reflects
// them regardless of remaining TTL.
func (g *Gateway) Execute(ctx context.Context, action string, params map[string]any) Result {
	spec, known := vocabulary[action]
	if !known {
		return fail("unknown action: %s", action)
	}
	if missing := missingRequired(spec, params); len(missing) > 0 {
		return fail("%s", requiredError(missing))
	}
	if !spec.readOnly && g.cache != nil {
		g.cache.Invalidate()
	}

	node := g.Node(ctx)

	switch action {
	case "list_vms":
		return g.listGuests(ctx, node, "qemu")
	case "list_containers":
		return g.listGuests(ctx, node, "lxc")
	case "get_resources":
		return g.getResources(ctx)
	case "start_vm", "stop_vm":
		return g.controlGuest(ctx, node, guestVM, params, action == "start_vm")
	case "start_container", "stop_container":
		return g.controlGuest(ctx, node, guestCT, params, action == "start_container")
	case "suspend_container", "resume_container":
		return g.pauseContainer(ctx, node, params, action == "suspend_container")
	case "create_vm":
		return g.createVM(ctx, node, params)
	case "create_container":
		return g.createContainer(ctx, node, params)
	case "delete_vm":
		return g.deleteVM(ctx, node, params)
	case "delete_container":
		return g.deleteContainer(ctx, node, params)
	case "exec_container":
		return g.execContainer(ctx, params)
	case "exec_host":
		return g.execHost(ctx, params)
	case "get_container_status":
		return g.getContainerStatus(ctx, node, params)
	case "get_container_config":
		return g.getContainerConfig(ctx, node, params)
	case "set_container_config":
		return g.setContainerConfig(ctx, node, params)
	case "resize_container_disk":
		return g.resizeContainerDisk(ctx, node, params)
	case "snapshot_container":
		return g.snapshotContainer(ctx, node, params)
	case "list_container_snapshots":
		return g.listContainerSnapshots(ctx, node, params)
	case "rollback_container_snapshot":
		return g.rollbackContainerSnapshot(ctx, node, params)
	case "delete_container_snapshot":
		return g.deleteContainerSnapshot(ctx, node, params)
	case "clone_container":
		return g.cloneContainer(ctx, node, params)
	case "migrate_container":
		return g.migrateContainer(ctx, node, params)
	case "save_notes":
		return g.saveNotes(ctx, node, params)
	case "list_available_templates":
		return g.listAvailableTemplates(ctx)
	case "download_template":
		return g.downloadTemplate(ctx, params)
	case "download_iso":
		return g.downloadISO(ctx, node, params)
	}

	// Unreachable while vocabulary and dispatch stay in sync.
	return fail("unknown action: %s", action)
}

func (g *Gateway) listGuests(ctx context.Context, node, kind string) Result {
	v, err := g.api.Call(ctx, "get", "/nodes/"+node+"/"+kind, nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	if v == nil {
		v = []any{}
	}
	return okData(v)
}

func (g *Gateway) getResources(ctx context.Context) Result {
	v, err := g.api.Call(ctx, "get", "/cluster/resources", nil, g.budgets.Call)
	if err != nil {
		return failErr(err)
	}
	if v == nil {
		v = []any{}
	}
	return okData(v)
}

// nextVMID asks the cluster for the next free guest identifier.
func (g *Gateway) nextVMID(ctx context.Context) (int, error) {
	v, err := g.api.Call(ctx, "get", "/cluster/nextid", nil, g.budgets.Call)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case string:
		var id int
		if _, err := fmt.Sscanf(n, "%d", &id); err != nil {
			return 0, fmt.Errorf("unexpected nextid %q", n)
		}
		return id, nil
	}
	return 0, fmt.Errorf("unexpected nextid value %v", v)
}

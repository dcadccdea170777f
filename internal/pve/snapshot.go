// ABOUTME: TTL snapshot cache of host state used to ground model decisions.
// ABOUTME: Rebuild fans out independent queries through a bounded worker pool.

package pve

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// SnapshotTTL is the freshness window for a cached snapshot.
	SnapshotTTL = 10 * time.Second

	gib = 1073741824
	mib = 1048576
)

// CPUInfo summarizes the node's processor state.
type CPUInfo struct {
	TotalCores int     `json:"total_cores"`
	Sockets    int     `json:"sockets"`
	Model      string  `json:"model"`
	UsagePct   float64 `json:"usage_pct"`
}

// MemoryInfo summarizes node memory in gigabytes. Used and free are derived
// from the totals reported by the node status query.
type MemoryInfo struct {
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
}

// StoragePool is one active storage pool and its capacity.
type StoragePool struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	TotalGB float64 `json:"total_gb"`
	FreeGB  float64 `json:"free_gb"`
	Content string  `json:"content"`
}

// GuestInfo is one VM or container row.
type GuestInfo struct {
	VMID   int    `json:"vmid"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Cores  int    `json:"cores"`
	MemMB  int    `json:"mem_mb"`
}

// Snapshot is a time-bounded view of host state. Fields whose underlying
// query failed hold their zero value rather than blocking the whole snapshot.
type Snapshot struct {
	CapturedAt time.Time     `json:"-"`
	Node       string        `json:"node"`
	CPU        CPUInfo       `json:"cpu"`
	Memory     MemoryInfo    `json:"memory"`
	Storage    []StoragePool `json:"storage"`
	VMs        []GuestInfo   `json:"vms"`
	Containers []GuestInfo   `json:"containers"`
	NextVMID   int           `json:"next_vmid"`
	ISOs       []string      `json:"isos"`
	Templates  []string      `json:"templates"`
}

// Cache memoizes host snapshots for SnapshotTTL. The check-then-rebuild
// sequence runs under a single mutex so concurrent sessions racing on an
// expired cache never trigger duplicate rebuilds or observe torn state.
type Cache struct {
	api    API
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	snap     *Snapshot
	nodeName string
}

// NewCache creates a snapshot cache over the given API with the given TTL.
func NewCache(api API, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{api: api, ttl: ttl, logger: logger.With("component", "snapshot")}
}

// Get returns the cached snapshot when it is still within the freshness
// window, otherwise rebuilds it. Rebuild failures degrade individual fields;
// Get always returns a usable snapshot.
func (c *Cache) Get(ctx context.Context) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && time.Since(c.snap.CapturedAt) < c.ttl {
		return c.snap
	}

	snap := c.rebuild(ctx)
	c.snap = snap
	return snap
}

// Invalidate discards the cached snapshot immediately. Called by the gateway
// after every mutating action so the next Get reflects the change regardless
// of remaining TTL.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
}

// SetNode pins the node name, overriding /nodes discovery.
func (c *Cache) SetNode(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeName = name
}

// node resolves the local node name once. Must be called with mu held.
func (c *Cache) node(ctx context.Context) string {
	if c.nodeName != "" {
		return c.nodeName
	}
	v, err := c.api.Call(ctx, "get", "/nodes", nil, 30*time.Second)
	if err == nil {
		if nodes, isSlice := asSlice(v); isSlice && len(nodes) > 0 {
			if m, isMap := asMap(nodes[0]); isMap {
				if name := str(m, "node"); name != "" {
					c.nodeName = name
					return c.nodeName
				}
			}
		}
	}
	c.nodeName = "localhost"
	return c.nodeName
}

// rebuild fetches a fresh snapshot. Phase 1 runs the five independent primary
// queries through a bounded pool; phase 2 enumerates ISO and template
// inventories, one query per capable pool.
func (c *Cache) rebuild(ctx context.Context) *Snapshot {
	node := c.node(ctx)
	snap := &Snapshot{Node: node, NextVMID: 100}

	var (
		statusV  any
		storageV any
		vmsV     any
		ctsV     any
		nextidV  any
	)

	query := func(dst *any, path string) func() error {
		return func() error {
			v, err := c.api.Call(ctx, "get", path, nil, 30*time.Second)
			if err != nil {
				c.logger.Warn("snapshot query failed", "path", path, "error", err)
				return nil // degrade the field, never the snapshot
			}
			*dst = v
			return nil
		}
	}

	var g errgroup.Group
	g.SetLimit(5)
	g.Go(query(&statusV, "/nodes/"+node+"/status"))
	g.Go(query(&storageV, "/nodes/"+node+"/storage"))
	g.Go(query(&vmsV, "/nodes/"+node+"/qemu"))
	g.Go(query(&ctsV, "/nodes/"+node+"/lxc"))
	g.Go(query(&nextidV, "/cluster/nextid"))
	_ = g.Wait()

	c.applyStatus(snap, statusV)
	snap.Storage = parseStorage(storageV)
	snap.VMs = parseGuests(vmsV)
	snap.Containers = parseGuests(ctsV)
	if id := parseNextID(nextidV); id > 0 {
		snap.NextVMID = id
	}

	snap.ISOs, snap.Templates = c.fetchInventories(ctx, node, snap.Storage)
	snap.CapturedAt = time.Now()
	return snap
}

func (c *Cache) applyStatus(snap *Snapshot, v any) {
	m, isMap := asMap(v)
	if !isMap {
		return
	}
	if cpu, isCPU := asMap(m["cpuinfo"]); isCPU {
		snap.CPU = CPUInfo{
			TotalCores: int(num(cpu, "cpus")),
			Sockets:    maxInt(int(num(cpu, "sockets")), 1),
			Model:      str(cpu, "model"),
			UsagePct:   round1(num(m, "cpu") * 100),
		}
	}
	if mem, isMem := asMap(m["memory"]); isMem {
		total := num(mem, "total")
		used := num(mem, "used")
		snap.Memory = MemoryInfo{
			TotalGB: round1(total / gib),
			UsedGB:  round1(used / gib),
			FreeGB:  round1((total - used) / gib),
		}
	}
}

func parseStorage(v any) []StoragePool {
	rows, isSlice := asSlice(v)
	if !isSlice {
		return nil
	}
	pools := make([]StoragePool, 0, len(rows))
	for _, r := range rows {
		m, isMap := asMap(r)
		if !isMap || num(m, "active") == 0 {
			continue
		}
		pools = append(pools, StoragePool{
			Name:    str(m, "storage"),
			Type:    str(m, "type"),
			TotalGB: round1(num(m, "total") / gib),
			FreeGB:  round1(num(m, "avail") / gib),
			Content: str(m, "content"),
		})
	}
	return pools
}

func parseGuests(v any) []GuestInfo {
	rows, isSlice := asSlice(v)
	if !isSlice {
		return nil
	}
	guests := make([]GuestInfo, 0, len(rows))
	for _, r := range rows {
		m, isMap := asMap(r)
		if !isMap {
			continue
		}
		guests = append(guests, GuestInfo{
			VMID:   int(num(m, "vmid")),
			Name:   str(m, "name"),
			Status: str(m, "status"),
			Cores:  int(num(m, "cpus")),
			MemMB:  int(math.Round(num(m, "maxmem") / mib)),
		})
	}
	return guests
}

func parseNextID(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var id int
		for _, ch := range n {
			if ch < '0' || ch > '9' {
				return 0
			}
			id = id*10 + int(ch-'0')
		}
		return id
	}
	return 0
}

// fetchInventories enumerates ISO and template volids, one content query per
// pool that advertises the capability, merged into flat lists. Failing
// queries contribute nothing.
func (c *Cache) fetchInventories(ctx context.Context, node string, pools []StoragePool) (isos, templates []string) {
	type job struct {
		content string
		pool    string
	}
	var jobs []job
	for _, p := range pools {
		if strings.Contains(p.Content, "iso") {
			jobs = append(jobs, job{"iso", p.Name})
		}
		if strings.Contains(p.Content, "vztmpl") {
			jobs = append(jobs, job{"vztmpl", p.Name})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([][]string, len(jobs))
	var g errgroup.Group
	g.SetLimit(4)
	for i, j := range jobs {
		g.Go(func() error {
			path := "/nodes/" + node + "/storage/" + j.pool + "/content"
			v, err := c.api.Call(ctx, "get", path, map[string]string{"content": j.content}, 30*time.Second)
			if err != nil {
				c.logger.Warn("content query failed", "pool", j.pool, "content", j.content, "error", err)
				return nil
			}
			items, isSlice := asSlice(v)
			if !isSlice {
				return nil
			}
			volids := make([]string, 0, len(items))
			for _, item := range items {
				if m, isMap := asMap(item); isMap {
					if volid := str(m, "volid"); volid != "" {
						volids = append(volids, volid)
					}
				}
			}
			results[i] = volids
			return nil
		})
	}
	_ = g.Wait()

	for i, j := range jobs {
		if j.content == "iso" {
			isos = append(isos, results[i]...)
		} else {
			templates = append(templates, results[i]...)
		}
	}
	return isos, templates
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

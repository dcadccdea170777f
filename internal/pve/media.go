// ABOUTME: Template and ISO actions: listing, pveam downloads, URL downloads.
// ABOUTME: Downloads are large-transfer operations with their own task budgets.

package pve

import (
	"context"
	"errors"
	"strings"
	"time"
)

// listAvailableTemplates runs `pveam available` and parses its two-column output.
func (g *Gateway) listAvailableTemplates(ctx context.Context) Result {
	stdout, stderr, exitCode, err := g.runner.Run(ctx, g.budgets.Call, "pveam", "available")
	if err != nil {
		return failErr(err)
	}
	if exitCode != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = `pveam available failed. Try running "pveam update" on the host first.`
		}
		return fail("%s", msg)
	}

	type tmpl struct {
		Section string `json:"section"`
		Package string `json:"package"`
	}
	var templates []tmpl
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			templates = append(templates, tmpl{Section: fields[0], Package: fields[1]})
		}
	}
	return okData(templates)
}

// downloadTemplate fetches a container template via pveam. The index is
// refreshed first on a best-effort basis.
func (g *Gateway) downloadTemplate(ctx context.Context, params map[string]any) Result {
	template, _ := strParam(params, "template")

	storage, hasStorage := strParam(params, "storage")
	if !hasStorage {
		storage = g.bestStorage(ctx, g.Node(ctx), "vztmpl")
	}

	// Stale indexes make pveam reject valid names; refresh failures are not fatal.
	_, _, _, _ = g.runner.Run(ctx, time.Minute, "pveam", "update")

	_, stderr, exitCode, err := g.runner.Run(ctx, g.budgets.TemplateTask, "pveam", "download", storage, template)
	if err != nil {
		if errors.Is(err, ErrCommandTimeout) {
			return fail("Template download timed out (%ds)", int(g.budgets.TemplateTask.Seconds()))
		}
		return failErr(err)
	}
	if exitCode != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = "Download failed"
		}
		return fail("%s", msg)
	}

	volid := storage + ":vztmpl/" + template
	return Result{Success: true, Message: "Template downloaded successfully", Data: map[string]string{"volid": volid}}
}

// downloadISO asks the storage to fetch an ISO from a URL. pvesh may block
// until done or hand back a UPID; both shapes are handled.
func (g *Gateway) downloadISO(ctx context.Context, node string, params map[string]any) Result {
	url, _ := strParam(params, "url")
	filename, _ := strParam(params, "filename")
	if !strings.HasSuffix(filename, ".iso") {
		filename += ".iso"
	}

	storage, hasStorage := strParam(params, "storage")
	if !hasStorage {
		storage = g.bestStorage(ctx, node, "iso")
	}

	p := map[string]string{
		"url":      url,
		"content":  "iso",
		"filename": filename,
	}
	v, err := g.api.Call(ctx, "create", "/nodes/"+node+"/storage/"+storage+"/download-url", p, g.budgets.ISOTask)
	if err != nil {
		if errors.Is(err, ErrCommandTimeout) {
			return fail("ISO download timed out (%ds)", int(g.budgets.ISOTask.Seconds()))
		}
		return failErr(err)
	}
	if upid, isTask := IsUPID(v); isTask {
		if succeeded, status := g.tasks.Await(ctx, node, upid, g.budgets.ISOTask); !succeeded {
			return fail("ISO download failed: %s", status)
		}
	}

	volid := storage + ":iso/" + filename
	return Result{Success: true, Message: "ISO downloaded successfully", Data: map[string]string{"volid": volid}}
}

// ABOUTME: Closed action vocabulary with required-parameter schemas.
// ABOUTME: Unknown names and missing required parameters fail before any remote call.

package pve

import "strings"

// actionSpec describes one entry of the closed action vocabulary.
type actionSpec struct {
	// required lists parameter names that must be present and non-empty.
	required []string
	// readOnly actions do not invalidate the snapshot cache.
	readOnly bool
}

// vocabulary is the full closed set of action names. Anything outside this
// map fails with an unknown-action error.
var vocabulary = map[string]actionSpec{
	"list_vms":                 {readOnly: true},
	"list_containers":          {readOnly: true},
	"get_resources":            {readOnly: true},
	"list_available_templates": {readOnly: true},

	"get_container_status":     {required: []string{"vmid"}, readOnly: true},
	"get_container_config":     {required: []string{"vmid"}, readOnly: true},
	"list_container_snapshots": {required: []string{"vmid"}, readOnly: true},

	"exec_container": {required: []string{"vmid", "command"}, readOnly: true},
	"exec_host":      {required: []string{"command"}, readOnly: true},

	"create_vm": {},
	"start_vm":  {required: []string{"vmid"}},
	"stop_vm":   {required: []string{"vmid"}},
	"delete_vm": {required: []string{"vmid"}},

	"create_container":  {required: []string{"template"}},
	"start_container":   {required: []string{"vmid"}},
	"stop_container":    {required: []string{"vmid"}},
	"suspend_container": {required: []string{"vmid"}},
	"resume_container":  {required: []string{"vmid"}},
	"delete_container":  {required: []string{"vmid"}},

	"set_container_config":  {required: []string{"vmid"}},
	"resize_container_disk": {required: []string{"vmid", "size"}},

	"snapshot_container":          {required: []string{"vmid", "snapname"}},
	"rollback_container_snapshot": {required: []string{"vmid", "snapname"}},
	"delete_container_snapshot":   {required: []string{"vmid", "snapname"}},

	"clone_container":   {required: []string{"vmid", "newid"}},
	"migrate_container": {required: []string{"vmid", "target"}},

	"download_template": {required: []string{"template"}},
	"download_iso":      {required: []string{"url", "filename"}},

	"save_notes": {required: []string{"vmid", "notes"}},
}

// Known reports whether name is part of the closed action vocabulary.
func Known(name string) bool {
	_, ok := vocabulary[name]
	return ok
}

// mutating reports whether an action changes host state (and therefore
// invalidates the snapshot cache). Unknown names report false.
func mutating(name string) bool {
	spec, ok := vocabulary[name]
	return ok && !spec.readOnly
}

// missingRequired returns the required parameters absent from params.
func missingRequired(spec actionSpec, params map[string]any) []string {
	var missing []string
	for _, name := range spec.required {
		if _, ok := strParam(params, name); ok {
			continue
		}
		if _, ok := intParam(params, name); ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// requiredError formats the missing-parameter failure message.
func requiredError(missing []string) string {
	if len(missing) == 1 {
		return missing[0] + " is required"
	}
	return strings.Join(missing, " and ") + " are required"
}

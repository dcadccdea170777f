// Package pve talks to the local Proxmox VE node.
//
// # Overview
//
// The package wraps the pvesh CLI behind the API interface and exposes two
// call surfaces on top of it:
//
//   - Gateway.Execute: the uniform action entry point. Validates parameters
//     against the closed action vocabulary, shapes the pvesh request, performs
//     post-action state verification, and reports a Result.
//   - Cache.Get: a short-lived snapshot of host state (node status, storage,
//     guests, next free VMID, ISO and template inventories) used to ground the
//     model's decisions.
//
// # Verification
//
// A pvesh call returning without error only means the request was accepted.
// Operations with an observable end state (start, stop) poll the guest's live
// status until the expected state appears or the budget runs out. Creation
// verifies existence only, not a particular status. Long operations that
// return a UPID (clone, migrate, ISO download) are driven to a terminal state
// by the TaskPoller.
//
// # Cache coherence
//
// Every mutating action invalidates the snapshot cache before its Result is
// returned, so the next Get reflects the mutation regardless of remaining TTL.
package pve

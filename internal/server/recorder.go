// ABOUTME: Adapter from the session recorder interface to the SQLite ledger.
// ABOUTME: Recording failures are logged and swallowed; sessions never block.

package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/2389/pve-gateway/internal/orchestrator"
	"github.com/2389/pve-gateway/internal/store"
)

type ledgerRecorder struct {
	ledger *store.Ledger
	logger *slog.Logger
}

func (r *ledgerRecorder) RecordAction(ctx context.Context, rec orchestrator.ActionRecord) {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		params = []byte("{}")
	}
	entry := &store.Entry{
		SessionID:  rec.SessionID,
		Round:      rec.Round,
		Action:     rec.Action,
		ParamsJSON: string(params),
		Success:    rec.Success,
		Message:    rec.Message,
		VMID:       rec.VMID,
	}
	if err := r.ledger.Record(ctx, entry); err != nil {
		r.logger.Warn("ledger write failed", "action", rec.Action, "error", err)
	}
}

// ABOUTME: Session round loop: complete, extract directives, execute, feed back.
// ABOUTME: Bounded rounds; after the budget the model is forced to summarize.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/pve-gateway/internal/catalog"
	"github.com/2389/pve-gateway/internal/directive"
	"github.com/2389/pve-gateway/internal/provider"
	"github.com/2389/pve-gateway/internal/pve"
)

// MaxRounds bounds directive-executing rounds per session. The forced
// summary call after the budget is not a round.
const MaxRounds = 10

// criticalActions are steps whose failure makes the rest of the round
// meaningless. Remaining directives in the same round are skipped, but the
// model still sees all results and decides how to recover.
var criticalActions = map[string]bool{
	"create_vm":                   true,
	"create_container":            true,
	"start_vm":                    true,
	"start_container":             true,
	"download_template":           true,
	"download_iso":                true,
	"clone_container":             true,
	"rollback_container_snapshot": true,
	"migrate_container":           true,
}

// ActionRecord is one executed action as persisted to the ledger.
type ActionRecord struct {
	SessionID string
	Round     int
	Action    string
	Params    map[string]any
	Success   bool
	Message   string
	VMID      int
}

// Recorder persists executed actions. Recording is best effort; failures are
// the recorder's problem and never affect the session.
type Recorder interface {
	RecordAction(ctx context.Context, rec ActionRecord)
}

// Session drives one chat request to completion.
type Session struct {
	ID string

	gateway   *pve.Gateway
	completer provider.Completer
	recorder  Recorder
	logger    *slog.Logger
	maxRounds int
}

// NewSession creates a session with a fresh ID. recorder may be nil.
func NewSession(gw *pve.Gateway, completer provider.Completer, recorder Recorder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:        uuid.New().String(),
		gateway:   gw,
		completer: completer,
		recorder:  recorder,
		logger:    logger.With("component", "session"),
		maxRounds: MaxRounds,
	}
}

// actionOutcome is the per-directive result shape fed back to the model.
type actionOutcome struct {
	Action string     `json:"action"`
	Result pve.Result `json:"result"`
}

// Run executes the session. System turns in the incoming messages are
// discarded; the gateway owns the system prompt. Returns ErrClientGone when
// the sink fails, or the provider error when a completion fails; both are
// already reflected in the emitted events where possible.
func (s *Session) Run(ctx context.Context, messages []provider.Message, sink Sink) error {
	if err := sink.Emit(Event{Type: EventStatus, Message: "Reading server state..."}); err != nil {
		return ErrClientGone
	}

	snap := s.gateway.Snapshot().Get(ctx)
	contextJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	msgs := []provider.Message{{Role: "system", Content: catalog.SystemPrompt(string(contextJSON), snap.NextVMID)}}
	for _, m := range messages {
		if m.Role != "system" {
			msgs = append(msgs, m)
		}
	}

	s.logger.Info("session started", "session_id", s.ID, "model", s.completer.Name(), "turns", len(msgs)-1)

	for round := 0; round < s.maxRounds; round++ {
		status := "Planning next steps..."
		if round == 0 {
			status = "Thinking..."
		}
		if err := sink.Emit(Event{Type: EventStatus, Message: status}); err != nil {
			return ErrClientGone
		}

		response, err := s.completer.Complete(ctx, msgs)
		if err != nil {
			_ = sink.Emit(Event{Type: EventError, Error: err.Error()})
			return err
		}

		calls := directive.Extract(response)
		if len(calls) == 0 {
			if err := sink.Emit(Event{Type: EventDone, Response: directive.Strip(response)}); err != nil {
				return ErrClientGone
			}
			s.logger.Info("session done", "session_id", s.ID, "rounds", round)
			return nil
		}

		outcomes := make([]actionOutcome, 0, len(calls))
		failedCritical := false
		for _, call := range calls {
			if failedCritical {
				outcomes = append(outcomes, actionOutcome{
					Action: "skipped",
					Result: pve.Result{Success: false, Error: "Skipped — a previous critical step failed"},
				})
				continue
			}
			if call.Err != nil {
				s.logger.Warn("malformed directive", "session_id", s.ID, "raw_len", len(call.Raw))
				outcomes = append(outcomes, actionOutcome{
					Action: "unknown",
					Result: pve.Result{Success: false, Error: "Malformed tool call"},
				})
				continue
			}

			action, params := call.Request.Action, call.Request.Params
			if err := sink.Emit(Event{Type: EventStatus, Message: pve.DescribeAction(action, params)}); err != nil {
				return ErrClientGone
			}

			var result pve.Result
			switch action {
			case "exec_container", "exec_host":
				result, err = s.streamExec(ctx, action, params, sink)
				if err != nil {
					return err
				}
			default:
				result = s.gateway.Execute(ctx, action, params)
			}

			outcomes = append(outcomes, actionOutcome{Action: action, Result: result})
			s.record(ctx, round, action, params, result)

			if result.Success && result.VMID != 0 {
				createdType := "vm"
				if strings.Contains(action, "container") {
					createdType = "ct"
				}
				if err := sink.Emit(Event{
					Type:        EventStatus,
					Message:     pve.DescribeAction(action, params),
					CreatedVMID: result.VMID,
					CreatedType: createdType,
				}); err != nil {
					return ErrClientGone
				}
			}

			if !result.Success && criticalActions[action] {
				failedCritical = true
			}
		}

		resultsJSON, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}

		msgs = append(msgs,
			provider.Message{Role: "assistant", Content: response},
			provider.Message{
				Role: "user",
				Content: fmt.Sprintf("[System: Tool results — round %d/%d]\n%s\n\n"+
					"If more steps are needed, continue with <tool_call> tags. "+
					"When completely done, respond with a final summary and NO <tool_call> tags.",
					round+1, s.maxRounds, resultsJSON),
			},
		)
	}

	if err := sink.Emit(Event{Type: EventStatus, Message: "Generating summary..."}); err != nil {
		return ErrClientGone
	}
	msgs = append(msgs, provider.Message{
		Role:    "user",
		Content: "Max rounds reached. Summarize what was done and list any remaining manual steps. Do NOT include <tool_call> tags.",
	})
	final, err := s.completer.Complete(ctx, msgs)
	if err != nil {
		_ = sink.Emit(Event{Type: EventError, Error: err.Error()})
		return err
	}
	if err := sink.Emit(Event{Type: EventDone, Response: directive.Strip(final)}); err != nil {
		return ErrClientGone
	}
	s.logger.Info("session done", "session_id", s.ID, "rounds", s.maxRounds, "forced_summary", true)
	return nil
}

// streamExec runs exec_container or exec_host with line streaming. The only
// returned error is ErrClientGone; validation problems become failed Results.
func (s *Session) streamExec(ctx context.Context, action string, params map[string]any, sink Sink) (pve.Result, error) {
	command, _ := params["command"].(string)
	node := s.gateway.Node(ctx)

	var argv []string
	var ident string
	if action == "exec_container" {
		vmid := vmidFrom(params)
		if vmid == 0 || command == "" {
			return pve.Result{Success: false, Error: "vmid and command are required"}, nil
		}
		if !s.gateway.VerifyContainerRunning(ctx, vmid) {
			return pve.Result{
				Success: false,
				Error:   fmt.Sprintf("Container %d is not running. Start it first with start_container.", vmid),
			}, nil
		}
		ident = strconv.Itoa(vmid)
		argv = pve.ContainerArgv(vmid, command)
		if err := sink.Emit(Event{Type: EventShellStart, VMID: ident, Command: command, Node: node}); err != nil {
			return pve.Result{}, ErrClientGone
		}
	} else {
		if command == "" {
			return pve.Result{Success: false, Error: "command is required"}, nil
		}
		ident = "host"
		argv = pve.HostArgv(command)
		if err := sink.Emit(Event{Type: EventShellStart, VMID: ident, Command: command, Node: node, IsHost: true}); err != nil {
			return pve.Result{}, ErrClientGone
		}
	}

	return streamShell(ctx, argv, ident, s.gateway.Budgets().Exec, sink)
}

func (s *Session) record(ctx context.Context, round int, action string, params map[string]any, result pve.Result) {
	if s.recorder == nil {
		return
	}
	message := result.Message
	if !result.Success {
		message = result.Error
	}
	s.recorder.RecordAction(ctx, ActionRecord{
		SessionID: s.ID,
		Round:     round,
		Action:    action,
		Params:    params,
		Success:   result.Success,
		Message:   message,
		VMID:      result.VMID,
	})
}

func vmidFrom(params map[string]any) int {
	switch v := params["vmid"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return 0
}

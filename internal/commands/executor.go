// Package commands executes NUT instant commands and writable-variable
// changes, records the outcome, and notifies the live bus.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/nutclient"
	"github.com/nutify/nutify/internal/storage"
)

// statusReadDelay is how long Execute waits after a successful instant
// command before re-querying the UPS for a "what changed" snapshot.
const statusReadDelay = 1 * time.Second

// Publisher is the narrow seam into internal/bus; *bus.Hub satisfies it
// structurally, following the same pattern as poller.SamplePublisher and
// events.Publisher so this package never imports internal/bus directly.
type Publisher interface {
	PublishCommandExecuted(payload any)
	PublishCommandStats(payload any)
	PublishCommandLogs(payload any)
	PublishVariableUpdate(payload any)
}

// Executor runs instant commands and variable writes against one UPS target.
type Executor struct {
	client    *nutclient.Client
	commands  storage.CommandRepository
	variables storage.VariableRepository
	upsName   string
	upsHost   string
	bus       Publisher
	log       *zap.Logger
}

// New builds an Executor bound to a single UPS target.
func New(
	client *nutclient.Client,
	commands storage.CommandRepository,
	variables storage.VariableRepository,
	upsName, upsHost string,
	bus Publisher,
	log *zap.Logger,
) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		client:    client,
		commands:  commands,
		variables: variables,
		upsName:   upsName,
		upsHost:   upsHost,
		bus:       bus,
		log:       log.Named("commands"),
	}
}

func (e *Executor) target() string {
	return nutclient.Target(e.upsName, e.upsHost)
}

// ListCommands returns the instant commands the UPS advertises.
func (e *Executor) ListCommands(ctx context.Context) ([]nutclient.InstantCommand, error) {
	cmds, err := e.client.ListInstantCommands(ctx, e.target())
	if err != nil {
		return nil, fmt.Errorf("commands: list: %w", err)
	}
	return cmds, nil
}

// ExecutionResult is the outcome of one instant-command execution.
type ExecutionResult struct {
	UPSName   string
	Command   string
	Success   bool
	Output    string
	ChangedTo string // human-readable post-command status snapshot, empty if unavailable
}

// Execute runs a named instant command, waits briefly, and attaches a
// human-readable status snapshot to the stored log entry on success. The
// outcome is persisted and published on the bus regardless of success.
func (e *Executor) Execute(ctx context.Context, commandName, issuedBy string) (ExecutionResult, error) {
	res, err := e.client.Command(ctx, e.target(), commandName)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("commands: execute %s: %w", commandName, err)
	}

	output := joinOutput(res.Stdout, res.Stderr)

	var changed string
	if res.OK {
		select {
		case <-time.After(statusReadDelay):
		case <-ctx.Done():
		}
		if snapshot, qerr := e.client.Query(ctx, e.target()); qerr == nil {
			changed = formatStatusSnapshot(snapshot)
		} else {
			e.log.Warn("post-command status query failed", zap.String("command", commandName), zap.Error(qerr))
		}
	}

	row := &storage.UPSCommand{
		UPSName:  e.upsName,
		Command:  commandName,
		Success:  res.OK,
		Output:   joinOutput(output, changed),
		IssuedBy: issuedBy,
	}
	if err := e.commands.Create(ctx, row); err != nil {
		e.log.Error("persist command log", zap.String("command", commandName), zap.Error(err))
	}

	result := ExecutionResult{
		UPSName:   e.upsName,
		Command:   commandName,
		Success:   res.OK,
		Output:    output,
		ChangedTo: changed,
	}

	if e.bus != nil {
		e.bus.PublishCommandExecuted(result)
		e.bus.PublishCommandStats(e.stats(ctx))
		e.bus.PublishCommandLogs(row)
	}
	return result, nil
}

// VariableResult is the outcome of a writable-variable change.
type VariableResult struct {
	UPSName  string
	Name     string
	OldValue string
	NewValue string
	Success  bool
	Message  string
}

// SetVariable delegates to the NUT client's write-then-verify flow and
// stores an audit row {timestamp, name, old, new, success}. The audit row
// is recorded on the shared commands log, "SET <name>" as the command, and
// "old=... new=..." folded into Output. There is no separate
// variable-change table in the persisted schema, so this reuses
// ups_commands rather than inventing one.
func (e *Executor) SetVariable(ctx context.Context, name, value, issuedBy string) (VariableResult, error) {
	oldValue := ""
	if row, err := e.variables.Get(ctx, e.upsName, name); err == nil {
		oldValue = row.Value
	} else if !errors.Is(err, storage.ErrNotFound) {
		e.log.Warn("load previous variable value", zap.String("name", name), zap.Error(err))
	}

	ok, msg, err := e.client.SetVariable(ctx, e.target(), name, value)
	if err != nil {
		return VariableResult{}, fmt.Errorf("commands: set variable %s: %w", name, err)
	}

	if ok {
		if err := e.variables.Upsert(ctx, e.upsName, name, value); err != nil {
			e.log.Error("persist variable value", zap.String("name", name), zap.Error(err))
		}
	}

	logRow := &storage.UPSCommand{
		UPSName:  e.upsName,
		Command:  fmt.Sprintf("SET %s", name),
		Success:  ok,
		Output:   fmt.Sprintf("old=%s new=%s %s", oldValue, value, msg),
		IssuedBy: issuedBy,
	}
	if err := e.commands.Create(ctx, logRow); err != nil {
		e.log.Error("persist variable change log", zap.String("name", name), zap.Error(err))
	}

	result := VariableResult{
		UPSName:  e.upsName,
		Name:     name,
		OldValue: oldValue,
		NewValue: value,
		Success:  ok,
		Message:  msg,
	}
	if e.bus != nil {
		e.bus.PublishVariableUpdate(result)
	}
	return result, nil
}

// stats returns the total/success/failure counts over the most recent
// commands, used to refresh the history view after an execution.
func (e *Executor) stats(ctx context.Context) any {
	rows, _, err := e.commands.List(ctx, e.upsName, storage.ListOptions{Limit: 100})
	if err != nil {
		e.log.Warn("load command stats", zap.Error(err))
		return nil
	}
	total := int64(len(rows))
	var succeeded int64
	for _, r := range rows {
		if r.Success {
			succeeded++
		}
	}
	return map[string]int64{"total": total, "succeeded": succeeded, "failed": total - succeeded}
}

func joinOutput(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// formatStatusSnapshot renders a deterministic, sorted "key=value" block
// from a raw NUT query result, used as the "what changed" attachment on a
// successful instant command.
func formatStatusSnapshot(snapshot map[string]string) string {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("status after command:")
	for _, k := range keys {
		b.WriteString("\n  ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(snapshot[k])
	}
	return b.String()
}

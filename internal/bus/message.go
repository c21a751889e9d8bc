// Package bus implements the process-internal publish/subscribe hub that
// pushes live telemetry, command results, and event notifications to
// connected browser clients over WebSockets.
//
// There is no multi-tenant user model in this domain, so there is no
// per-user topic partitioning either: every client receives every message
// on one implicit broadcast topic.
package bus

// MessageType identifies the kind of event carried by a Message. The
// browser UI uses this field to route the payload to the correct store
// update.
type MessageType string

const (
	// MsgSample carries one merged static+dynamic snapshot per poll tick,
	// timestamps converted to the configured local timezone.
	MsgSample MessageType = "sample"

	// MsgCommandExecuted carries the outcome of one instant-command
	// execution.
	MsgCommandExecuted MessageType = "command_executed"

	// MsgCommandStatsUpdate and MsgCommandLogsUpdate refresh the command
	// history views after an execution.
	MsgCommandStatsUpdate MessageType = "command_stats_update"
	MsgCommandLogsUpdate  MessageType = "command_logs_update"

	// MsgVariableUpdate carries the outcome of a writable-variable change.
	MsgVariableUpdate MessageType = "variable_update"

	// MsgNUTEvent is published after the event pipeline persists a UPS
	// event.
	MsgNUTEvent MessageType = "nut_event"

	// MsgUSBDisconnect, MsgUSBReconnectAttempt, and
	// MsgContainerRestartNeeded are published by the connection monitor.
	MsgUSBDisconnect         MessageType = "usb_disconnect"
	MsgUSBReconnectAttempt   MessageType = "usb_reconnect_attempt"
	MsgContainerRestartNeeded MessageType = "container_restart_needed"

	// MsgStats carries the poller's tick success/failure counters,
	// including the storage-unhealthy flag the UI watches for.
	MsgStats MessageType = "stats"
)

// Message is the envelope for every frame sent to browser clients.
//
// JSON example:
//
//	{"type":"sample","payload":{"ups_status":"OL","battery_charge":100}}
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

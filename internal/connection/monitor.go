package connection

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/bus"
	"github.com/nutify/nutify/internal/nutclient"
)

// Publisher is the narrow seam to the live bus.
type Publisher interface {
	Publish(msg bus.Message)
}

// EventDispatcher is the narrow seam to the event pipeline, used to emit
// the synthetic COMMOK produced when connectivity is restored after a USB
// outage.
type EventDispatcher interface {
	Dispatch(ctx context.Context, rawArgs []string, sourceIP string) error
}

// Config configures a Monitor.
type Config struct {
	UPSName  string
	UPSHost  string
	Paths    nutclient.Paths
	Restart  RestartCommands
	ScanArgs []string // nut-scanner args used to probe for a USB device, default --usb_scan
}

// Monitor runs the connection-health state machine as its own cooperative
// task alongside the poller.
type Monitor struct {
	cfg    Config
	client *nutclient.Client
	runner nutclient.Runner
	bus    Publisher
	events EventDispatcher
	log    *zap.Logger

	mu       sync.RWMutex
	state    State
	lostAt   time.Time
	snapshot ConnectionState
}

// ConnectionState is the read-only snapshot handed to external readers.
// Connected is true exactly when LostAt is zero.
type ConnectionState struct {
	Phase          string        `json:"phase"`
	Connected      bool          `json:"connected"`
	Attempt        int           `json:"attempt"`
	USBDisconnect  bool          `json:"usb_disconnect"`
	LostAt         time.Time     `json:"lost_at,omitempty"`
	LastCheckedAt  time.Time     `json:"last_checked_at"`
	Failures       int           `json:"failures"`
	Recoveries     int           `json:"recoveries"`
	USBDisconnects int           `json:"usb_disconnects"`
	USBReconnects  int           `json:"usb_reconnects"`
	LastDowntime   time.Duration `json:"last_downtime_seconds"`
}

// New creates a Monitor in the Connected state.
func New(cfg Config, client *nutclient.Client, runner nutclient.Runner, publisher Publisher, events EventDispatcher, log *zap.Logger) *Monitor {
	if len(cfg.ScanArgs) == 0 {
		cfg.ScanArgs = []string{"--usb_scan"}
	}
	return &Monitor{
		cfg:    cfg,
		client: client,
		runner: runner,
		bus:    publisher,
		events: events,
		log:    log.Named("connection"),

		snapshot: ConnectionState{Phase: Connected.String(), Connected: true},
	}
}

func (m *Monitor) target() string {
	return nutclient.Target(m.cfg.UPSName, m.cfg.UPSHost)
}

// Snapshot returns a copy of the monitor's current state for read-only
// consumers.
func (m *Monitor) Snapshot() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Run ticks until ctx is cancelled. The tick cadence depends on the
// current phase: 30s Connected, 5s InitialRetry, 60s ExtendedRetry, 10s
// USBDisconnect.
func (m *Monitor) Run(ctx context.Context) {
	for {
		interval := time.Duration(TickInterval(m.currentPhase())) * time.Second
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			m.log.Info("connection monitor stopped")
			return
		case <-timer.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) currentPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Phase
}

// tick performs one state-machine step: query NUT, classify the result,
// transition, and run whatever side effects the new state implies.
func (m *Monitor) tick(ctx context.Context) {
	m.mu.RLock()
	prev := m.state
	m.mu.RUnlock()

	_, queryErr := m.client.Query(ctx, m.target())

	input := Input{QueryOK: queryErr == nil}
	if queryErr != nil {
		input.Failure = classify(queryErr)
	}

	if prev.Phase == USBDisconnect && !input.QueryOK {
		m.attemptUSBRecovery(ctx, prev)
	}

	next := Transition(prev, input)

	m.mu.Lock()
	m.state = next
	now := time.Now().UTC()
	m.snapshot.Phase = next.Phase.String()
	m.snapshot.Connected = next.Phase == Connected
	m.snapshot.Attempt = next.Attempt
	m.snapshot.USBDisconnect = next.Phase == USBDisconnect
	m.snapshot.LastCheckedAt = now
	if prev.Phase == Connected && next.Phase != Connected {
		m.lostAt = now
		m.snapshot.LostAt = now
		m.snapshot.Failures++
		if next.Phase == USBDisconnect {
			m.snapshot.USBDisconnects++
		}
	}
	var recovered bool
	if prev.Phase != Connected && next.Phase == Connected {
		recovered = true
		m.snapshot.Recoveries++
		if prev.Phase == USBDisconnect {
			m.snapshot.USBReconnects++
		}
		if !m.lostAt.IsZero() {
			m.snapshot.LastDowntime = now.Sub(m.lostAt)
		}
		m.lostAt = time.Time{}
		m.snapshot.LostAt = time.Time{}
	}
	m.mu.Unlock()

	m.publishTransition(prev, next)

	if recovered && prev.Phase == USBDisconnect && m.events != nil {
		if err := m.events.Dispatch(ctx, []string{m.target(), "COMMOK"}, ""); err != nil {
			m.log.Warn("failed to dispatch synthetic COMMOK", zap.Error(err))
		}
	}
}

// publishTransition emits the bus signals attached to specific edges:
// USB-lost on first disconnect, reconnect attempts while recovering.
func (m *Monitor) publishTransition(prev, next State) {
	if m.bus == nil {
		return
	}

	switch {
	case prev.Phase != USBDisconnect && next.Phase == USBDisconnect:
		m.publishUSBStatus("usb_disconnect", next)
		m.bus.Publish(bus.Message{Type: bus.MsgUSBDisconnect, Payload: m.Snapshot()})
	case next.Phase == USBDisconnect:
		m.publishUSBStatus("usb_reconnect_attempt", next)
		m.bus.Publish(bus.Message{Type: bus.MsgUSBReconnectAttempt, Payload: m.Snapshot()})
	case prev.Phase == USBDisconnect && next.Phase == Connected:
		m.bus.Publish(bus.Message{Type: bus.MsgUSBReconnectAttempt, Payload: m.Snapshot()})
	}
}

func (m *Monitor) publishUSBStatus(event string, s State) {
	// NOCOMM is the NUT status the UI expects while the device is gone,
	// regardless of which recovery step the monitor itself is in.
	_ = writeStatusFile(UsbStatusPath, usbStatusFile{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Status:    "NOCOMM",
		UPSName:   m.cfg.UPSName,
		Attempt:   s.Attempt,
	})
}

// attemptUSBRecovery probes for the device and, if present, runs the
// restart sequence.
func (m *Monitor) attemptUSBRecovery(ctx context.Context, state State) {
	present, err := usbDevicePresent(ctx, m.runner, m.cfg.Paths, m.cfg.ScanArgs)
	if err != nil || !present {
		return
	}

	if errs := runRestartSequence(ctx, m.runner, m.cfg.Restart); len(errs) > 0 {
		m.log.Warn("restart sequence reported errors", zap.Int("count", len(errs)))
	}

	if verifyRestart(ctx, m.runner, m.cfg.Paths, m.cfg.ScanArgs, m.client, m.target()) {
		m.log.Info("restart sequence verified recovery", zap.Int("attempt", state.Attempt))
		return
	}

	if state.Attempt >= KInit {
		if err := writeRestartNeeded("usb recovery did not verify after repeated attempts"); err != nil {
			m.log.Error("failed to write restart-needed status", zap.Error(err))
		}
		if m.bus != nil {
			m.bus.Publish(bus.Message{Type: bus.MsgContainerRestartNeeded, Payload: m.Snapshot()})
		}
	}
}

// usbDevicePresent shells out to lsusb and nut-scanner; either indicating a
// UPS device is present is enough to proceed with the restart sequence.
func usbDevicePresent(ctx context.Context, runner nutclient.Runner, paths nutclient.Paths, scanArgs []string) (bool, error) {
	lsusbOut, _, err := runner.Run(ctx, paths.Lsusb)
	if err == nil && strings.Contains(strings.ToLower(string(lsusbOut)), "ups") {
		return true, nil
	}

	if len(scanArgs) == 0 {
		scanArgs = []string{"--usb_scan"}
	}
	scanOut, _, err := runner.Run(ctx, paths.NutScanner, scanArgs...)
	if err != nil {
		return false, err
	}
	// A "driver = " line alone means nut-scanner matched a device; not
	// every driver's scan output carries a "port = " line.
	return strings.Contains(string(scanOut), "driver = "), nil
}

// classify adapts nutclient's stderr-based classification, which is baked
// into Query's returned error text, to connection.FailureKind.
func classify(err error) FailureKind {
	if err == nil {
		return FailureTransport
	}
	if nutclient.ClassifyFailure(err.Error()) == nutclient.FailureUSBLost {
		return FailureUSBLost
	}
	return FailureTransport
}

// Package connection implements the UPS connection health state machine
// and its driver loop (NUT query polling, USB recovery, service restart).
package connection

import "fmt"

// Phase is the connection health state.
type Phase int

const (
	Connected Phase = iota
	InitialRetry
	ExtendedRetry
	USBDisconnect
)

func (p Phase) String() string {
	switch p {
	case Connected:
		return "connected"
	case InitialRetry:
		return "initial_retry"
	case ExtendedRetry:
		return "extended_retry"
	case USBDisconnect:
		return "usb_disconnect"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FailureKind mirrors nutclient.FailureKind without importing it, keeping
// this package's pure core free of the client package's dependency surface.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureUSBLost
)

// Input is one state-machine tick's observation.
type Input struct {
	QueryOK     bool
	Failure     FailureKind // only meaningful when !QueryOK
	USBPresent  bool        // lsusb/nut-scanner saw a device, only consulted in USBDisconnect
	RestartedOK bool        // the restart sequence ran and verification passed
}

// State is the full machine state, including the per-phase retry counter.
type State struct {
	Phase   Phase
	Attempt int // retry count within the current phase
}

// KInit is the number of InitialRetry attempts before escalating to
// ExtendedRetry.
const KInit = 5

// Transition computes the next State for one tick's Input. It is pure and
// side-effect-free, so it is unit-testable without a live NUT connection;
// the Monitor driver loop performs the actual queries, shell-outs, and bus
// publishes around it.
func Transition(s State, in Input) State {
	if in.QueryOK {
		return State{Phase: Connected, Attempt: 0}
	}

	switch s.Phase {
	case Connected:
		if in.Failure == FailureUSBLost {
			return State{Phase: USBDisconnect, Attempt: 1}
		}
		return State{Phase: InitialRetry, Attempt: 1}

	case InitialRetry:
		next := s.Attempt + 1
		if next > KInit {
			return State{Phase: ExtendedRetry, Attempt: 1}
		}
		return State{Phase: InitialRetry, Attempt: next}

	case ExtendedRetry:
		return State{Phase: ExtendedRetry, Attempt: s.Attempt + 1}

	case USBDisconnect:
		return State{Phase: USBDisconnect, Attempt: s.Attempt + 1}

	default:
		return State{Phase: InitialRetry, Attempt: 1}
	}
}

// TickInterval returns the cadence for phase.
func TickInterval(p Phase) (seconds int) {
	switch p {
	case Connected:
		return 30
	case InitialRetry:
		return 5
	case ExtendedRetry:
		return 60
	case USBDisconnect:
		return 10
	default:
		return 30
	}
}

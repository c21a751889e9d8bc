package connection

import "testing"

func TestTransitionConnectedStaysOnSuccess(t *testing.T) {
	got := Transition(State{Phase: Connected}, Input{QueryOK: true})
	if got.Phase != Connected || got.Attempt != 0 {
		t.Errorf("got %+v, want Connected/0", got)
	}
}

func TestTransitionConnectedToInitialRetryOnTransportFailure(t *testing.T) {
	got := Transition(State{Phase: Connected}, Input{QueryOK: false, Failure: FailureTransport})
	want := State{Phase: InitialRetry, Attempt: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionConnectedToUSBDisconnectOnUSBFailure(t *testing.T) {
	got := Transition(State{Phase: Connected}, Input{QueryOK: false, Failure: FailureUSBLost})
	want := State{Phase: USBDisconnect, Attempt: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionInitialRetryEscalatesAfterKInit(t *testing.T) {
	s := State{Phase: InitialRetry, Attempt: KInit}
	got := Transition(s, Input{QueryOK: false})
	want := State{Phase: ExtendedRetry, Attempt: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionInitialRetryIncrementsBeforeKInit(t *testing.T) {
	s := State{Phase: InitialRetry, Attempt: 2}
	got := Transition(s, Input{QueryOK: false})
	want := State{Phase: InitialRetry, Attempt: 3}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionExtendedRetryStaysAndIncrements(t *testing.T) {
	s := State{Phase: ExtendedRetry, Attempt: 4}
	got := Transition(s, Input{QueryOK: false})
	want := State{Phase: ExtendedRetry, Attempt: 5}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionUSBDisconnectStaysAndIncrementsOnFailure(t *testing.T) {
	s := State{Phase: USBDisconnect, Attempt: 1}
	got := Transition(s, Input{QueryOK: false})
	want := State{Phase: USBDisconnect, Attempt: 2}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTransitionAnyPhaseReturnsToConnectedOnSuccess(t *testing.T) {
	for _, phase := range []Phase{InitialRetry, ExtendedRetry, USBDisconnect} {
		got := Transition(State{Phase: phase, Attempt: 3}, Input{QueryOK: true})
		if got.Phase != Connected || got.Attempt != 0 {
			t.Errorf("phase %v: got %+v, want Connected/0", phase, got)
		}
	}
}

func TestTickIntervalDefaults(t *testing.T) {
	cases := map[Phase]int{
		Connected:     30,
		InitialRetry:  5,
		ExtendedRetry: 60,
		USBDisconnect: 10,
	}
	for phase, want := range cases {
		if got := TickInterval(phase); got != want {
			t.Errorf("TickInterval(%v) = %d, want %d", phase, got, want)
		}
	}
}

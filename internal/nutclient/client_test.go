package nutclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeRunner is a scripted Runner: each call consumes the next canned
// output.
type fakeRunner struct {
	calls   [][]string
	outputs []fakeOutput
	idx     int
}

type fakeOutput struct {
	stdout, stderr string
	err            error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.idx >= len(f.outputs) {
		return nil, nil, errors.New("fakeRunner: no scripted output left")
	}
	out := f.outputs[f.idx]
	f.idx++
	return []byte(out.stdout), []byte(out.stderr), out.err
}

func TestQueryParsesKeyValueLines(t *testing.T) {
	f := &fakeRunner{outputs: []fakeOutput{{
		stdout: "battery.charge: 100\nups.status: OL\nups.mfr: APC\n",
	}}}
	c := New(f, DefaultPaths(), time.Second)

	got, err := c.Query(context.Background(), "ups@localhost")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got["battery.charge"] != "100" || got["ups.status"] != "OL" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestQueryRejectsEmptyResult(t *testing.T) {
	f := &fakeRunner{outputs: []fakeOutput{{stdout: ""}}}
	c := New(f, DefaultPaths(), time.Second)

	if _, err := c.Query(context.Background(), "ups@localhost"); err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestClassifyFailureDetectsUSBLost(t *testing.T) {
	cases := []struct {
		stderr string
		want   FailureKind
	}{
		{"Error: Driver not connected", FailureUSBLost},
		{"Error: Data stale", FailureUSBLost},
		{"Error: Connection timed out", FailureTransport},
	}
	for _, tc := range cases {
		if got := ClassifyFailure(tc.stderr); got != tc.want {
			t.Errorf("ClassifyFailure(%q) = %v, want %v", tc.stderr, got, tc.want)
		}
	}
}

func TestCommandSucceedsOnOKStderr(t *testing.T) {
	f := &fakeRunner{outputs: []fakeOutput{{
		stdout: "",
		stderr: "OK",
		err:    errors.New("exit status 1"),
	}}}
	c := New(f, DefaultPaths(), time.Second)

	res, err := c.Command(context.Background(), "ups@localhost", "test.battery.start")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK result, got %#v", res)
	}
}

func TestSetVariableAcceptsWhenVerified(t *testing.T) {
	f := &fakeRunner{outputs: []fakeOutput{
		{stdout: "", stderr: "OK"},
		{stdout: "ups.delay.shutdown: 30\n"},
	}}
	c := New(f, DefaultPaths(), time.Second)

	ok, msg, err := c.SetVariable(context.Background(), "ups@localhost", "ups.delay.shutdown", "30")
	if err != nil {
		t.Fatalf("SetVariable: %v", err)
	}
	if !ok || msg != "accepted" {
		t.Fatalf("unexpected result: ok=%v msg=%q", ok, msg)
	}
}

func TestListInstantCommandsParsesBlock(t *testing.T) {
	f := &fakeRunner{outputs: []fakeOutput{{
		stdout: "Instant commands supported on UPS [ups@localhost]:\n\ntest.battery.start - Start battery test\ntest.battery.stop - Stop battery test\n",
	}}}
	c := New(f, DefaultPaths(), time.Second)

	got, err := c.ListInstantCommands(context.Background(), "ups@localhost")
	if err != nil {
		t.Fatalf("ListInstantCommands: %v", err)
	}
	if len(got) != 2 || got[0].Name != "test.battery.start" {
		t.Fatalf("unexpected commands: %#v", got)
	}
}

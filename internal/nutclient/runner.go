// Package nutclient shells out to the NUT command-line tools (upsc, upscmd,
// upsrw, nut-scanner, lsusb) and parses their output. It never links
// against NUT as a library: every interaction goes through an external
// process, so NUT and the supervisor can be upgraded independently.
package nutclient

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its captured stdout,
// stderr, and any start/wait error. It is the single seam between this
// package and the operating system, so tests substitute a fake instead of
// exec'ing real NUT binaries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner is the production Runner, backed by os/exec.
type execRunner struct{}

// NewExecRunner returns a Runner that shells out to real binaries.
func NewExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// FailureKind classifies why a NUT command failed.
type FailureKind int

const (
	// FailureTransport covers any non-USB failure: timeout, bad host,
	// nonzero exit with an unrecognized stderr message.
	FailureTransport FailureKind = iota
	// FailureUSBLost is returned when stderr matches one of the known
	// USB-disconnect phrasings.
	FailureUSBLost
)

// usbLostIndicators are the stderr phrasings NUT's drivers emit when the
// USB device itself is gone, as opposed to an ordinary transport failure.
// Matching is exact-substring and case-sensitive; kept as a slice, not a
// compiled regex, because matches are plain containment.
var usbLostIndicators = []string{
	"No such file or directory",
	"Connection failure",
	"Data stale",
	"Driver not connected",
	"USB communication driver failed",
	"Communication with UPS lost",
}

// ClassifyFailure inspects stderr text and decides whether the failure looks
// like a USB disconnect or an ordinary transport failure.
func ClassifyFailure(stderr string) FailureKind {
	for _, indicator := range usbLostIndicators {
		if strings.Contains(stderr, indicator) {
			return FailureUSBLost
		}
	}
	return FailureTransport
}

// Target identifies a UPS by name and host, e.g. "ups@localhost".
func Target(name, host string) string {
	return fmt.Sprintf("%s@%s", name, host)
}

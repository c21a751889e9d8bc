package connection

import (
	"context"
	"time"

	"github.com/nutify/nutify/internal/nutclient"
)

// RestartCommands are the configurable, idempotent shell invocations that
// make up the service restart sequence. Each step is a full argv; the zero
// value for a step is skipped.
type RestartCommands struct {
	StopUpsmon   []string
	StopUpsd     []string
	StopDrivers  []string
	ChmodUSB     []string
	StartDrivers []string
	StartUpsd    []string
	StartUpsmon  []string
}

// DefaultRestartCommands returns the conventional systemd-based sequence.
// Deployments without systemd override this in configuration.
func DefaultRestartCommands() RestartCommands {
	return RestartCommands{
		StopUpsmon:   []string{"systemctl", "stop", "nut-monitor"},
		StopUpsd:     []string{"systemctl", "stop", "nut-server"},
		StopDrivers:  []string{"systemctl", "stop", "nut-driver"},
		ChmodUSB:     []string{"chmod", "-R", "777", "/dev/bus/usb"},
		StartDrivers: []string{"systemctl", "start", "nut-driver"},
		StartUpsd:    []string{"systemctl", "start", "nut-server"},
		StartUpsmon:  []string{"systemctl", "start", "nut-monitor"},
	}
}

// TWait is the pause between stopping drivers and chmod'ing the USB bus,
// giving the kernel time to release the device node.
const TWait = 3 * time.Second

// runRestartSequence executes the service restart sequence: stop upsmon →
// stop upsd → stop drivers → sleep T_wait → chmod USB bus → start drivers →
// start upsd → start upsmon. Verification is done separately by
// verifyRestart. Each step's error is
// logged by the caller; the sequence presses on regardless, since the
// commands are documented as idempotent and a later step succeeding can
// still recover the device even if an earlier stop failed (e.g. the service
// was already down).
func runRestartSequence(ctx context.Context, runner nutclient.Runner, cmds RestartCommands) []error {
	var errs []error
	run := func(argv []string) {
		if len(argv) == 0 {
			return
		}
		if _, _, err := runner.Run(ctx, argv[0], argv[1:]...); err != nil {
			errs = append(errs, err)
		}
	}

	run(cmds.StopUpsmon)
	run(cmds.StopUpsd)
	run(cmds.StopDrivers)

	select {
	case <-time.After(TWait):
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
		return errs
	}

	run(cmds.ChmodUSB)
	run(cmds.StartDrivers)
	run(cmds.StartUpsd)
	run(cmds.StartUpsmon)

	return errs
}

// verifyRestart checks the restart sequence actually brought the UPS back:
// a process check via ps, a nut-scanner USB rescan, and a live upsc query.
func verifyRestart(ctx context.Context, runner nutclient.Runner, paths nutclient.Paths, scanArgs []string, client *nutclient.Client, target string) bool {
	if _, _, err := runner.Run(ctx, "ps", "-C", "upsd"); err != nil {
		return false
	}
	if present, err := usbDevicePresent(ctx, runner, paths, scanArgs); err != nil || !present {
		return false
	}
	_, err := client.Query(ctx, target)
	return err == nil
}

package nutclient

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Paths configures where the NUT binaries live. Callers pass it to New;
// DefaultPaths gives the plain $PATH-relative names.
type Paths struct {
	Upsc       string
	Upscmd     string
	Upsrw      string
	NutScanner string
	Lsusb      string
	Upsdrvctl  string
	Upsd       string
	Upsmon     string
}

// DefaultPaths returns the conventional $PATH-relative binary names.
func DefaultPaths() Paths {
	return Paths{
		Upsc:       "upsc",
		Upscmd:     "upscmd",
		Upsrw:      "upsrw",
		NutScanner: "nut-scanner",
		Lsusb:      "lsusb",
		Upsdrvctl:  "upsdrvctl",
		Upsd:       "upsd",
		Upsmon:     "upsmon",
	}
}

// Client wraps the NUT CLI tools behind a small, testable API.
type Client struct {
	runner  Runner
	paths   Paths
	timeout time.Duration
}

// New creates a Client. timeout bounds every individual subprocess call;
// 0 selects the 10s default.
func New(runner Runner, paths Paths, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{runner: runner, paths: paths, timeout: timeout}
}

// Query runs `upsc <target>` and parses its "key: value" lines into a map.
// An empty result (no lines parsed) is treated as an error even if the
// subprocess exited 0, since NUT occasionally does that for a dead driver.
func (c *Client) Query(ctx context.Context, target string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, c.paths.Upsc, target)
	if err != nil {
		return nil, fmt.Errorf("nutclient: query %s: %w: %s", target, err, strings.TrimSpace(string(stderr)))
	}

	result := parseKeyValue(string(stdout))
	if len(result) == 0 {
		return nil, fmt.Errorf("nutclient: query %s: empty result", target)
	}
	return result, nil
}

// parseKeyValue splits "key: value" lines, trimming whitespace on both
// sides. Lines without a colon are skipped.
func parseKeyValue(output string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		result[key] = value
	}
	return result
}

// CommandResult is the outcome of an instant command or a variable write.
type CommandResult struct {
	OK      bool
	Stdout  string
	Stderr  string
}

// Command runs `upscmd <target> <command>` and reports success.
//
// NUT reports success for set/cmd operations either via exit code 0 or by
// writing literally "OK" to stderr; both must be treated as success.
func (c *Client) Command(ctx context.Context, target, command string) (CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, c.paths.Upscmd, target, command)
	stderrStr := strings.TrimSpace(string(stderr))
	res := CommandResult{
		Stdout: strings.TrimSpace(string(stdout)),
		Stderr: stderrStr,
	}
	if err == nil || stderrStr == "OK" {
		res.OK = true
		return res, nil
	}
	return res, nil
}

// SetVariable runs `upsrw -s <name>=<value> <target>` and then performs up to
// three verification reads spaced at least 1s apart, confirming the UPS has
// reflected the new value.
func (c *Client) SetVariable(ctx context.Context, target, name, value string) (ok bool, message string, err error) {
	setCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	assignment := fmt.Sprintf("%s=%s", name, value)
	_, stderr, runErr := c.runner.Run(setCtx, c.paths.Upsrw, "-s", assignment, target)
	stderrStr := strings.TrimSpace(string(stderr))
	if runErr != nil && stderrStr != "OK" {
		return false, "", fmt.Errorf("nutclient: set %s on %s: %w: %s", name, target, runErr, stderrStr)
	}

	const verifyAttempts = 3
	const verifyDelay = 1 * time.Second
	for i := 0; i < verifyAttempts; i++ {
		select {
		case <-time.After(verifyDelay):
		case <-ctx.Done():
			return true, "accepted, verify pending", ctx.Err()
		}

		snapshot, qerr := c.Query(ctx, target)
		if qerr != nil {
			continue
		}
		if snapshot[name] == value {
			return true, "accepted", nil
		}
	}
	return true, "accepted, verify pending", nil
}

// ListInstantCommands runs `upscmd -l <target>` and parses the list of
// instant commands supported by the device. Output follows NUT's format:
// a header line, then "name - description" lines.
func (c *Client) ListInstantCommands(ctx context.Context, target string) ([]InstantCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, c.paths.Upscmd, "-l", target)
	if err != nil {
		return nil, fmt.Errorf("nutclient: list commands %s: %w: %s", target, err, strings.TrimSpace(string(stderr)))
	}
	return parseInstantCommands(string(stdout)), nil
}

// InstantCommand is one entry from `upscmd -l`.
type InstantCommand struct {
	Name        string
	Description string
}

func parseInstantCommands(output string) []InstantCommand {
	var commands []InstantCommand
	inBlock := false
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "Instant commands supported on UPS") {
			inBlock = true
			continue
		}
		if !inBlock || trimmed == "" {
			continue
		}
		name, desc, found := strings.Cut(trimmed, " - ")
		if !found {
			continue
		}
		commands = append(commands, InstantCommand{
			Name:        strings.TrimSpace(name),
			Description: strings.TrimSpace(desc),
		})
	}
	return commands
}

// Package config reads the NUT installation's own configuration files
// (nut.conf, ups.conf, upsd.conf, upsd.users, upsmon.conf) and exposes a
// single consistent snapshot of the installation's mode, UPS identity, and
// credentials. It never writes to these files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Mode is the NUT operating mode read from nut.conf.
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeNetserver  Mode = "netserver"
	ModeNetclient  Mode = "netclient"
	ModeUnknown    Mode = "unknown"
)

// modeDetails describes which config files each mode requires and which
// NUT services it starts.
var modeDetails = map[Mode]struct {
	requiredFiles []string
	services      []string
}{
	ModeStandalone: {
		requiredFiles: []string{"nut.conf", "ups.conf", "upsd.conf", "upsd.users", "upsmon.conf"},
		services:      []string{"upsdrvctl", "upsd", "upsmon"},
	},
	ModeNetserver: {
		requiredFiles: []string{"nut.conf", "ups.conf", "upsd.conf", "upsd.users", "upsmon.conf"},
		services:      []string{"upsdrvctl", "upsd", "upsmon"},
	},
	ModeNetclient: {
		requiredFiles: []string{"nut.conf", "upsmon.conf"},
		services:      []string{"upsmon"},
	},
	ModeUnknown: {},
}

// Paths locates the five NUT configuration files on disk.
type Paths struct {
	NutConf    string
	UpsConf    string
	UpsdConf   string
	UpsdUsers  string
	UpsmonConf string
}

// DefaultPaths returns the conventional /etc/nut locations.
func DefaultPaths() Paths {
	return Paths{
		NutConf:    "/etc/nut/nut.conf",
		UpsConf:    "/etc/nut/ups.conf",
		UpsdConf:   "/etc/nut/upsd.conf",
		UpsdUsers:  "/etc/nut/upsd.users",
		UpsmonConf: "/etc/nut/upsmon.conf",
	}
}

// Snapshot is the config store's consistent, point-in-time view.
type Snapshot struct {
	Mode             Mode
	UPSName          string
	UPSHost          string
	Driver           string
	AdminUser        string
	AdminPassword    string
	MonitorUser      string
	MonitorPassword  string
	RequiredFiles    []string
	MissingFiles     []string
	ServicesToStart  []string
	Configured       bool
}

// Store is the thread-safe, lazily-initialized holder of the current
// Snapshot. A single Store is constructed once in main and shared by every
// component that needs NUT configuration.
type Store struct {
	paths Paths

	mu     sync.RWMutex
	loaded bool
	snap   Snapshot
}

// New creates a Store bound to paths. It does not read any file until the
// first call to Snapshot or Refresh.
func New(paths Paths) *Store {
	return &Store{paths: paths}
}

// Snapshot returns the current configuration view, triggering a Refresh on
// first access if the store has never been loaded.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	loaded := s.loaded
	snap := s.snap
	s.mu.RUnlock()

	if loaded {
		return snap
	}
	_ = s.Refresh()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh re-reads nut.conf, upsmon.conf, ups.conf and upsd.users
// atomically under a write lock and recomputes the Snapshot. upsd.conf is
// only checked for presence (as a required file of the mode); nothing is
// parsed from it.
func (s *Store) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := readMode(s.paths.NutConf)
	name, host := readMonitorTarget(s.paths.UpsmonConf)
	confName, driver := readUpsConf(s.paths.UpsConf)
	users := readUpsdUsers(s.paths.UpsdUsers)

	// upsmon.conf's MONITOR line is authoritative for the target; ups.conf's
	// section header covers installations that never configured upsmon.
	if name == "" {
		name = confName
	}
	if host == "" && confName != "" {
		host = "localhost"
	}

	var adminUser, adminPassword, monitorUser, monitorPassword string
	for username, u := range users {
		if u.isAdmin && adminUser == "" {
			adminUser, adminPassword = username, u.password
		}
		if u.isMonitor && monitorUser == "" {
			monitorUser, monitorPassword = username, u.password
		}
	}

	details := modeDetails[mode]
	missing := missingFiles(s.paths, details.requiredFiles)

	s.snap = Snapshot{
		Mode:            mode,
		UPSName:         name,
		UPSHost:         host,
		Driver:          driver,
		AdminUser:       adminUser,
		AdminPassword:   adminPassword,
		MonitorUser:     monitorUser,
		MonitorPassword: monitorPassword,
		RequiredFiles:   details.requiredFiles,
		MissingFiles:    missing,
		ServicesToStart: details.services,
		Configured:      mode != ModeUnknown && len(missing) == 0 && name != "" && host != "",
	}
	s.loaded = true
	return nil
}

// readMode extracts the MODE= line from nut.conf.
func readMode(path string) Mode {
	content, err := os.ReadFile(path)
	if err != nil {
		return ModeUnknown
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "MODE=") {
			continue
		}
		value := strings.TrimSpace(strings.SplitN(line, "=", 2)[1])
		value = strings.Trim(value, `"'`)
		return Mode(strings.ToLower(value))
	}
	return ModeUnknown
}

// readMonitorTarget extracts the "ups@host" target from upsmon.conf's
// MONITOR line.
func readMonitorTarget(path string) (name, host string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || !strings.HasPrefix(line, "MONITOR") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		target := fields[1]
		n, h, found := strings.Cut(target, "@")
		if !found {
			continue
		}
		return n, h
	}
	return "", ""
}

// readUpsConf extracts the first [section] name and its driver line from
// ups.conf.
func readUpsConf(path string) (name, driver string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			continue
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			if name != "" {
				return name, driver
			}
			name = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		case name != "" && strings.HasPrefix(trimmed, "driver"):
			if _, v, found := strings.Cut(trimmed, "="); found {
				driver = strings.Trim(strings.TrimSpace(v), `"`)
			}
		}
	}
	return name, driver
}

type upsdUser struct {
	password  string
	isAdmin   bool
	isMonitor bool
}

var (
	passwordRE   = regexp.MustCompile(`password\s*=\s*"([^"]*)"`)
	actionsSetRE = regexp.MustCompile(`(?s)actions\s*=.*?SET`)
	upsmonRE     = regexp.MustCompile(`upsmon`)
)

// readUpsdUsers parses the bracketed [username] sections of upsd.users.
// Each section runs from its [username] header to the next header (or EOF).
func readUpsdUsers(path string) map[string]upsdUser {
	users := make(map[string]upsdUser)
	content, err := os.ReadFile(path)
	if err != nil {
		return users
	}

	var current string
	var block strings.Builder
	flush := func() {
		if current == "" {
			return
		}
		b := block.String()
		u := upsdUser{}
		if pm := passwordRE.FindStringSubmatch(b); pm != nil {
			u.password = pm[1]
		}
		u.isAdmin = actionsSetRE.MatchString(b)
		u.isMonitor = upsmonRE.MatchString(b)
		users[current] = u
	}

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			flush()
			current = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			block.Reset()
			continue
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	flush()
	return users
}

// missingFiles reports which of the named required files are absent on
// disk, keyed by their conventional basenames ("nut.conf", "ups.conf", ...).
func missingFiles(paths Paths, required []string) []string {
	byName := map[string]string{
		"nut.conf":    paths.NutConf,
		"ups.conf":    paths.UpsConf,
		"upsd.conf":   paths.UpsdConf,
		"upsd.users":  paths.UpsdUsers,
		"upsmon.conf": paths.UpsmonConf,
	}

	var missing []string
	for _, name := range required {
		path, ok := byName[name]
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// ModeDescription returns a short human-readable description of a mode, for
// display in diagnostics.
func ModeDescription(mode Mode) string {
	switch mode {
	case ModeStandalone:
		return "Everything runs locally: a physical UPS is connected to this machine."
	case ModeNetserver:
		return "Like standalone, but also serves UPS status to network clients."
	case ModeNetclient:
		return "Connects to a remote NUT server to read its UPS status."
	default:
		return fmt.Sprintf("unrecognized or unconfigured NUT mode %q", string(mode))
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRefreshParsesStandaloneInstallation(t *testing.T) {
	dir := t.TempDir()

	paths := Paths{
		NutConf:    writeFile(t, dir, "nut.conf", "MODE=standalone\n"),
		UpsConf:    writeFile(t, dir, "ups.conf", "[ups]\n\tdriver = usbhid-ups\n"),
		UpsdConf:   writeFile(t, dir, "upsd.conf", "LISTEN 127.0.0.1 3493\n"),
		UpsdUsers:  writeFile(t, dir, "upsd.users", "[admin]\n\tpassword = \"secret1\"\n\tactions = SET\n\tinstcmds = ALL\n\n[monuser]\n\tpassword = \"secret2\"\n\tupsmon master\n"),
		UpsmonConf: writeFile(t, dir, "upsmon.conf", "MONITOR ups@localhost 1 monuser secret2 master\n"),
	}

	store := New(paths)
	snap := store.Snapshot()

	if snap.Mode != ModeStandalone {
		t.Fatalf("Mode = %v, want standalone", snap.Mode)
	}
	if snap.UPSName != "ups" || snap.UPSHost != "localhost" {
		t.Fatalf("UPS target = %s@%s", snap.UPSName, snap.UPSHost)
	}
	if snap.AdminUser != "admin" || snap.AdminPassword != "secret1" {
		t.Fatalf("admin user mismatch: %+v", snap)
	}
	if snap.MonitorUser != "monuser" || snap.MonitorPassword != "secret2" {
		t.Fatalf("monitor user mismatch: %+v", snap)
	}
	if len(snap.MissingFiles) != 0 {
		t.Fatalf("MissingFiles = %v, want none", snap.MissingFiles)
	}
	if !snap.Configured {
		t.Fatalf("expected Configured = true, got snapshot %+v", snap)
	}
}

func TestRefreshReportsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		NutConf:    writeFile(t, dir, "nut.conf", "MODE=netserver\n"),
		UpsConf:    filepath.Join(dir, "missing-ups.conf"),
		UpsdConf:   filepath.Join(dir, "missing-upsd.conf"),
		UpsdUsers:  filepath.Join(dir, "missing-upsd.users"),
		UpsmonConf: filepath.Join(dir, "missing-upsmon.conf"),
	}

	store := New(paths)
	snap := store.Snapshot()

	if snap.Mode != ModeNetserver {
		t.Fatalf("Mode = %v, want netserver", snap.Mode)
	}
	if len(snap.MissingFiles) != 4 {
		t.Fatalf("MissingFiles = %v, want 4 entries", snap.MissingFiles)
	}
	if snap.Configured {
		t.Fatalf("expected Configured = false with missing files")
	}
}

func TestUnknownModeWhenNutConfAbsent(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		NutConf:    filepath.Join(dir, "nut.conf"),
		UpsConf:    filepath.Join(dir, "ups.conf"),
		UpsdConf:   filepath.Join(dir, "upsd.conf"),
		UpsdUsers:  filepath.Join(dir, "upsd.users"),
		UpsmonConf: filepath.Join(dir, "upsmon.conf"),
	}

	store := New(paths)
	snap := store.Snapshot()

	if snap.Mode != ModeUnknown {
		t.Fatalf("Mode = %v, want unknown", snap.Mode)
	}
	if snap.Configured {
		t.Fatalf("expected Configured = false for unknown mode")
	}
}

func TestReadUpsConfDriverSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ups.conf", "# comment\n[myups]\n\tdriver = usbhid-ups\n\tport = auto\n\n[second]\n\tdriver = dummy-ups\n")

	name, driver := readUpsConf(path)
	if name != "myups" || driver != "usbhid-ups" {
		t.Fatalf("readUpsConf = (%q, %q), want (myups, usbhid-ups)", name, driver)
	}
}

func TestSnapshotFallsBackToUpsConfName(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		NutConf:    writeFile(t, dir, "nut.conf", "MODE=standalone\n"),
		UpsConf:    writeFile(t, dir, "ups.conf", "[rackups]\n\tdriver = usbhid-ups\n"),
		UpsdConf:   writeFile(t, dir, "upsd.conf", "LISTEN 127.0.0.1 3493\n"),
		UpsdUsers:  writeFile(t, dir, "upsd.users", "[admin]\n\tpassword = \"pw\"\n\tactions = SET\n"),
		UpsmonConf: writeFile(t, dir, "upsmon.conf", "# no MONITOR line yet\n"),
	}

	snap := New(paths).Snapshot()
	if snap.UPSName != "rackups" || snap.UPSHost != "localhost" {
		t.Fatalf("UPS target = %s@%s, want rackups@localhost", snap.UPSName, snap.UPSHost)
	}
	if snap.Driver != "usbhid-ups" {
		t.Fatalf("Driver = %q, want usbhid-ups", snap.Driver)
	}
}

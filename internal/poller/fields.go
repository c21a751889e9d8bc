package poller

import (
	"strconv"
	"strings"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// knownDynamicKeys are the NUT variables with a declared column on
// UPSDynamicData. Anything else observed in an upsc snapshot lands in the
// row's Extra bag.
var knownDynamicKeys = map[string]bool{
	"battery.charge":        true,
	"battery.voltage":       true,
	"battery.runtime":       true,
	"input.voltage":         true,
	"output.voltage":        true,
	"ups.status":            true,
	"ups.load":              true,
	"ups.realpower":         true,
	"ups.realpower.nominal": true,
	"ups.temperature":       true,
}

// staticKeys are device-identity variables stored once on UPSStaticData;
// they are excluded from the per-tick sample rather than duplicated into
// every row's Extra bag.
var staticKeys = map[string]bool{
	"device.model":           true,
	"device.serial":          true,
	"device.mfr":             true,
	"ups.mfr":                true,
	"ups.firmware":           true,
	"ups.firmware.aux":       true,
	"battery.type":           true,
	"input.voltage.nominal":  true,
	"output.voltage.nominal": true,
}

// parseFloatPtr parses s as a float64, returning nil for empty or
// non-numeric values rather than an error; NUT mixes numeric and
// string-valued keys in the same key/value stream.
func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// buildStaticRow extracts the device-identity fields from one upsc
// snapshot. Keys not present are left null/zero.
func buildStaticRow(upsName string, raw map[string]string) *storage.UPSStaticData {
	manufacturer := raw["device.mfr"]
	if manufacturer == "" {
		manufacturer = raw["ups.mfr"]
	}
	firmware := raw["ups.firmware"]
	if firmware == "" {
		firmware = raw["ups.firmware.aux"]
	}

	return &storage.UPSStaticData{
		UPSName:           upsName,
		Model:             raw["device.model"],
		Serial:            raw["device.serial"],
		Manufacturer:      manufacturer,
		Firmware:          firmware,
		BatteryType:       raw["battery.type"],
		NominalInputVolt:  parseFloatPtr(raw["input.voltage.nominal"]),
		NominalOutputVolt: parseFloatPtr(raw["output.voltage.nominal"]),
		NominalPower:      parseFloatPtr(raw["ups.realpower.nominal"]),
	}
}

// buildDynamicRow maps one upsc snapshot into a dynamic sample row: declared
// columns get their typed value, everything else goes into Extra with "."
// replaced by "_".
func buildDynamicRow(upsName string, ts time.Time, raw map[string]string) *storage.UPSDynamicData {
	row := &storage.UPSDynamicData{
		UPSName:         upsName,
		TimestampUTC:    ts,
		UPSStatus:       raw["ups.status"],
		BatteryCharge:   parseFloatPtr(raw["battery.charge"]),
		BatteryVoltage:  parseFloatPtr(raw["battery.voltage"]),
		BatteryRuntime:  parseFloatPtr(raw["battery.runtime"]),
		InputVoltage:    parseFloatPtr(raw["input.voltage"]),
		OutputVoltage:   parseFloatPtr(raw["output.voltage"]),
		UPSLoad:         parseFloatPtr(raw["ups.load"]),
		UPSRealpower:    parseFloatPtr(raw["ups.realpower"]),
		UPSRealpowerNom: parseFloatPtr(raw["ups.realpower.nominal"]),
		UPSTemperature:  parseFloatPtr(raw["ups.temperature"]),
		Extra:           storage.JSONMap{},
	}

	for key, value := range raw {
		if knownDynamicKeys[key] || staticKeys[key] {
			continue
		}
		normalized := strings.ReplaceAll(key, ".", "_")
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			row.Extra[normalized] = f
		} else {
			row.Extra[normalized] = value
		}
	}
	return row
}

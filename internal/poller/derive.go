package poller

import "github.com/nutify/nutify/internal/storage"

// DefaultNominalPower is the configuration default used when neither the
// current sample nor the static row report a nominal power.
const DefaultNominalPower = 1000.0

// deriveRealpower fills row.UPSRealpower when NUT did not report it (absent
// or zero): realpower = nominal × load / 100, with the nominal resolved in
// order from the current sample's ups.realpower.nominal, the static row's
// nominal power, then defaultNominal.
func deriveRealpower(row *storage.UPSDynamicData, staticRow *storage.UPSStaticData, defaultNominal float64) {
	if row.UPSRealpower != nil && *row.UPSRealpower != 0 {
		return
	}
	if row.UPSLoad == nil {
		return
	}

	nominal := defaultNominal
	switch {
	case row.UPSRealpowerNom != nil && *row.UPSRealpowerNom != 0:
		nominal = *row.UPSRealpowerNom
	case staticRow != nil && staticRow.NominalPower != nil && *staticRow.NominalPower != 0:
		nominal = *staticRow.NominalPower
	}

	value := nominal * (*row.UPSLoad) / 100
	row.UPSRealpower = &value
}

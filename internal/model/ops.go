package model

// OperationKind identifies one of the fixed set of supported query types.
// The set is closed and not user-extensible.
type OperationKind string

const (
	OpMoonPhases     OperationKind = "moon_phases"
	OpSunMoon        OperationKind = "sun_moon"
	OpEclipseDate    OperationKind = "eclipse_date"
	OpEclipseYear    OperationKind = "eclipse_year"
	OpSeasons        OperationKind = "seasons"
	OpPlanetPosition OperationKind = "planet_position"
	OpPlanetEvents   OperationKind = "planet_events"
	OpSkySummary     OperationKind = "sky_summary"
)

// OperationKinds lists every operation kind in a fixed order
var OperationKinds = []OperationKind{
	OpMoonPhases,
	OpSunMoon,
	OpEclipseDate,
	OpEclipseYear,
	OpSeasons,
	OpPlanetPosition,
	OpPlanetEvents,
	OpSkySummary,
}

// ValidOperationKind reports whether s names a supported operation kind
func ValidOperationKind(s string) bool {
	for _, op := range OperationKinds {
		if op == OperationKind(s) {
			return true
		}
	}
	return false
}

// BackendIdentity identifies a concrete backend implementation
type BackendIdentity string

const (
	// BackendUSNO is the remote authority: the US Navy Astronomical
	// Applications API.
	BackendUSNO BackendIdentity = "usno"

	// BackendEphemeris is the local computation engine backed by a JPL
	// ephemeris data file.
	BackendEphemeris BackendIdentity = "ephemeris"
)

// BackendIdentities lists every registered backend identity
var BackendIdentities = []BackendIdentity{BackendUSNO, BackendEphemeris}

// ValidBackendIdentity reports whether s names a registered backend
func ValidBackendIdentity(s string) bool {
	for _, id := range BackendIdentities {
		if id == BackendIdentity(s) {
			return true
		}
	}
	return false
}

// backendSupport declares which operation kinds each backend implements.
// The remote authority has no planet endpoints; the local engine's raw
// quantities do not cover sun/moon daily tables or eclipse circumstances.
var backendSupport = map[BackendIdentity]map[OperationKind]bool{
	BackendUSNO: {
		OpMoonPhases:  true,
		OpSunMoon:     true,
		OpEclipseDate: true,
		OpEclipseYear: true,
		OpSeasons:     true,
	},
	BackendEphemeris: {
		OpMoonPhases:     true,
		OpSeasons:        true,
		OpPlanetPosition: true,
		OpPlanetEvents:   true,
		OpSkySummary:     true,
	},
}

// BackendSupports reports whether a backend identity implements an
// operation kind. Used both for resolution-time validation of explicit
// overrides and by the providers' declared-support queries.
func BackendSupports(id BackendIdentity, op OperationKind) bool {
	return backendSupport[id][op]
}

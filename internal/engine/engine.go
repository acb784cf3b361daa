// Package engine defines the contract for the local ephemeris computation
// engine. The engine is a pluggable numerical core: given a time and an
// observer location it returns raw astronomical quantities, which the
// ephemeris provider translates into the typed response contracts. The
// server ships no numerical core of its own; a concrete engine is injected
// through OpenFunc when the local backend is configured.
package engine

import (
	"context"
	"time"
)

// Location is an observer position on Earth
type Location struct {
	LatDeg  float64
	LonDeg  float64
	HeightM float64
}

// Phase codes for discrete moon phase events
const (
	PhaseNewMoon = iota
	PhaseFirstQuarter
	PhaseFullMoon
	PhaseLastQuarter
)

// PhaseEvent is a discrete moon phase occurrence
type PhaseEvent struct {
	Phase int
	At    time.Time
}

// Season codes for discrete seasonal and orbital events
const (
	SeasonMarchEquinox = iota
	SeasonJuneSolstice
	SeasonSeptemberEquinox
	SeasonDecemberSolstice
	SeasonPerihelion
	SeasonAphelion
)

// SeasonEvent is a discrete seasonal or orbital event
type SeasonEvent struct {
	Event int
	At    time.Time
}

// BodyEventKind classifies a rise/set/transit event
type BodyEventKind int

const (
	EventRise BodyEventKind = iota
	EventSet
	EventTransit
)

// BodyEvent is a discrete rise/set/transit occurrence for a body
type BodyEvent struct {
	Kind BodyEventKind
	At   time.Time
}

// BodyState holds the raw observational quantities for a body at one
// instant from one location
type BodyState struct {
	AltitudeDeg     float64
	AzimuthDeg      float64
	DistanceAU      float64
	Magnitude       float64
	IlluminationPct float64
	ElongationDeg   float64
	RAHours         float64
	DecDeg          float64
	Constellation   string
}

// Illumination describes the moon's illuminated fraction
type Illumination struct {
	Fraction float64
	Waxing   bool
}

// Engine computes raw astronomical quantities from loaded ephemeris data.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Body names are the canonical planet names plus "Sun" and "Moon".
type Engine interface {
	// MoonPhases returns the next count discrete phase events at or after from.
	MoonPhases(ctx context.Context, from time.Time, count int) ([]PhaseEvent, error)

	// Seasons returns the seasonal and orbital events of a calendar year.
	Seasons(ctx context.Context, year int) ([]SeasonEvent, error)

	// BodyState returns the observational state of a body at one instant.
	BodyState(ctx context.Context, body string, at time.Time, loc Location) (BodyState, error)

	// BodyEvents returns the rise/set/transit events of a body over the
	// UTC day containing date.
	BodyEvents(ctx context.Context, body string, date time.Time, loc Location) ([]BodyEvent, error)

	// MoonIllumination returns the moon's illuminated fraction at an instant.
	MoonIllumination(ctx context.Context, at time.Time) (Illumination, error)

	// Version describes the loaded ephemeris (e.g. "DE440s").
	Version() string

	// Close releases resources held by the engine.
	Close() error
}

// OpenFunc opens an engine backed by the ephemeris file at path. The path
// always points to a complete, verified local copy; prerequisite fetching
// happens before an engine is opened.
type OpenFunc func(path string) (Engine, error)

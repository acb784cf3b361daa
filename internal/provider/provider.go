// Package provider defines the capability contract every computation
// backend satisfies, and the factory that resolves, constructs, and
// reuses backend instances.
package provider

import (
	"context"

	"github.com/celestio/celestio/internal/cache"
	"github.com/celestio/celestio/internal/config"
	"github.com/celestio/celestio/internal/engine"
	"github.com/celestio/celestio/internal/metrics"
	"github.com/celestio/celestio/internal/model"
	"go.uber.org/zap"
)

// Provider is the uniform contract every backend implements: one method
// per operation kind plus a declared-support query so unsupported
// operations fail fast before any call is made.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - An operation Supports reports false for must fail with NotSupported.
type Provider interface {
	// Identity returns the backend identity serving this instance.
	Identity() model.BackendIdentity

	// Supports reports whether this backend implements an operation kind.
	Supports(op model.OperationKind) bool

	MoonPhases(ctx context.Context, q model.MoonPhasesQuery) (*model.MoonPhasesResponse, error)
	SunMoon(ctx context.Context, q model.OneDayQuery) (*model.OneDayResponse, error)
	EclipseByDate(ctx context.Context, q model.EclipseDateQuery) (*model.SolarEclipseByDateResponse, error)
	EclipsesByYear(ctx context.Context, q model.EclipseYearQuery) (*model.SolarEclipseByYearResponse, error)
	Seasons(ctx context.Context, q model.SeasonsQuery) (*model.SeasonsResponse, error)
	PlanetPosition(ctx context.Context, q model.PlanetPositionQuery) (*model.PlanetPositionResponse, error)
	PlanetEvents(ctx context.Context, q model.PlanetEventsQuery) (*model.PlanetEventsResponse, error)
	SkySummary(ctx context.Context, q model.SkyQuery) (*model.SkyResponse, error)

	// Close releases connections or loaded data held by this instance.
	Close() error
}

// Deps carries the shared collaborators backends are built from
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Prereq is the prerequisite data cache, shared read-many by all
	// local-engine instances.
	Prereq *cache.Prerequisite

	// EngineOpen opens the injected numerical engine from a local
	// ephemeris path. Required only for the local-engine backend.
	EngineOpen engine.OpenFunc
}

// Builder constructs a backend instance for one identity
type Builder func(ctx context.Context, deps Deps) (Provider, error)

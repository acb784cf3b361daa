// Package server exposes the celestial operations as MCP tools over the
// Model Context Protocol. Each tool validates its arguments, resolves a
// backend through the provider factory, and serves results through the
// result cache.
package server

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/celestio/celestio/internal/cache"
	"github.com/celestio/celestio/internal/config"
	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/metrics"
	"github.com/celestio/celestio/internal/model"
	"github.com/celestio/celestio/internal/provider"
)

// DefaultNumPhases is the phase count used when a moon phases request
// omits num_phases.
const DefaultNumPhases = 10

// Server wires the MCP tool surface to the provider factory and caches
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	factory *provider.Factory
	results *cache.Result
	mcp     *mcp.Server
}

// New builds the server and registers all celestial tools
func New(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, factory *provider.Factory, results *cache.Result, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		metrics: m,
		factory: factory,
		results: results,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "celestio",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio",
		zap.String("default_backend", string(s.cfg.DefaultBackend)))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCP exposes the underlying MCP server, used by alternate transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

type moonPhasesInput struct {
	Date      string `json:"date" jsonschema:"Start date in YYYY-MM-DD format"`
	NumPhases int    `json:"num_phases,omitempty" jsonschema:"Number of phases to return (1-99, default 10)"`
}

type oneDayInput struct {
	Date  string   `json:"date" jsonschema:"Date in YYYY-MM-DD format"`
	Lat   float64  `json:"lat" jsonschema:"Observer latitude in decimal degrees"`
	Lon   float64  `json:"lon" jsonschema:"Observer longitude in decimal degrees"`
	TZ    *float64 `json:"tz,omitempty" jsonschema:"Time zone offset from UTC in hours"`
	DST   *bool    `json:"dst,omitempty" jsonschema:"Whether daylight saving time is in effect"`
	Label string   `json:"label,omitempty" jsonschema:"Location label for the response (max 20 chars)"`
}

type eclipseDateInput struct {
	Date   string  `json:"date" jsonschema:"Date in YYYY-MM-DD format"`
	Lat    float64 `json:"lat" jsonschema:"Observer latitude in decimal degrees"`
	Lon    float64 `json:"lon" jsonschema:"Observer longitude in decimal degrees"`
	Height int     `json:"height,omitempty" jsonschema:"Observer height in meters above sea level"`
}

type eclipseYearInput struct {
	Year int `json:"year" jsonschema:"Year to list solar eclipses for (1800-2050)"`
}

type seasonsInput struct {
	Year int      `json:"year" jsonschema:"Year to compute seasons for (1700-2100)"`
	TZ   *float64 `json:"tz,omitempty" jsonschema:"Time zone offset from UTC in hours"`
	DST  *bool    `json:"dst,omitempty" jsonschema:"Whether daylight saving time is in effect"`
}

type planetPositionInput struct {
	Planet string  `json:"planet" jsonschema:"Planet name (Mercury through Pluto)"`
	Date   string  `json:"date" jsonschema:"Date in YYYY-MM-DD format"`
	Time   string  `json:"time" jsonschema:"UTC time in HH:MM format"`
	Lat    float64 `json:"lat" jsonschema:"Observer latitude in decimal degrees"`
	Lon    float64 `json:"lon" jsonschema:"Observer longitude in decimal degrees"`
}

type planetEventsInput struct {
	Planet string  `json:"planet" jsonschema:"Planet name (Mercury through Pluto)"`
	Date   string  `json:"date" jsonschema:"Date in YYYY-MM-DD format"`
	Lat    float64 `json:"lat" jsonschema:"Observer latitude in decimal degrees"`
	Lon    float64 `json:"lon" jsonschema:"Observer longitude in decimal degrees"`
}

type skyInput struct {
	Date string  `json:"date" jsonschema:"Date in YYYY-MM-DD format"`
	Time string  `json:"time" jsonschema:"UTC time in HH:MM format"`
	Lat  float64 `json:"lat" jsonschema:"Observer latitude in decimal degrees"`
	Lon  float64 `json:"lon" jsonschema:"Observer longitude in decimal degrees"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_moon_phases",
		Description: "Get upcoming moon phases starting from a date",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in moonPhasesInput) (*mcp.CallToolResult, *model.MoonPhasesResponse, error) {
		if in.NumPhases == 0 {
			in.NumPhases = DefaultNumPhases
		}
		q := model.MoonPhasesQuery{Date: in.Date, NumPhases: in.NumPhases}
		out, _, err := execute(ctx, s, model.OpMoonPhases, q, func(ctx context.Context, p provider.Provider) (*model.MoonPhasesResponse, error) {
			return p.MoonPhases(ctx, q)
		})
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_sun_moon_data",
		Description: "Get sun and moon rise/set/transit times and moon phase for one day at a location",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in oneDayInput) (*mcp.CallToolResult, *model.OneDayResponse, error) {
		q := model.OneDayQuery{Date: in.Date, Lat: in.Lat, Lon: in.Lon, TZ: in.TZ, DST: in.DST, Label: in.Label}
		out, _, err := execute(ctx, s, model.OpSunMoon, q, func(ctx context.Context, p provider.Provider) (*model.OneDayResponse, error) {
			return p.SunMoon(ctx, q)
		})
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_solar_eclipse_by_date",
		Description: "Get local circumstances of a solar eclipse for a date and location",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in eclipseDateInput) (*mcp.CallToolResult, *model.SolarEclipseByDateResponse, error) {
		q := model.EclipseDateQuery{Date: in.Date, Lat: in.Lat, Lon: in.Lon, Height: in.Height}
		out, _, err := execute(ctx, s, model.OpEclipseDate, q, func(ctx context.Context, p provider.Provider) (*model.SolarEclipseByDateResponse, error) {
			return p.EclipseByDate(ctx, q)
		})
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_solar_eclipses_by_year",
		Description: "List all solar eclipses occurring in a year",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in eclipseYearInput) (*mcp.CallToolResult, *model.SolarEclipseByYearResponse, error) {
		q := model.EclipseYearQuery{Year: in.Year}
		out, _, err := execute(ctx, s, model.OpEclipseYear, q, func(ctx context.Context, p provider.Provider) (*model.SolarEclipseByYearResponse, error) {
			return p.EclipsesByYear(ctx, q)
		})
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_seasons",
		Description: "Get equinoxes, solstices, perihelion and aphelion for a year",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in seasonsInput) (*mcp.CallToolResult, *model.SeasonsResponse, error) {
		q := model.SeasonsQuery{Year: in.Year, TZ: in.TZ, DST: in.DST}
		out, _, err := execute(ctx, s, model.OpSeasons, q, func(ctx context.Context, p provider.Provider) (*model.SeasonsResponse, error) {
			return p.Seasons(ctx, q)
		})
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_planet_position",
		Description: "Get a planet's position and observational data for a time and location",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in planetPositionInput) (*mcp.CallToolResult, *model.PlanetPositionResponse, error) {
		planet, err := model.ParsePlanet(in.Planet)
		if err != nil {
			return nil, nil, celerrors.InvalidArgument(err.Error(), nil)
		}
		q := model.PlanetPositionQuery{Planet: planet, Date: in.Date, Time: in.Time, Lat: in.Lat, Lon: in.Lon}
		out, artifactID, err := execute(ctx, s, model.OpPlanetPosition, q, func(ctx context.Context, p provider.Provider) (*model.PlanetPositionResponse, error) {
			return p.PlanetPosition(ctx, q)
		})
		if out != nil {
			out.ArtifactRef = artifactID
		}
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_planet_events",
		Description: "Get a planet's rise, set and transit times for a date and location",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in planetEventsInput) (*mcp.CallToolResult, *model.PlanetEventsResponse, error) {
		planet, err := model.ParsePlanet(in.Planet)
		if err != nil {
			return nil, nil, celerrors.InvalidArgument(err.Error(), nil)
		}
		q := model.PlanetEventsQuery{Planet: planet, Date: in.Date, Lat: in.Lat, Lon: in.Lon}
		out, artifactID, err := execute(ctx, s, model.OpPlanetEvents, q, func(ctx context.Context, p provider.Provider) (*model.PlanetEventsResponse, error) {
			return p.PlanetEvents(ctx, q)
		})
		if out != nil {
			out.ArtifactRef = artifactID
		}
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_sky_summary",
		Description: "Get an overview of the visible sky: planets, moon phase and darkness",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in skyInput) (*mcp.CallToolResult, *model.SkyResponse, error) {
		q := model.SkyQuery{Date: in.Date, Time: in.Time, Lat: in.Lat, Lon: in.Lon}
		out, artifactID, err := execute(ctx, s, model.OpSkySummary, q, func(ctx context.Context, p provider.Provider) (*model.SkyResponse, error) {
			return p.SkySummary(ctx, q)
		})
		if out != nil {
			out.ArtifactRef = artifactID
		}
		return nil, out, err
	})
}

type validator interface {
	Validate() error
}

// execute runs one operation through the standard pipeline: validate the
// query, resolve a provider, check support, then serve through the result
// cache. The returned artifact ID is empty when durable storage is off or
// the result came from the in-process cache.
func execute[R any](ctx context.Context, s *Server, op model.OperationKind, q validator, call func(context.Context, provider.Provider) (R, error)) (R, string, error) {
	var zero R
	start := time.Now()

	if err := q.Validate(); err != nil {
		s.fail(op, celerrors.ErrCodeInvalidArgument)
		return zero, "", celerrors.InvalidArgument(err.Error(), nil)
	}

	p, err := s.factory.Get(ctx, op)
	if err != nil {
		s.fail(op, celerrors.GetCode(err))
		return zero, "", err
	}
	if !p.Supports(op) {
		s.fail(op, celerrors.ErrCodeNotSupported)
		return zero, "", celerrors.NotSupported(string(p.Identity()), string(op))
	}

	fp, err := cache.NewFingerprint(op, q)
	if err != nil {
		s.fail(op, celerrors.ErrCodeInternal)
		return zero, "", celerrors.InternalError("failed to fingerprint request", err)
	}

	out, artifactID, err := cache.GetOrCompute(ctx, s.results, fp, func(ctx context.Context) (R, error) {
		return call(ctx, p)
	})
	if err != nil {
		s.fail(op, celerrors.GetCode(err))
		return zero, "", err
	}

	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(string(op), string(p.Identity())).Inc()
		s.metrics.RequestsDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	}
	return out, artifactID, nil
}

func (s *Server) fail(op model.OperationKind, code celerrors.ErrorCode) {
	if s.metrics != nil {
		s.metrics.RequestErrors.WithLabelValues(string(op), code.String()).Inc()
	}
}

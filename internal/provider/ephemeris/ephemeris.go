// Package ephemeris implements the local computation backend. It drives an
// injected numerical engine over a locally cached ephemeris file and
// translates the engine's raw quantities into the typed response contracts.
package ephemeris

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/celestio/celestio/internal/engine"
	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
	"github.com/celestio/celestio/internal/provider"
)

const (
	kmPerAU = 149597870.7

	// A planet above the horizon but within this angular distance of the
	// sun is washed out and reported as lost in sunlight.
	lostElongationDeg = 10.0

	// Civil twilight boundary: the sky counts as dark once the sun is
	// more than this far below the horizon.
	darkSunAltitudeDeg = -6.0
)

// Backend computes responses locally from ephemeris data. It serves the
// operations the Navy API cannot (planet positions, events, sky summaries)
// plus the phase and season calculations both backends share.
type Backend struct {
	eng    engine.Engine
	logger *zap.Logger
}

// New ensures the configured ephemeris file is present locally, opens the
// injected engine over it, and returns the backend.
func New(ctx context.Context, deps provider.Deps) (provider.Provider, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ephemeris")

	if deps.EngineOpen == nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris),
			fmt.Errorf("no ephemeris engine is wired into this build"))
	}
	if deps.Prereq == nil {
		return nil, celerrors.ConfigError("ephemeris backend requires a prerequisite cache", nil)
	}

	path, err := deps.Prereq.EnsureLocal(ctx, deps.Config.Ephemeris.File)
	if err != nil {
		return nil, err
	}

	eng, err := deps.EngineOpen(path)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris),
			fmt.Errorf("failed to open ephemeris %s: %w", path, err))
	}

	logger.Info("ephemeris engine opened",
		zap.String("file", deps.Config.Ephemeris.File),
		zap.String("path", path),
		zap.String("version", eng.Version()))
	return &Backend{eng: eng, logger: logger}, nil
}

func (b *Backend) Identity() model.BackendIdentity { return model.BackendEphemeris }

func (b *Backend) Supports(op model.OperationKind) bool {
	return model.BackendSupports(model.BackendEphemeris, op)
}

func (b *Backend) Close() error { return b.eng.Close() }

func (b *Backend) apiVersion() string { return b.eng.Version() }

var phaseNames = map[int]model.MoonPhase{
	engine.PhaseNewMoon:      model.NewMoon,
	engine.PhaseFirstQuarter: model.FirstQuarter,
	engine.PhaseFullMoon:     model.FullMoon,
	engine.PhaseLastQuarter:  model.LastQuarter,
}

func (b *Backend) MoonPhases(ctx context.Context, q model.MoonPhasesQuery) (*model.MoonPhasesResponse, error) {
	from, err := model.ParseDate(q.Date)
	if err != nil {
		return nil, celerrors.InvalidArgument(err.Error(), nil)
	}

	events, err := b.eng.MoonPhases(ctx, from, q.NumPhases)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	data := make([]model.MoonPhaseData, 0, len(events))
	for _, ev := range events {
		at := ev.At.UTC()
		data = append(data, model.MoonPhaseData{
			Phase: phaseNames[ev.Phase],
			Year:  at.Year(),
			Month: int(at.Month()),
			Day:   at.Day(),
			Time:  at.Format("15:04"),
		})
	}

	return &model.MoonPhasesResponse{
		APIVersion: b.apiVersion(),
		Year:       from.Year(),
		Month:      int(from.Month()),
		Day:        from.Day(),
		NumPhases:  len(data),
		PhaseData:  data,
	}, nil
}

var seasonPhenomena = map[int]model.SeasonPhenomenon{
	engine.SeasonMarchEquinox:     model.Equinox,
	engine.SeasonJuneSolstice:     model.Solstice,
	engine.SeasonSeptemberEquinox: model.Equinox,
	engine.SeasonDecemberSolstice: model.Solstice,
	engine.SeasonPerihelion:       model.Perihelion,
	engine.SeasonAphelion:         model.Aphelion,
}

func (b *Backend) Seasons(ctx context.Context, q model.SeasonsQuery) (*model.SeasonsResponse, error) {
	events, err := b.eng.Seasons(ctx, q.Year)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	tz := 0.0
	if q.TZ != nil {
		tz = *q.TZ
	}
	dst := q.DST != nil && *q.DST
	offset := time.Duration(tz * float64(time.Hour))
	if dst {
		offset += time.Hour
	}

	data := make([]model.SeasonEvent, 0, len(events))
	for _, ev := range events {
		at := ev.At.UTC().Add(offset)
		data = append(data, model.SeasonEvent{
			Year:   at.Year(),
			Month:  int(at.Month()),
			Day:    at.Day(),
			Time:   at.Format("15:04"),
			Phenom: seasonPhenomena[ev.Event],
		})
	}

	return &model.SeasonsResponse{
		APIVersion: b.apiVersion(),
		Year:       q.Year,
		TZ:         tz,
		DST:        dst,
		Data:       data,
	}, nil
}

func (b *Backend) PlanetPosition(ctx context.Context, q model.PlanetPositionQuery) (*model.PlanetPositionResponse, error) {
	at, err := queryInstant(q.Date, q.Time)
	if err != nil {
		return nil, err
	}
	loc := engine.Location{LatDeg: q.Lat, LonDeg: q.Lon}

	st, err := b.eng.BodyState(ctx, string(q.Planet), at, loc)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	data := model.PlanetPositionData{
		Planet:         q.Planet,
		Date:           q.Date,
		Time:           q.Time,
		Altitude:       round2(st.AltitudeDeg),
		Azimuth:        round2(st.AzimuthDeg),
		DistanceAU:     round4(st.DistanceAU),
		DistanceKM:     math.Round(st.DistanceAU * kmPerAU),
		Illumination:   round1(st.IlluminationPct),
		Magnitude:      round2(st.Magnitude),
		Constellation:  st.Constellation,
		RightAscension: formatRA(st.RAHours),
		Declination:    formatDec(st.DecDeg),
		Elongation:     round1(st.ElongationDeg),
		Visibility:     classifyVisibility(st),
	}

	return &model.PlanetPositionResponse{
		APIVersion: b.apiVersion(),
		Type:       "Feature",
		Geometry:   model.NewPoint(q.Lat, q.Lon),
		Properties: model.PlanetPositionProperties{Data: data},
	}, nil
}

var eventPhenomena = map[engine.BodyEventKind]string{
	engine.EventRise:    string(model.PhenRise),
	engine.EventSet:     string(model.PhenSet),
	engine.EventTransit: string(model.PhenUpperTransit),
}

func (b *Backend) PlanetEvents(ctx context.Context, q model.PlanetEventsQuery) (*model.PlanetEventsResponse, error) {
	date, err := model.ParseDate(q.Date)
	if err != nil {
		return nil, celerrors.InvalidArgument(err.Error(), nil)
	}
	loc := engine.Location{LatDeg: q.Lat, LonDeg: q.Lon}

	events, err := b.eng.BodyEvents(ctx, string(q.Planet), date, loc)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	// Constellation and magnitude come from the planet's state at local noon.
	noon := date.Add(12 * time.Hour)
	st, err := b.eng.BodyState(ctx, string(q.Planet), noon, loc)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	evData := make([]model.PlanetEventData, 0, len(events))
	for _, ev := range events {
		evData = append(evData, model.PlanetEventData{
			Phen: eventPhenomena[ev.Kind],
			Time: ev.At.UTC().Format("15:04"),
		})
	}

	data := model.PlanetEventsData{
		Planet:        q.Planet,
		Date:          q.Date,
		Events:        evData,
		Constellation: st.Constellation,
		Magnitude:     round2(st.Magnitude),
	}

	return &model.PlanetEventsResponse{
		APIVersion: b.apiVersion(),
		Type:       "Feature",
		Geometry:   model.NewPoint(q.Lat, q.Lon),
		Properties: model.PlanetEventsProperties{Data: data},
	}, nil
}

func (b *Backend) SkySummary(ctx context.Context, q model.SkyQuery) (*model.SkyResponse, error) {
	at, err := queryInstant(q.Date, q.Time)
	if err != nil {
		return nil, err
	}
	loc := engine.Location{LatDeg: q.Lat, LonDeg: q.Lon}

	sun, err := b.eng.BodyState(ctx, "Sun", at, loc)
	if err != nil {
		return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}
	isDark := sun.AltitudeDeg < darkSunAltitudeDeg

	all := make([]model.SkyPlanetSummary, 0, len(model.Planets))
	for _, p := range model.Planets {
		st, err := b.eng.BodyState(ctx, string(p), at, loc)
		if err != nil {
			return nil, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
		}
		all = append(all, model.SkyPlanetSummary{
			Planet:        p,
			Altitude:      round2(st.AltitudeDeg),
			Azimuth:       round2(st.AzimuthDeg),
			Magnitude:     round2(st.Magnitude),
			Constellation: st.Constellation,
			Elongation:    round1(st.ElongationDeg),
			Visibility:    classifyVisibility(st),
			Direction:     compassDirection(st.AzimuthDeg),
		})
	}

	visible := make([]model.SkyPlanetSummary, 0, len(all))
	for _, s := range all {
		if s.Visibility == model.Visible {
			visible = append(visible, s)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Magnitude < visible[j].Magnitude
	})

	moon, err := b.moonSummary(ctx, at)
	if err != nil {
		return nil, err
	}

	data := model.SkyData{
		Date:           q.Date,
		Time:           q.Time,
		IsDark:         isDark,
		VisiblePlanets: visible,
		AllPlanets:     all,
		Moon:           moon,
		Summary:        skySummaryLine(isDark, visible, moon),
	}

	return &model.SkyResponse{
		APIVersion: b.apiVersion(),
		Type:       "Feature",
		Geometry:   model.NewPoint(q.Lat, q.Lon),
		Properties: model.SkyProperties{Data: data},
	}, nil
}

func (b *Backend) moonSummary(ctx context.Context, at time.Time) (model.SkyMoonSummary, error) {
	illum, err := b.eng.MoonIllumination(ctx, at)
	if err != nil {
		return model.SkyMoonSummary{}, celerrors.BackendUnavailable(string(model.BackendEphemeris), err)
	}

	s := model.SkyMoonSummary{
		Phase:        string(currentPhase(illum)),
		Illumination: fmt.Sprintf("%.0f%%", illum.Fraction*100),
	}

	next, err := b.eng.MoonPhases(ctx, at, 1)
	if err == nil && len(next) > 0 {
		s.NextPhase = string(phaseNames[next[0].Phase])
		s.NextPhaseDate = next[0].At.UTC().Format("2006-01-02")
	}
	return s, nil
}

// SunMoon requires the almanac's rise/set tables; not computed locally.
func (b *Backend) SunMoon(ctx context.Context, q model.OneDayQuery) (*model.OneDayResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendEphemeris), string(model.OpSunMoon))
}

func (b *Backend) EclipseByDate(ctx context.Context, q model.EclipseDateQuery) (*model.SolarEclipseByDateResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendEphemeris), string(model.OpEclipseDate))
}

func (b *Backend) EclipsesByYear(ctx context.Context, q model.EclipseYearQuery) (*model.SolarEclipseByYearResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendEphemeris), string(model.OpEclipseYear))
}

// queryInstant combines a validated date and clock value into a UTC instant.
func queryInstant(date, clock string) (time.Time, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, celerrors.InvalidArgument(err.Error(), nil)
	}
	h, m, err := model.ParseClock(clock)
	if err != nil {
		return time.Time{}, celerrors.InvalidArgument(err.Error(), nil)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC), nil
}

func classifyVisibility(st engine.BodyState) model.VisibilityStatus {
	if st.AltitudeDeg <= 0 {
		return model.BelowHorizon
	}
	if st.ElongationDeg < lostElongationDeg {
		return model.LostInSunlight
	}
	return model.Visible
}

// currentPhase names the moon's phase from its illuminated fraction and
// whether illumination is growing.
func currentPhase(il engine.Illumination) model.MoonCurPhase {
	f := il.Fraction
	switch {
	case f < 0.03:
		return model.CurNewMoon
	case f > 0.97:
		return model.CurFullMoon
	case f >= 0.47 && f <= 0.53:
		if il.Waxing {
			return model.CurFirstQuarter
		}
		return model.CurLastQuarter
	case f < 0.5:
		if il.Waxing {
			return model.CurWaxingCrescent
		}
		return model.CurWaningCrescent
	default:
		if il.Waxing {
			return model.CurWaxingGibbous
		}
		return model.CurWaningGibbous
	}
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

func compassDirection(azimuthDeg float64) string {
	az := math.Mod(azimuthDeg, 360)
	if az < 0 {
		az += 360
	}
	idx := int(math.Round(az/22.5)) % len(compassPoints)
	return compassPoints[idx]
}

func skySummaryLine(isDark bool, visible []model.SkyPlanetSummary, moon model.SkyMoonSummary) string {
	var sb strings.Builder
	if isDark {
		sb.WriteString("The sky is dark. ")
	} else {
		sb.WriteString("The sun is up. ")
	}
	switch len(visible) {
	case 0:
		sb.WriteString("No planets are visible.")
	case 1:
		fmt.Fprintf(&sb, "%s is visible to the %s.", visible[0].Planet, visible[0].Direction)
	default:
		names := make([]string, len(visible))
		for i, v := range visible {
			names[i] = string(v.Planet)
		}
		fmt.Fprintf(&sb, "%d planets are visible: %s.", len(visible), strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, " The moon is a %s at %s illumination.", strings.ToLower(moon.Phase), moon.Illumination)
	return sb.String()
}

// formatRA renders right ascension in hours as "HHh MMm SS.Ss".
func formatRA(hours float64) string {
	h := math.Mod(hours, 24)
	if h < 0 {
		h += 24
	}
	hh := int(h)
	rem := (h - float64(hh)) * 60
	mm := int(rem)
	ss := (rem - float64(mm)) * 60
	return fmt.Sprintf("%02dh %02dm %04.1fs", hh, mm, ss)
}

// formatDec renders declination in degrees as `+DD° MM' SS"`.
func formatDec(deg float64) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	dd := int(deg)
	rem := (deg - float64(dd)) * 60
	mm := int(rem)
	ss := (rem - float64(mm)) * 60
	return fmt.Sprintf("%s%02d° %02d' %02.0f\"", sign, dd, mm, ss)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

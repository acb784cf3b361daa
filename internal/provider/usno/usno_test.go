package usno

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/celestio/celestio/internal/config"
	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
	"github.com/celestio/celestio/internal/provider"
)

func newBackendTest(t *testing.T, handler http.Handler) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg, err := config.Resolve(func(key string) string {
		switch key {
		case "USNO_BASE_URL":
			return srv.URL
		case "USNO_RETRY_DELAY":
			return "1ms"
		default:
			return ""
		}
	})
	require.NoError(t, err)

	p, err := New(context.Background(), provider.Deps{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	return p.(*Backend)
}

func TestIdentityAndSupports(t *testing.T) {
	b := newBackendTest(t, http.NotFoundHandler())

	assert.Equal(t, model.BackendUSNO, b.Identity())
	assert.True(t, b.Supports(model.OpMoonPhases))
	assert.True(t, b.Supports(model.OpSunMoon))
	assert.True(t, b.Supports(model.OpEclipseDate))
	assert.True(t, b.Supports(model.OpEclipseYear))
	assert.True(t, b.Supports(model.OpSeasons))
	assert.False(t, b.Supports(model.OpPlanetPosition))
	assert.False(t, b.Supports(model.OpPlanetEvents))
	assert.False(t, b.Supports(model.OpSkySummary))
}

func TestMoonPhasesRequest(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(model.MoonPhasesResponse{
			APIVersion: "4.0.1",
			Year:       2025, Month: 1, Day: 1,
			NumPhases: 1,
			PhaseData: []model.MoonPhaseData{
				{Phase: model.FullMoon, Year: 2025, Month: 1, Day: 13, Time: "22:27"},
			},
		})
	})
	b := newBackendTest(t, handler)

	resp, err := b.MoonPhases(context.Background(), model.MoonPhasesQuery{Date: "2025-01-01", NumPhases: 1})
	require.NoError(t, err)

	assert.Equal(t, "/moon/phases/date", gotPath)
	assert.Equal(t, "2025-01-01", gotQuery["date"])
	assert.Equal(t, "1", gotQuery["nump"])
	require.Len(t, resp.PhaseData, 1)
	assert.Equal(t, model.FullMoon, resp.PhaseData[0].Phase)
}

func TestSunMoonRequest(t *testing.T) {
	var gotQuery map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rstt/oneday", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(model.OneDayResponse{
			APIVersion: "4.0.1",
			Type:       "Feature",
			Geometry:   model.NewPoint(41.89, 12.48),
		})
	})
	b := newBackendTest(t, handler)

	tz := 1.0
	dst := true
	resp, err := b.SunMoon(context.Background(), model.OneDayQuery{
		Date: "2025-06-21", Lat: 41.89, Lon: 12.48, TZ: &tz, DST: &dst, Label: "Rome",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-06-21", gotQuery["date"])
	assert.Equal(t, "41.89,12.48", gotQuery["coords"])
	assert.Equal(t, "1", gotQuery["tz"])
	assert.Equal(t, "true", gotQuery["dst"])
	assert.Equal(t, "Rome", gotQuery["label"])
	assert.Equal(t, "Feature", resp.Type)
}

func TestEclipseRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/eclipses/solar/date":
			assert.Equal(t, "2024-04-08", r.URL.Query().Get("date"))
			assert.Equal(t, "150", r.URL.Query().Get("height"))
			json.NewEncoder(w).Encode(model.SolarEclipseByDateResponse{APIVersion: "4.0.1", Type: "Feature"})
		case "/eclipses/solar/year":
			assert.Equal(t, "2024", r.URL.Query().Get("year"))
			json.NewEncoder(w).Encode(model.SolarEclipseByYearResponse{
				APIVersion: "4.0.1",
				Year:       2024,
				EclipsesInYear: []model.SolarEclipseEvent{
					{Year: 2024, Month: 4, Day: 8, Event: "Total Solar Eclipse of 8 April 2024"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	b := newBackendTest(t, handler)

	_, err := b.EclipseByDate(context.Background(), model.EclipseDateQuery{
		Date: "2024-04-08", Lat: 30.0, Lon: -97.7, Height: 150,
	})
	require.NoError(t, err)

	byYear, err := b.EclipsesByYear(context.Background(), model.EclipseYearQuery{Year: 2024})
	require.NoError(t, err)
	require.Len(t, byYear.EclipsesInYear, 1)
	assert.Equal(t, 4, byYear.EclipsesInYear[0].Month)
}

func TestSeasonsRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seasons", r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		json.NewEncoder(w).Encode(model.SeasonsResponse{
			APIVersion: "4.0.1",
			Year:       2025,
			Data: []model.SeasonEvent{
				{Year: 2025, Month: 3, Day: 20, Time: "09:01", Phenom: model.Equinox},
			},
		})
	})
	b := newBackendTest(t, handler)

	resp, err := b.Seasons(context.Background(), model.SeasonsQuery{Year: 2025})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, model.Equinox, resp.Data[0].Phenom)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(model.MoonPhasesResponse{APIVersion: "4.0.1"})
	})
	b := newBackendTest(t, handler)

	_, err := b.MoonPhases(context.Background(), model.MoonPhasesQuery{Date: "2025-01-01", NumPhases: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})
	b := newBackendTest(t, handler)

	_, err := b.MoonPhases(context.Background(), model.MoonPhasesQuery{Date: "2025-01-01", NumPhases: 1})
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeBackendUnavailable))
	assert.Equal(t, 1, calls)
}

func TestRespectsContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	b := newBackendTest(t, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := b.MoonPhases(ctx, model.MoonPhasesQuery{Date: "2025-01-01", NumPhases: 1})
	assert.Error(t, err)
}

func TestPlanetOperationsNotSupported(t *testing.T) {
	b := newBackendTest(t, http.NotFoundHandler())
	ctx := context.Background()

	_, err := b.PlanetPosition(ctx, model.PlanetPositionQuery{})
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeNotSupported))

	_, err = b.PlanetEvents(ctx, model.PlanetEventsQuery{})
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeNotSupported))

	_, err = b.SkySummary(ctx, model.SkyQuery{})
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeNotSupported))
}

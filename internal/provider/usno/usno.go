// Package usno implements the remote authority backend: the US Navy
// Astronomical Applications API. Data source: https://aa.usno.navy.mil/data/api
package usno

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/celestio/celestio/internal/config"
	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
	"github.com/celestio/celestio/internal/provider"
)

// endpoints holds the API endpoint paths
type endpoints struct {
	moonPhases       string
	rsttOneDay       string
	solarEclipseDate string
	solarEclipseYear string
	seasons          string
}

func newEndpoints(baseURL string) endpoints {
	return endpoints{
		moonPhases:       baseURL + "/moon/phases/date",
		rsttOneDay:       baseURL + "/rstt/oneday",
		solarEclipseDate: baseURL + "/eclipses/solar/date",
		solarEclipseYear: baseURL + "/eclipses/solar/year",
		seasons:          baseURL + "/seasons",
	}
}

// Backend calls the official Navy API for astronomical calculations.
// It serves the classic almanac operations; the API has no planet
// position or event endpoints.
type Backend struct {
	cfg       config.USNOConfig
	endpoints endpoints
	client    *http.Client
	logger    *zap.Logger
}

// New creates a Navy API backend from resolved configuration
func New(ctx context.Context, deps provider.Deps) (provider.Provider, error) {
	cfg := deps.Config.USNO
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{
		cfg:       cfg,
		endpoints: newEndpoints(cfg.BaseURL),
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger.Named("usno"),
	}
	b.logger.Debug("navy api backend initialized", zap.String("base_url", cfg.BaseURL))
	return b, nil
}

func (b *Backend) Identity() model.BackendIdentity { return model.BackendUSNO }

func (b *Backend) Supports(op model.OperationKind) bool {
	return model.BackendSupports(model.BackendUSNO, op)
}

func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// get performs one API request with retry and decodes the JSON response
// into out. Server errors and network failures retry with exponential
// backoff; client errors do not.
func (b *Backend) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := b.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			b.logger.Warn("navy api call failed, retrying",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}

		retryable, err := b.doOnce(ctx, reqURL, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (b *Backend) doOnce(ctx context.Context, reqURL string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, celerrors.InternalError("failed to build request", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return true, celerrors.BackendUnavailable(string(model.BackendUSNO), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return true, celerrors.BackendUnavailable(string(model.BackendUSNO),
			fmt.Errorf("api returned %s", resp.Status))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, celerrors.BackendUnavailable(string(model.BackendUSNO),
			fmt.Errorf("api returned %s: %s", resp.Status, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, celerrors.BackendUnavailable(string(model.BackendUSNO),
			fmt.Errorf("failed to decode api response: %w", err))
	}
	return false, nil
}

func (b *Backend) MoonPhases(ctx context.Context, q model.MoonPhasesQuery) (*model.MoonPhasesResponse, error) {
	params := url.Values{}
	params.Set("date", q.Date)
	params.Set("nump", strconv.Itoa(q.NumPhases))

	var resp model.MoonPhasesResponse
	if err := b.get(ctx, b.endpoints.moonPhases, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) SunMoon(ctx context.Context, q model.OneDayQuery) (*model.OneDayResponse, error) {
	params := url.Values{}
	params.Set("date", q.Date)
	params.Set("coords", fmt.Sprintf("%v,%v", q.Lat, q.Lon))
	if q.TZ != nil {
		params.Set("tz", strconv.FormatFloat(*q.TZ, 'f', -1, 64))
	}
	if q.DST != nil {
		params.Set("dst", strconv.FormatBool(*q.DST))
	}
	if q.Label != "" {
		params.Set("label", q.Label)
	}

	var resp model.OneDayResponse
	if err := b.get(ctx, b.endpoints.rsttOneDay, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) EclipseByDate(ctx context.Context, q model.EclipseDateQuery) (*model.SolarEclipseByDateResponse, error) {
	params := url.Values{}
	params.Set("date", q.Date)
	params.Set("coords", fmt.Sprintf("%v,%v", q.Lat, q.Lon))
	params.Set("height", strconv.Itoa(q.Height))

	var resp model.SolarEclipseByDateResponse
	if err := b.get(ctx, b.endpoints.solarEclipseDate, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) EclipsesByYear(ctx context.Context, q model.EclipseYearQuery) (*model.SolarEclipseByYearResponse, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(q.Year))

	var resp model.SolarEclipseByYearResponse
	if err := b.get(ctx, b.endpoints.solarEclipseYear, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) Seasons(ctx context.Context, q model.SeasonsQuery) (*model.SeasonsResponse, error) {
	params := url.Values{}
	params.Set("year", strconv.Itoa(q.Year))
	if q.TZ != nil {
		params.Set("tz", strconv.FormatFloat(*q.TZ, 'f', -1, 64))
	}
	if q.DST != nil {
		params.Set("dst", strconv.FormatBool(*q.DST))
	}

	var resp model.SeasonsResponse
	if err := b.get(ctx, b.endpoints.seasons, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) PlanetPosition(ctx context.Context, q model.PlanetPositionQuery) (*model.PlanetPositionResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendUSNO), string(model.OpPlanetPosition))
}

func (b *Backend) PlanetEvents(ctx context.Context, q model.PlanetEventsQuery) (*model.PlanetEventsResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendUSNO), string(model.OpPlanetEvents))
}

func (b *Backend) SkySummary(ctx context.Context, q model.SkyQuery) (*model.SkyResponse, error) {
	return nil, celerrors.NotSupported(string(model.BackendUSNO), string(model.OpSkySummary))
}

package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestio/celestio/internal/config"
	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
)

// stubProvider is a minimal Provider for factory tests
type stubProvider struct {
	identity model.BackendIdentity
	closed   atomic.Bool
}

func (s *stubProvider) Identity() model.BackendIdentity      { return s.identity }
func (s *stubProvider) Supports(op model.OperationKind) bool { return true }
func (s *stubProvider) Close() error                         { s.closed.Store(true); return nil }

func (s *stubProvider) MoonPhases(ctx context.Context, q model.MoonPhasesQuery) (*model.MoonPhasesResponse, error) {
	return &model.MoonPhasesResponse{}, nil
}
func (s *stubProvider) SunMoon(ctx context.Context, q model.OneDayQuery) (*model.OneDayResponse, error) {
	return &model.OneDayResponse{}, nil
}
func (s *stubProvider) EclipseByDate(ctx context.Context, q model.EclipseDateQuery) (*model.SolarEclipseByDateResponse, error) {
	return &model.SolarEclipseByDateResponse{}, nil
}
func (s *stubProvider) EclipsesByYear(ctx context.Context, q model.EclipseYearQuery) (*model.SolarEclipseByYearResponse, error) {
	return &model.SolarEclipseByYearResponse{}, nil
}
func (s *stubProvider) Seasons(ctx context.Context, q model.SeasonsQuery) (*model.SeasonsResponse, error) {
	return &model.SeasonsResponse{}, nil
}
func (s *stubProvider) PlanetPosition(ctx context.Context, q model.PlanetPositionQuery) (*model.PlanetPositionResponse, error) {
	return &model.PlanetPositionResponse{}, nil
}
func (s *stubProvider) PlanetEvents(ctx context.Context, q model.PlanetEventsQuery) (*model.PlanetEventsResponse, error) {
	return &model.PlanetEventsResponse{}, nil
}
func (s *stubProvider) SkySummary(ctx context.Context, q model.SkyQuery) (*model.SkyResponse, error) {
	return &model.SkyResponse{}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Resolve(func(string) string { return "" })
	require.NoError(t, err)
	return cfg
}

func TestFactoryBuildsOnceAndReuses(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	var builds int32
	f.RegisterBuilder(model.BackendUSNO, func(ctx context.Context, deps Deps) (Provider, error) {
		atomic.AddInt32(&builds, 1)
		return &stubProvider{identity: model.BackendUSNO}, nil
	})

	a, err := f.Get(ctx, model.OpMoonPhases)
	require.NoError(t, err)
	b, err := f.Get(ctx, model.OpSeasons)
	require.NoError(t, err)

	assert.Same(t, a, b, "same identity and settings must reuse one instance")
	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestFactoryRoutesByOperation(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	f.RegisterBuilder(model.BackendUSNO, func(ctx context.Context, deps Deps) (Provider, error) {
		return &stubProvider{identity: model.BackendUSNO}, nil
	})
	f.RegisterBuilder(model.BackendEphemeris, func(ctx context.Context, deps Deps) (Provider, error) {
		return &stubProvider{identity: model.BackendEphemeris}, nil
	})

	p, err := f.Get(ctx, model.OpMoonPhases)
	require.NoError(t, err)
	assert.Equal(t, model.BackendUSNO, p.Identity())

	// Planet operations default to the local engine
	p, err = f.Get(ctx, model.OpPlanetPosition)
	require.NoError(t, err)
	assert.Equal(t, model.BackendEphemeris, p.Identity())
}

func TestFactoryUnregisteredIdentity(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	_, err := f.Get(ctx, model.OpMoonPhases)
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeBackendUnavailable))
}

func TestFactoryFailedBuildRetries(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	var builds int32
	f.RegisterBuilder(model.BackendUSNO, func(ctx context.Context, deps Deps) (Provider, error) {
		if atomic.AddInt32(&builds, 1) == 1 {
			return nil, errors.New("transient failure")
		}
		return &stubProvider{identity: model.BackendUSNO}, nil
	})

	_, err := f.Get(ctx, model.OpMoonPhases)
	require.Error(t, err)
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeBackendUnavailable))

	// The failed attempt is not cached; the next call retries and succeeds
	p, err := f.Get(ctx, model.OpMoonPhases)
	require.NoError(t, err)
	assert.Equal(t, model.BackendUSNO, p.Identity())
	assert.Equal(t, int32(2), atomic.LoadInt32(&builds))
}

func TestFactoryConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	var builds int32
	f.RegisterBuilder(model.BackendUSNO, func(ctx context.Context, deps Deps) (Provider, error) {
		atomic.AddInt32(&builds, 1)
		return &stubProvider{identity: model.BackendUSNO}, nil
	})

	var wg sync.WaitGroup
	providers := make([]Provider, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.Get(ctx, model.OpMoonPhases)
			assert.NoError(t, err)
			providers[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds), "concurrent first use must share a single build")
	for i := 1; i < 16; i++ {
		assert.Same(t, providers[0], providers[i])
	}
}

func TestFactoryClose(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(Deps{Config: testConfig(t)})

	stub := &stubProvider{identity: model.BackendUSNO}
	f.RegisterBuilder(model.BackendUSNO, func(ctx context.Context, deps Deps) (Provider, error) {
		return stub, nil
	})

	_, err := f.Get(ctx, model.OpMoonPhases)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.True(t, stub.closed.Load())
}

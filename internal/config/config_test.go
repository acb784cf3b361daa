package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
)

// envMap builds an Env that reads only from the given map, so tests are
// isolated from the real process environment.
func envMap(m map[string]string) Env {
	return func(key string) string { return m[key] }
}

// writeConfigFile writes yaml content to a temp file and returns its path
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "celestial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, model.BackendUSNO, cfg.DefaultBackend)
	assert.Equal(t, "https://aa.usno.navy.mil/api", cfg.USNO.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.USNO.Timeout)
	assert.Equal(t, 3, cfg.USNO.MaxRetries)
	assert.Equal(t, "de440s.bsp", cfg.Ephemeris.File)
	assert.Equal(t, "remote", cfg.Ephemeris.Storage)
	assert.Equal(t, "ephemeris/", cfg.Ephemeris.Remote.Prefix)
	assert.Equal(t, "none", cfg.Results.Storage)
	assert.Equal(t, 9184, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestResolveHardcodedOverrides(t *testing.T) {
	cfg, err := Resolve(envMap(nil))
	require.NoError(t, err)

	// Operations the remote authority cannot serve default to the local engine
	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpPlanetPosition))
	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpPlanetEvents))
	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpSkySummary))

	// Everything else follows the global default
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpMoonPhases))
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpSunMoon))
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpSeasons))
}

func TestResolveGlobalDefaultFromEnv(t *testing.T) {
	cfg, err := Resolve(envMap(map[string]string{
		"CELESTIAL_PROVIDER": "ephemeris",
	}))
	require.NoError(t, err)

	assert.Equal(t, model.BackendEphemeris, cfg.DefaultBackend)
	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpMoonPhases))
	// The global default applies even to operations the backend does not
	// support; the mismatch surfaces at call time, not at startup.
	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpSunMoon))
}

func TestResolvePerOperationEnvOverride(t *testing.T) {
	cfg, err := Resolve(envMap(map[string]string{
		"CELESTIAL_MOON_PHASES_PROVIDER": "ephemeris",
	}))
	require.NoError(t, err)

	assert.Equal(t, model.BackendEphemeris, cfg.BackendFor(model.OpMoonPhases))
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpSunMoon))
}

func TestResolveRejectsUnknownProvider(t *testing.T) {
	_, err := Resolve(envMap(map[string]string{
		"CELESTIAL_PROVIDER": "horizons",
	}))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))

	_, err = Resolve(envMap(map[string]string{
		"CELESTIAL_SEASONS_PROVIDER": "horizons",
	}))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))
}

func TestResolveRejectsUnsupportedExplicitOverride(t *testing.T) {
	// The Navy API has no planet position endpoint; an explicit override
	// naming it must fail at resolution time.
	_, err := Resolve(envMap(map[string]string{
		"CELESTIAL_PLANET_POSITION_PROVIDER": "usno",
	}))
	require.Error(t, err)
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))
}

func TestResolveFromFile(t *testing.T) {
	path := writeConfigFile(t, `
default_provider: ephemeris
providers:
  moon_phases: usno
usno:
  base_url: https://mirror.example.com/api
  max_retries: 5
ephemeris:
  file: de421.bsp
  storage: memory
results:
  storage: memory
logging:
  level: debug
`)
	cfg, err := Resolve(envMap(map[string]string{
		"CELESTIAL_CONFIG_PATH": path,
	}))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.SourceFile)
	assert.Equal(t, model.BackendEphemeris, cfg.DefaultBackend)
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpMoonPhases))
	assert.Equal(t, "https://mirror.example.com/api", cfg.USNO.BaseURL)
	assert.Equal(t, 5, cfg.USNO.MaxRetries)
	assert.Equal(t, "de421.bsp", cfg.Ephemeris.File)
	assert.Equal(t, "memory", cfg.Ephemeris.Storage)
	assert.Equal(t, "memory", cfg.Results.Storage)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestResolveEnvBeatsFile(t *testing.T) {
	path := writeConfigFile(t, `
default_provider: ephemeris
providers:
  seasons: ephemeris
usno:
  base_url: https://file.example.com/api
`)
	cfg, err := Resolve(envMap(map[string]string{
		"CELESTIAL_CONFIG_PATH":      path,
		"CELESTIAL_PROVIDER":         "usno",
		"CELESTIAL_SEASONS_PROVIDER": "usno",
		"USNO_BASE_URL":              "https://env.example.com/api",
	}))
	require.NoError(t, err)

	assert.Equal(t, model.BackendUSNO, cfg.DefaultBackend)
	assert.Equal(t, model.BackendUSNO, cfg.BackendFor(model.OpSeasons))
	assert.Equal(t, "https://env.example.com/api", cfg.USNO.BaseURL)
}

func TestResolveRejectsUnknownOperationInFile(t *testing.T) {
	path := writeConfigFile(t, `
providers:
  tides: usno
`)
	_, err := Resolve(envMap(map[string]string{
		"CELESTIAL_CONFIG_PATH": path,
	}))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))
}

func TestResolveRejectsMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "default_provider: [not, a, string")
	_, err := Resolve(envMap(map[string]string{
		"CELESTIAL_CONFIG_PATH": path,
	}))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))
}

func TestResolveFilesystemStorageRequiresDataDir(t *testing.T) {
	_, err := Resolve(envMap(map[string]string{
		"EPHEMERIS_STORAGE_BACKEND": "filesystem",
	}))
	assert.True(t, celerrors.IsCode(err, celerrors.ErrCodeConfig))

	cfg, err := Resolve(envMap(map[string]string{
		"EPHEMERIS_STORAGE_BACKEND": "filesystem",
		"EPHEMERIS_DATA_DIR":        t.TempDir(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "filesystem", cfg.Ephemeris.Storage)
}

func TestResolveEphemerisEnvSettings(t *testing.T) {
	cacheDir := t.TempDir()
	cfg, err := Resolve(envMap(map[string]string{
		"EPHEMERIS_FILE":            "de440.bsp",
		"EPHEMERIS_CACHE_DIR":       cacheDir,
		"EPHEMERIS_CHECKSUM":        "deadbeef",
		"EPHEMERIS_REMOTE_ENDPOINT": "https://objects.example.com",
		"EPHEMERIS_REMOTE_BUCKET":   "celestial-data",
		"USNO_TIMEOUT":              "10s",
		"USNO_RETRY_DELAY":          "250ms",
	}))
	require.NoError(t, err)

	assert.Equal(t, "de440.bsp", cfg.Ephemeris.File)
	assert.Equal(t, cacheDir, cfg.Ephemeris.CacheDir)
	assert.Equal(t, "deadbeef", cfg.Ephemeris.Checksum)
	assert.Equal(t, "https://objects.example.com", cfg.Ephemeris.Remote.Endpoint)
	assert.Equal(t, "celestial-data", cfg.Ephemeris.Remote.Bucket)
	assert.Equal(t, 10*time.Second, cfg.USNO.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.USNO.RetryDelay)
}

func TestResolveIsDeterministic(t *testing.T) {
	env := envMap(map[string]string{
		"CELESTIAL_PROVIDER":         "ephemeris",
		"CELESTIAL_SEASONS_PROVIDER": "usno",
	})

	a, err := Resolve(env)
	require.NoError(t, err)
	b, err := Resolve(env)
	require.NoError(t, err)

	assert.Equal(t, a.DefaultBackend, b.DefaultBackend)
	assert.Equal(t, a.Overrides, b.Overrides)
	for _, op := range model.OperationKinds {
		assert.Equal(t, a.BackendFor(op), b.BackendFor(op), "operation %s", op)
	}
}

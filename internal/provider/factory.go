package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/model"
)

// instanceKey identifies one distinct backend configuration
type instanceKey struct {
	identity    model.BackendIdentity
	fingerprint string
}

// inflight guards one construction attempt. The sync.Once gives per-key
// mutual exclusion: concurrent first-requests share a single build.
type inflight struct {
	once     sync.Once
	provider Provider
	err      error
}

// Factory owns the map of live backend instances. Instances are
// constructed lazily, at most once per (identity, settings fingerprint),
// and reused for the process lifetime. Construction of one backend never
// blocks requests being served by another.
type Factory struct {
	deps     Deps
	builders map[model.BackendIdentity]Builder

	mu        sync.Mutex
	instances map[instanceKey]*inflight
}

// NewFactory creates a provider factory from resolved configuration
func NewFactory(deps Deps) *Factory {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Factory{
		deps:      deps,
		builders:  make(map[model.BackendIdentity]Builder),
		instances: make(map[instanceKey]*inflight),
	}
}

// RegisterBuilder registers the constructor for a backend identity.
// Registration happens once during wiring, before any Get call.
func (f *Factory) RegisterBuilder(id model.BackendIdentity, b Builder) {
	if b == nil {
		return
	}
	f.builders[id] = b
}

// Get returns the live backend instance serving an operation kind,
// constructing it on first use. Construction failures are surfaced as
// BackendUnavailable wrapping the original cause and are not cached, so
// a later request may retry after a transient failure; a successful
// construction is permanent for the process lifetime.
func (f *Factory) Get(ctx context.Context, op model.OperationKind) (Provider, error) {
	identity := f.deps.Config.BackendFor(op)
	return f.GetByIdentity(ctx, identity)
}

// GetByIdentity returns the instance for a backend identity directly
func (f *Factory) GetByIdentity(ctx context.Context, identity model.BackendIdentity) (Provider, error) {
	builder, ok := f.builders[identity]
	if !ok {
		return nil, celerrors.BackendUnavailable(string(identity),
			fmt.Errorf("no builder registered"))
	}

	key := instanceKey{identity: identity, fingerprint: f.settingsFingerprint(identity)}

	f.mu.Lock()
	fl, ok := f.instances[key]
	if !ok {
		fl = &inflight{}
		f.instances[key] = fl
	}
	f.mu.Unlock()

	fl.once.Do(func() {
		start := time.Now()
		p, err := builder(ctx, f.deps)
		if err != nil {
			fl.err = celerrors.BackendUnavailable(string(identity), err)
			return
		}
		fl.provider = p
		if f.deps.Metrics != nil {
			f.deps.Metrics.ProviderBuildsTotal.WithLabelValues(string(identity)).Inc()
			f.deps.Metrics.ProviderBuildDuration.Observe(time.Since(start).Seconds())
		}
		f.deps.Logger.Info("constructed provider",
			zap.String("backend", string(identity)),
			zap.String("fingerprint", key.fingerprint[:12]),
			zap.Duration("took", time.Since(start)))
	})

	if fl.err != nil {
		// Drop the failed attempt so the next request can retry
		f.mu.Lock()
		if f.instances[key] == fl {
			delete(f.instances, key)
		}
		f.mu.Unlock()
		return nil, fl.err
	}
	return fl.provider, nil
}

// settingsFingerprint hashes the subset of configuration relevant to a
// backend. Two identities with identical relevant settings share one
// fingerprint; a settings change in a new process yields a new one.
func (f *Factory) settingsFingerprint(identity model.BackendIdentity) string {
	var relevant any
	switch identity {
	case model.BackendUSNO:
		relevant = f.deps.Config.USNO
	case model.BackendEphemeris:
		relevant = f.deps.Config.Ephemeris
	default:
		relevant = struct{}{}
	}
	// Config structs are plain data; encoding cannot fail
	data, _ := json.Marshal(relevant)
	sum := sha256.Sum256(append([]byte(identity), data...))
	return hex.EncodeToString(sum[:])
}

// Close shuts down every constructed instance
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for key, fl := range f.instances {
		if fl.provider == nil {
			continue
		}
		if err := fl.provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.instances, key)
	}
	return firstErr
}

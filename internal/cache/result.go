package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/metrics"
	"github.com/celestio/celestio/internal/store"
)

// resultEntry is one previously computed response
type resultEntry struct {
	payload    []byte
	artifactID string
	storedAt   time.Time
}

// envelope is the durable encoding of a result entry. The durable copy
// exists for audit and cross-process retrieval; it is not read back into
// the in-process map on startup.
type envelope struct {
	ArtifactID  string          `json:"artifact_id"`
	Operation   string          `json:"operation"`
	Fingerprint string          `json:"fingerprint"`
	StoredAt    time.Time       `json:"stored_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Result is a write-through cache of computed responses keyed by
// fingerprint. The in-process map is a pure reuse optimization; an
// optional durable byte store receives a copy of every successful
// compute. A failed compute caches nothing in either tier. Concurrent
// misses for the same fingerprint may both compute; recomputation is
// wasteful but safe.
type Result struct {
	durable store.ByteStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[string]resultEntry
}

// NewResult creates a result cache. A nil or Nop durable store degrades
// to in-process caching only; both tiers disabled is a pure pass-through.
func NewResult(durable store.ByteStore, logger *zap.Logger, m *metrics.Metrics) *Result {
	if durable == nil {
		durable = store.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Result{
		durable: durable,
		logger:  logger,
		metrics: m,
		entries: make(map[string]resultEntry),
	}
}

// GetOrCompute returns the cached payload for fp, or invokes compute and
// caches its result. Errors from compute propagate unchanged and leave no
// cache trace. The returned artifact ID is non-empty only when a durable
// copy was written (now or by a previous call this process).
func (c *Result) GetOrCompute(ctx context.Context, fp Fingerprint, compute func(context.Context) (any, error)) ([]byte, string, error) {
	key := fp.String()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		if c.metrics != nil {
			c.metrics.ResultCacheHitsTotal.Inc()
		}
		return e.payload, e.artifactID, nil
	}

	if c.metrics != nil {
		c.metrics.ResultCacheMissesTotal.Inc()
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, "", err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, "", celerrors.InternalError("failed to encode computed result", err)
	}

	artifactID := c.writeDurable(ctx, fp, payload)

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		// Lost a race with a concurrent compute; keep the first entry
		c.mu.Unlock()
		return existing.payload, existing.artifactID, nil
	}
	c.entries[key] = resultEntry{payload: payload, artifactID: artifactID, storedAt: time.Now()}
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ResultCacheEntries.Set(float64(size))
	}
	return payload, artifactID, nil
}

// writeDurable stores the payload under the fingerprint-derived key.
// Durable write failures degrade to in-process caching only; they never
// fail the request.
func (c *Result) writeDurable(ctx context.Context, fp Fingerprint, payload []byte) string {
	if c.durable.Kind() == store.KindNone {
		return ""
	}
	artifactID := uuid.NewString()
	data, err := json.Marshal(envelope{
		ArtifactID:  artifactID,
		Operation:   string(fp.Op),
		Fingerprint: fp.Sum,
		StoredAt:    time.Now().UTC(),
		Payload:     payload,
	})
	if err != nil {
		c.logger.Warn("failed to encode durable result envelope", zap.Error(err))
		return ""
	}
	if err := c.durable.Put(ctx, fp.StoreKey(), data); err != nil {
		c.logger.Warn("failed to write durable result",
			zap.String("key", fp.StoreKey()),
			zap.Error(err))
		return ""
	}
	if c.metrics != nil {
		c.metrics.ResultStoreWritesTotal.Inc()
	}
	c.logger.Debug("stored durable result",
		zap.String("key", fp.StoreKey()),
		zap.String("artifact_id", artifactID))
	return artifactID
}

// Load retrieves a durable result envelope by fingerprint. Used for
// explicit cross-process retrieval; never called implicitly on startup.
func (c *Result) Load(ctx context.Context, fp Fingerprint) ([]byte, error) {
	data, err := c.durable.Get(ctx, fp.StoreKey())
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, celerrors.InternalError("failed to decode durable result envelope", err)
	}
	return env.Payload, nil
}

// Invalidate removes a fingerprint from the in-process map. Durable
// copies are audit records and are left in place.
func (c *Result) Invalidate(fp Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fp.String())
}

// Len returns the number of in-process cached results
func (c *Result) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrCompute invokes cache.GetOrCompute for a typed response, decoding
// cache hits back into T
func GetOrCompute[T any](ctx context.Context, c *Result, fp Fingerprint, compute func(context.Context) (T, error)) (T, string, error) {
	var zero T
	payload, artifactID, err := c.GetOrCompute(ctx, fp, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, "", err
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return zero, "", celerrors.InternalError("failed to decode cached result", err)
	}
	return out, artifactID, nil
}

// Package cache implements the two caching tiers of the celestial server:
// the prerequisite data cache that makes large ephemeris files locally
// available, and the result cache that replays previously computed
// responses.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	celerrors "github.com/celestio/celestio/internal/errors"
	"github.com/celestio/celestio/internal/metrics"
	"github.com/celestio/celestio/internal/store"
	"github.com/celestio/celestio/internal/util"
)

// PrerequisiteConfig holds prerequisite cache configuration
type PrerequisiteConfig struct {
	// CacheDir is the local directory holding verified copies. It is
	// shared across process restarts; a warm directory never re-fetches.
	CacheDir string

	// Checksum is an optional expected CRC32 (lowercase hex) for the
	// prerequisite file. Empty disables checksum verification.
	Checksum string
}

// entry records a verified local copy for the current process
type entry struct {
	fileID    string
	localPath string
	fetchedAt time.Time
}

// Prerequisite manages local availability of large versioned data files
// needed by the local computation engine. Files are fetched at most once
// from the configured byte store and written atomically, so a concurrent
// or crashed fetch never leaves a partial file visible under the final
// name. Entries are never proactively evicted.
type Prerequisite struct {
	cfg     PrerequisiteConfig
	backing store.ByteStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[string]entry
}

// NewPrerequisite creates a prerequisite cache backed by the given byte store
func NewPrerequisite(cfg PrerequisiteConfig, backing store.ByteStore, logger *zap.Logger, m *metrics.Metrics) (*Prerequisite, error) {
	if cfg.CacheDir == "" {
		return nil, celerrors.ConfigError("prerequisite cache requires a cache directory", nil)
	}
	if backing == nil {
		backing = store.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, celerrors.ConfigError(
			fmt.Sprintf("failed to create cache directory %s", cfg.CacheDir), err)
	}
	return &Prerequisite{
		cfg:     cfg,
		backing: backing,
		logger:  logger,
		metrics: m,
		entries: make(map[string]entry),
	}, nil
}

// EnsureLocal returns the local path of a complete, verified copy of the
// prerequisite file, fetching it from the byte store only when the local
// cache misses. A warm local cache performs no store access at all.
func (p *Prerequisite) EnsureLocal(ctx context.Context, fileID string) (string, error) {
	if fileID == "" || strings.ContainsAny(fileID, "/\\") {
		return "", celerrors.InvalidArgument(fmt.Sprintf("invalid prerequisite file identity %q", fileID), nil)
	}

	localPath := filepath.Join(p.cfg.CacheDir, fileID)

	p.mu.RLock()
	_, known := p.entries[fileID]
	p.mu.RUnlock()
	if known {
		return localPath, nil
	}

	if p.verifyLocal(localPath) {
		p.logger.Debug("prerequisite found in local cache",
			zap.String("file", fileID),
			zap.String("path", localPath))
		if p.metrics != nil {
			p.metrics.PrereqCacheHitsTotal.Inc()
		}
		p.record(fileID, localPath)
		return localPath, nil
	}

	if err := p.fetch(ctx, fileID, localPath); err != nil {
		return "", err
	}
	p.record(fileID, localPath)
	return localPath, nil
}

// verifyLocal reports whether path holds a complete copy: non-zero size,
// and matching checksum when one is configured
func (p *Prerequisite) verifyLocal(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}
	if p.cfg.Checksum != "" {
		sum, err := util.FileChecksumHex(path)
		if err != nil || sum != p.cfg.Checksum {
			p.logger.Warn("prerequisite checksum mismatch, treating as missing",
				zap.String("path", path),
				zap.String("expected", p.cfg.Checksum))
			return false
		}
	}
	return true
}

// fetch reads the file from the byte store and installs it atomically:
// write to a temporary path, then rename into place. Concurrent fetchers
// are safe without a lock; at most one rename wins, the rest overwrite
// harmlessly with identical content.
func (p *Prerequisite) fetch(ctx context.Context, fileID, localPath string) error {
	start := time.Now()

	exists, err := p.backing.Exists(ctx, fileID)
	if err != nil {
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	if !exists {
		return celerrors.PrerequisiteFetch(fileID,
			fmt.Errorf("not present in %s store", p.backing.Kind()))
	}

	data, err := p.backing.Get(ctx, fileID)
	if err != nil {
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	if len(data) == 0 {
		return celerrors.PrerequisiteFetch(fileID, fmt.Errorf("store returned empty file"))
	}
	if p.cfg.Checksum != "" {
		if sum := util.ChecksumHex(data); sum != p.cfg.Checksum {
			return celerrors.PrerequisiteFetch(fileID,
				fmt.Errorf("checksum mismatch: expected %s, got %s", p.cfg.Checksum, sum))
		}
	}

	tmp, err := os.CreateTemp(p.cfg.CacheDir, fileID+".fetch-*")
	if err != nil {
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return celerrors.PrerequisiteFetch(fileID, err)
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName)
		return celerrors.PrerequisiteFetch(fileID, err)
	}

	if p.metrics != nil {
		p.metrics.PrereqFetchesTotal.Inc()
		p.metrics.PrereqFetchDuration.Observe(time.Since(start).Seconds())
	}
	p.logger.Info("prerequisite fetched and cached",
		zap.String("file", fileID),
		zap.String("store", string(p.backing.Kind())),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (p *Prerequisite) record(fileID, localPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[fileID]; !ok {
		p.entries[fileID] = entry{fileID: fileID, localPath: localPath, fetchedAt: time.Now()}
	}
}

// Package store provides the key-addressed byte store abstraction used for
// ephemeris prerequisite files and durable result caching. Backends:
// local filesystem, ephemeral in-memory (test/development mode), and a
// remote HTTP object store for durable cloud-style storage.
package store

import (
	"context"
	"fmt"

	celerrors "github.com/celestio/celestio/internal/errors"
)

// Kind identifies a byte store backend
type Kind string

const (
	KindFilesystem Kind = "filesystem"
	KindMemory     Kind = "memory"
	KindRemote     Kind = "remote"
	KindNone       Kind = "none"
)

// ParseKind validates a backend name from configuration
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFilesystem, KindMemory, KindRemote, KindNone:
		return Kind(s), nil
	case "s3":
		// Accepted for compatibility with older configs.
		return KindRemote, nil
	case "":
		return KindNone, nil
	default:
		return "", celerrors.ConfigError(
			fmt.Sprintf("unknown storage backend %q (must be filesystem, memory, remote, or none)", s), nil)
	}
}

// ByteStore is a minimal key-addressed storage abstraction.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: I/O failures are reported as StoreUnavailable; a missing key on
//   Get is reported as NotFound.
type ByteStore interface {
	// Exists reports whether a key is present in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the full contents stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any existing contents.
	Put(ctx context.Context, key string, data []byte) error

	// Kind returns the backend kind.
	Kind() Kind
}

// Nop is the explicit no-op store variant used when storage is disabled.
// Exists always reports false, Get reports not found, Put discards.
type Nop struct{}

// NewNop creates a no-op store
func NewNop() *Nop { return &Nop{} }

func (*Nop) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func (*Nop) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, celerrors.NotFound(key)
}

func (*Nop) Put(ctx context.Context, key string, data []byte) error { return nil }

func (*Nop) Kind() Kind { return KindNone }

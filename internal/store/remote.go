package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	celerrors "github.com/celestio/celestio/internal/errors"
)

// RemoteConfig holds remote object store configuration
type RemoteConfig struct {
	Endpoint   string
	Bucket     string
	Prefix     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Remote is a durable cloud-style object store reached over HTTP.
// Objects live at <endpoint>/<bucket>/<prefix><key>. Transient failures
// (5xx, network errors) are retried with exponential backoff; 4xx are not.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.Logger
}

// NewRemote creates a remote object store client
func NewRemote(cfg RemoteConfig, logger *zap.Logger) (*Remote, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, celerrors.ConfigError("remote store requires endpoint and bucket", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (s *Remote) objectURL(key string) string {
	base := strings.TrimRight(s.cfg.Endpoint, "/")
	path := url.PathEscape(s.cfg.Prefix + key)
	return fmt.Sprintf("%s/%s/%s", base, url.PathEscape(s.cfg.Bucket), path)
}

func (s *Remote) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.withRetry(ctx, "HEAD", key, func() (retryable bool, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(key), nil)
		if err != nil {
			return false, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			exists = true
			return false, nil
		case resp.StatusCode == http.StatusNotFound:
			exists = false
			return false, nil
		case resp.StatusCode >= 500:
			return true, fmt.Errorf("remote store returned %s", resp.Status)
		default:
			return false, fmt.Errorf("remote store returned %s", resp.Status)
		}
	})
	if err != nil {
		return false, celerrors.StoreUnavailable(fmt.Sprintf("HEAD %s failed", key), err)
	}
	return exists, nil
}

func (s *Remote) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	var notFound bool
	err := s.withRetry(ctx, "GET", key, func() (retryable bool, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(key), nil)
		if err != nil {
			return false, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			data, err = io.ReadAll(resp.Body)
			return err != nil, err
		case resp.StatusCode == http.StatusNotFound:
			notFound = true
			return false, nil
		case resp.StatusCode >= 500:
			return true, fmt.Errorf("remote store returned %s", resp.Status)
		default:
			return false, fmt.Errorf("remote store returned %s", resp.Status)
		}
	})
	if err != nil {
		return nil, celerrors.StoreUnavailable(fmt.Sprintf("GET %s failed", key), err)
	}
	if notFound {
		return nil, celerrors.NotFound(key)
	}
	return data, nil
}

func (s *Remote) Put(ctx context.Context, key string, data []byte) error {
	err := s.withRetry(ctx, "PUT", key, func() (retryable bool, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), bytes.NewReader(data))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		resp, err := s.client.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return false, nil
		case resp.StatusCode >= 500:
			return true, fmt.Errorf("remote store returned %s", resp.Status)
		default:
			return false, fmt.Errorf("remote store returned %s", resp.Status)
		}
	})
	if err != nil {
		return celerrors.StoreUnavailable(fmt.Sprintf("PUT %s failed", key), err)
	}
	return nil
}

func (s *Remote) Kind() Kind { return KindRemote }

// withRetry runs op with exponential backoff. op reports whether its
// failure is retryable; 4xx responses and context cancellation are not.
func (s *Remote) withRetry(ctx context.Context, method, key string, op func() (bool, error)) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		retryable, err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}

		s.logger.Warn("remote store call failed, retrying",
			zap.String("method", method),
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return lastErr
}

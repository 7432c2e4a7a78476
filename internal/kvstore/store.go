// Package kvstore layers JSON values, well-defined defaults and per-key
// read-modify-write on top of a db.Backend.
//
// A read of a missing key and a read of an undecodable value both yield the
// zero value of the requested type: a nil slice for collections and a nil
// pointer for single records. Only backend I/O failures surface, wrapped in
// ErrStoreUnavailable.
//
// Mutate serialises writers within one process. Two processes sharing the
// same backend still race: the last full-collection write wins.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/db"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var ErrStoreUnavailable = errors.New("store unavailable")

type Store struct {
	backend db.Backend
	prefix  string
	logger  zerolog.Logger
	metrics *metrics
	locks   sync.Map
}

// New wraps backend. Operation metrics are registered with reg; a nil reg
// gives the store a private registry.
func New(backend db.Backend, prefix string, logger zerolog.Logger, reg prometheus.Registerer) *Store {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Store{
		backend: backend,
		prefix:  prefix,
		logger:  logger,
		metrics: newMetrics(reg),
	}
}

func (s *Store) fullKey(key string) string {
	return s.prefix + key
}

func (s *Store) getMutex(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Get decodes the value stored under key into a T.
func Get[T any](ctx context.Context, s *Store, key string) (T, error) {
	var zero T
	start := time.Now()

	raw, err := s.backend.Get(ctx, s.fullKey(key))
	if errors.Is(err, db.ErrNotFound) {
		s.metrics.observe("get", resultAbsent, start)
		return zero, nil
	}
	if err != nil {
		s.metrics.observe("get", resultError, start)
		s.logger.Error().Err(err).Str("key", key).Msg("Error reading from store")
		return zero, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, key, err)
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.metrics.observe("get", resultMalformed, start)
		s.logger.Warn().Err(err).Str("key", key).Msg("Malformed entry, using empty default")
		return zero, nil
	}

	s.metrics.observe("get", resultOK, start)
	return value, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	start := time.Now()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := s.backend.Set(ctx, s.fullKey(key), raw); err != nil {
		s.metrics.observe("set", resultError, start)
		s.logger.Error().Err(err).Str("key", key).Msg("Error writing to store")
		return fmt.Errorf("%w: write %s: %w", ErrStoreUnavailable, key, err)
	}

	s.metrics.observe("set", resultOK, start)
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	start := time.Now()

	if err := s.backend.Delete(ctx, s.fullKey(key)); err != nil {
		s.metrics.observe("remove", resultError, start)
		s.logger.Error().Err(err).Str("key", key).Msg("Error removing from store")
		return fmt.Errorf("%w: remove %s: %w", ErrStoreUnavailable, key, err)
	}

	s.metrics.observe("remove", resultOK, start)
	return nil
}

// Mutate reads key, applies fn and writes the result back while holding the
// key's mutex. Nothing is written when fn or the read fails.
func Mutate[T any](ctx context.Context, s *Store, key string, fn func(T) (T, error)) (T, error) {
	var zero T

	mu := s.getMutex(key)
	mu.Lock()
	defer mu.Unlock()

	current, err := Get[T](ctx, s, key)
	if err != nil {
		return zero, err
	}

	next, err := fn(current)
	if err != nil {
		return zero, err
	}

	if err := s.Set(ctx, key, next); err != nil {
		return zero, err
	}
	return next, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

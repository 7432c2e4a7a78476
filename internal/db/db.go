// Package db provides the raw byte-valued backends the key-value store
// persists into. Every backend maps one string key to one opaque value.
package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Backend.Get when the key has never been written
// or has been deleted.
var ErrNotFound = errors.New("key not found")

// Backend is a durable string-keyed byte store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

// Open returns the backend for driver, connected to dsn. An empty driver
// means sqlite; the memory driver ignores dsn and keeps nothing past exit.
func Open(driver, dsn string) (Backend, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		if dsn == "" {
			dsn = "storefront.db"
		}
		return OpenSQLite(dsn)
	case DriverMySQL:
		return OpenMySQL(dsn)
	case DriverRedis:
		return OpenRedis(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

package persistence

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Backend stores an append-only log of update records per key.
type Backend interface {
	// Load returns every record stored under key in append order.
	Load(ctx context.Context, key string) ([][]byte, error)
	// Append adds a record and returns the number of records now stored under key.
	Append(ctx context.Context, key string, record []byte) (int, error)
	// Replace atomically swaps every record under key for a single one.
	Replace(ctx context.Context, key string, record []byte) error
	Close() error
}

// BackendFactory builds a Backend from a parsed DSN.
type BackendFactory func(ctx context.Context, dsn *url.URL) (Backend, error)

var backendFactoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}{
	factories: map[string]BackendFactory{},
}

// RegisterBackendFactory makes a backend available for DSNs with the given scheme.
func RegisterBackendFactory(scheme string, factory BackendFactory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	backendFactoryRegistry.mu.Lock()
	defer backendFactoryRegistry.mu.Unlock()
	backendFactoryRegistry.factories[scheme] = factory
}

func lookupBackendFactory(scheme string) (BackendFactory, bool) {
	scheme = normalizeScheme(scheme)
	backendFactoryRegistry.mu.RLock()
	defer backendFactoryRegistry.mu.RUnlock()
	factory, ok := backendFactoryRegistry.factories[scheme]
	return factory, ok
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}

func init() {
	RegisterBackendFactory("memory", func(context.Context, *url.URL) (Backend, error) {
		return NewMemoryBackend(), nil
	})
	RegisterBackendFactory("bolt", func(_ context.Context, dsn *url.URL) (Backend, error) {
		path, err := dsnPath(dsn)
		if err != nil {
			return nil, err
		}
		return NewBoltBackend(path)
	})
	RegisterBackendFactory("redis", func(ctx context.Context, dsn *url.URL) (Backend, error) {
		return NewRedisBackend(ctx, dsn.String())
	})
	postgres := func(ctx context.Context, dsn *url.URL) (Backend, error) {
		return NewPostgresBackend(ctx, dsn.String())
	}
	RegisterBackendFactory("postgres", postgres)
	RegisterBackendFactory("postgresql", postgres)
}

// OpenBackend builds the backend registered for the scheme of dsn.
func OpenBackend(ctx context.Context, dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("persistence dsn is empty")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse persistence dsn: %w", err)
	}
	factory, ok := lookupBackendFactory(parsed.Scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported persistence scheme %q", parsed.Scheme)
	}
	return factory(ctx, parsed)
}

// dsnPath extracts a file path from bolt://relative/path, bolt:///absolute/path or bolt:path.
func dsnPath(parsed *url.URL) (string, error) {
	path := strings.TrimSpace(parsed.Host + parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		return "", fmt.Errorf("dsn %q has no path", parsed.String())
	}
	return path, nil
}

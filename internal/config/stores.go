package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"sessionkeeper/internal/session"
	"sessionkeeper/internal/storage"
	"sessionkeeper/pkg/logging"
)

// Session returns the OAuth client settings.
func (c Config) Session() session.Config {
	return session.Config{
		ClientID:              c.ClientID,
		RedirectURI:           c.RedirectURI,
		AuthorizationEndpoint: c.AuthorizationEndpoint,
		TokenEndpoint:         c.TokenEndpoint,
		IdentityEndpoint:      c.IdentityEndpoint,
		Scopes:                c.Scopes,
	}
}

// Stores holds the storage areas of one tab.
type Stores struct {
	Tab    storage.Store
	Shared storage.Store

	closers []func() error
}

// Close releases backend connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// TabDir returns the file backend directory of tab.
func (c Config) TabDir(tab string) string {
	return filepath.Join(c.Storage.StateDir, "tabs", tab)
}

// SharedDir returns the file backend directory of origin-shared records.
func (c Config) SharedDir() string {
	return filepath.Join(c.Storage.StateDir, "shared")
}

var tabNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateTabName rejects tab names that are not usable as a directory name.
func ValidateTabName(tab string) error {
	if !tabNamePattern.MatchString(tab) {
		return ValidationError{Field: "tab", Value: tab, Message: "must be 1-64 letters, digits, '-' or '_'"}
	}
	return nil
}

// OpenStores opens the tab-scoped and origin-shared stores for tab.
func (c Config) OpenStores(ctx context.Context, tab string) (*Stores, error) {
	if err := ValidateTabName(tab); err != nil {
		return nil, err
	}
	tabStore, err := storage.NewFileStore(c.TabDir(tab))
	if err != nil {
		return nil, fmt.Errorf("failed to open tab storage: %w", err)
	}
	stores := &Stores{Tab: tabStore}

	switch c.Storage.Shared {
	case SharedBackendMemory:
		stores.Shared = storage.NewMemoryStore()
	case SharedBackendRedis:
		opts := storage.DefaultRedisOptions()
		opts.Address = c.Storage.Redis.Address
		opts.Password = c.Storage.Redis.Password
		opts.DB = c.Storage.Redis.DB
		opts.EnableTLS = c.Storage.Redis.TLS
		if c.Storage.Redis.KeyPrefix != "" {
			opts.KeyPrefix = c.Storage.Redis.KeyPrefix
		}
		opts.TTL = c.Storage.Redis.TTL

		client := storage.NewRedisClient(opts)
		redisStore := storage.NewRedisStore(client, opts.KeyPrefix, opts.TTL)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(pingCtx); err != nil {
			_ = redisStore.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Address, err)
		}
		logging.Debug("Storage", "Using redis at %s for shared records", opts.Address)
		stores.Shared = redisStore
		stores.closers = append(stores.closers, redisStore.Close)
	default:
		shared, err := storage.NewFileStore(c.SharedDir())
		if err != nil {
			return nil, fmt.Errorf("failed to open shared storage: %w", err)
		}
		stores.Shared = shared
	}
	return stores, nil
}

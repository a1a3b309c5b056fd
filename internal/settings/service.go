package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Store is the persistence slice the service needs.
type Store interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Put(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]Setting, error)
}

// Service reads settings through a redis cache. Concurrent misses for the
// same key collapse into one database load. The cache is best effort; a
// redis failure degrades to a direct database read.
type Service struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService builds a Service instance. A nil cache client disables
// caching.
func NewService(store Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(key string) string {
	return "settings:" + key
}

// Get returns the setting for key, consulting the cache first.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, cacheKey(key)).Bytes()
		if err == nil {
			var cached Setting
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("settings cache read", slog.Any("error", err))
		}
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		setting, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, setting)
		return setting, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Setting), nil
}

// Set stores the value and invalidates the cache entry.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.store.Put(ctx, key, value); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(key)).Err(); err != nil && s.logger != nil {
			s.logger.Warn("settings cache invalidate", slog.Any("error", err))
		}
	}
	return nil
}

// List returns all settings, bypassing the cache.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.store.List(ctx)
}

// DefaultPassword returns the provisioning default credential. A missing
// setting yields an empty string with the not-found error; the caller owns
// the fallback.
func (s *Service) DefaultPassword(ctx context.Context) (string, error) {
	setting, err := s.Get(ctx, KeyDefaultPassword)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *Service) fill(ctx context.Context, setting *Setting) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(setting)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(setting.Key), payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("settings cache write", slog.Any("error", err))
	}
}

package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-esign/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const tokenCacheKeyPrefix = "go-esign::token_record::v1"

var errStaleFill = errors.New("sqlstore: token record changed while loading")

type cachedToken struct {
	Record core.TokenRecord
	Found  bool
}

// CachedTokenStore serves Load from a read-through cache and invalidates it
// on every Save and Clear. A fill that overlaps a write is never kept.
type CachedTokenStore struct {
	base  core.TokenStore
	cache repositorycache.CacheService
	key   string

	// writes moves before every base write
	writes atomic.Uint64
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService, prefix string) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	return &CachedTokenStore{base: base, cache: cacheService, key: TokenCacheKey(prefix)}, nil
}

// TokenCacheKey returns go-esign::token_record::v1::<prefix>.
func TokenCacheKey(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = core.DefaultTokenKeyPrefix
	}
	return tokenCacheKeyPrefix + "::" + prefix
}

func (s *CachedTokenStore) Load(ctx context.Context) (core.TokenRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.TokenRecord{}, false, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	started := s.writes.Load()
	cached, err := repositorycache.GetOrFetch(ctx, s.cache, s.key, func(ctx context.Context) (cachedToken, error) {
		generation := s.writes.Load()
		record, found, fetchErr := s.base.Load(ctx)
		if fetchErr != nil {
			return cachedToken{}, fetchErr
		}
		if s.writes.Load() != generation {
			return cachedToken{}, errStaleFill
		}
		return cachedToken{Record: record, Found: found}, nil
	})
	if errors.Is(err, errStaleFill) {
		return s.base.Load(ctx)
	}
	if err != nil {
		return core.TokenRecord{}, false, err
	}
	if s.writes.Load() != started {
		// a write overlapped this call, the entry may hold the older record
		if err := s.cache.Delete(ctx, s.key); err != nil {
			return core.TokenRecord{}, false, err
		}
		return s.base.Load(ctx)
	}
	return cached.Record, cached.Found, nil
}

func (s *CachedTokenStore) Save(ctx context.Context, record core.TokenRecord) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	s.writes.Add(1)
	if err := s.base.Save(ctx, record); err != nil {
		return err
	}
	return s.cache.Delete(ctx, s.key)
}

func (s *CachedTokenStore) Clear(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached token store is not configured")
	}
	s.writes.Add(1)
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	return s.cache.Delete(ctx, s.key)
}

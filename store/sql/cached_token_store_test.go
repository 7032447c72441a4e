package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-esign/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubTokenStore struct {
	mu         sync.Mutex
	record     core.TokenRecord
	found      bool
	loadCalls  int
	saveCalls  int
	clearCalls int
	loadErr    error
}

func (s *stubTokenStore) Load(context.Context) (core.TokenRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.loadErr != nil {
		return core.TokenRecord{}, false, s.loadErr
	}
	return s.record, s.found, nil
}

func (s *stubTokenStore) Save(_ context.Context, record core.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	s.record = record
	s.found = !record.IsZero()
	return nil
}

func (s *stubTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	s.record = core.TokenRecord{}
	s.found = false
	return nil
}

func (s *stubTokenStore) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCalls
}

func TestCachedTokenStore_Load_MissFetchThenHit(t *testing.T) {
	base := &stubTokenStore{record: core.TokenRecord{AccessToken: "A1", ExpiresAt: time.Now().UTC().Add(time.Hour)}, found: true}
	store, err := NewCachedTokenStore(base, newTestTokenCacheService(t), "")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	for range 3 {
		record, found, err := store.Load(context.Background())
		if err != nil || !found || record.AccessToken != "A1" {
			t.Fatalf("unexpected load result %#v found=%t err=%v", record, found, err)
		}
	}
	if base.loads() != 1 {
		t.Fatalf("expected one base load, got %d", base.loads())
	}
}

func TestCachedTokenStore_SaveAndClearInvalidate(t *testing.T) {
	base := &stubTokenStore{record: core.TokenRecord{AccessToken: "A1"}, found: true}
	store, err := NewCachedTokenStore(base, newTestTokenCacheService(t), "acme_")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	ctx := context.Background()
	if _, _, err := store.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Save(ctx, core.TokenRecord{AccessToken: "A2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	record, _, err := store.Load(ctx)
	if err != nil || record.AccessToken != "A2" {
		t.Fatalf("expected refreshed value after save, got %#v err=%v", record, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("expected cleared value, got found=%t err=%v", found, err)
	}
	if base.loads() != 3 {
		t.Fatalf("expected a base load after each invalidation, got %d", base.loads())
	}
}

// racingTokenStore reads its record, then runs duringLoad before returning
// it, the way a slow database read overlaps a concurrent write.
type racingTokenStore struct {
	stubTokenStore
	duringLoad func()
}

func (s *racingTokenStore) Load(ctx context.Context) (core.TokenRecord, bool, error) {
	record, found, err := s.stubTokenStore.Load(ctx)
	if hook := s.duringLoad; hook != nil {
		s.duringLoad = nil
		hook()
	}
	return record, found, err
}

func TestCachedTokenStore_FillOverlappingSaveIsNotCached(t *testing.T) {
	base := &racingTokenStore{stubTokenStore: stubTokenStore{record: core.TokenRecord{AccessToken: "A1"}, found: true}}
	store, err := NewCachedTokenStore(base, newTestTokenCacheService(t), "")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	ctx := context.Background()
	base.duringLoad = func() {
		if err := store.Save(ctx, core.TokenRecord{AccessToken: "A2"}); err != nil {
			t.Errorf("save: %v", err)
		}
	}

	record, _, err := store.Load(ctx)
	if err != nil || record.AccessToken != "A2" {
		t.Fatalf("expected the saved record from the overlapping load, got %#v err=%v", record, err)
	}
	for range 2 {
		record, _, err = store.Load(ctx)
		if err != nil || record.AccessToken != "A2" {
			t.Fatalf("pre-save record served from cache: %#v err=%v", record, err)
		}
	}
}

func TestCachedTokenStore_FillOverlappingClearIsNotCached(t *testing.T) {
	base := &racingTokenStore{stubTokenStore: stubTokenStore{record: core.TokenRecord{AccessToken: "A1"}, found: true}}
	store, err := NewCachedTokenStore(base, newTestTokenCacheService(t), "")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	ctx := context.Background()
	base.duringLoad = func() {
		if err := store.Clear(ctx); err != nil {
			t.Errorf("clear: %v", err)
		}
	}

	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("expected cleared record, got found=%t err=%v", found, err)
	}
	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("cleared record served from cache, found=%t err=%v", found, err)
	}
}

func TestCachedTokenStore_PropagatesBaseErrors(t *testing.T) {
	base := &stubTokenStore{loadErr: errors.New("db down")}
	store, err := NewCachedTokenStore(base, newTestTokenCacheService(t), "")
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected base error propagation")
	}
}

func TestNewCachedTokenStore_Validation(t *testing.T) {
	if _, err := NewCachedTokenStore(nil, newTestTokenCacheService(t), ""); err == nil {
		t.Fatalf("expected base required error")
	}
	if _, err := NewCachedTokenStore(&stubTokenStore{}, nil, ""); err == nil {
		t.Fatalf("expected cache required error")
	}
	if TokenCacheKey("") != "go-esign::token_record::v1::docusign_" {
		t.Fatalf("unexpected cache key %q", TokenCacheKey(""))
	}
}

func newTestTokenCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

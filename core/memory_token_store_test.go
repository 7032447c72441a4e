package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryTokenStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty store, ok=%t err=%v", ok, err)
	}

	record := TokenRecord{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected stored record, ok=%t err=%v", ok, err)
	}
	if loaded.AccessToken != "a1" || loaded.RefreshToken != "r1" {
		t.Fatalf("unexpected record %#v", loaded)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear should be a no-op: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected record cleared")
	}
}

func TestMemoryTokenStore_ConcurrentSavesKeepWholeRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	var wg sync.WaitGroup
	for index := 0; index < 32; index++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_ = store.Save(ctx, TokenRecord{
				AccessToken:  fmt.Sprintf("access_%d", index),
				RefreshToken: fmt.Sprintf("refresh_%d", index),
				ExpiresAt:    time.Now().Add(time.Hour),
			})
		}(index)
	}
	wg.Wait()

	record, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected record, ok=%t err=%v", ok, err)
	}
	var suffix string
	if _, err := fmt.Sscanf(record.AccessToken, "access_%s", &suffix); err != nil {
		t.Fatalf("unexpected access token %q", record.AccessToken)
	}
	if record.RefreshToken != "refresh_"+suffix {
		t.Fatalf("record pieces come from different writers: %#v", record)
	}
}

func TestMemoryTokenStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewMemoryTokenStore().Load(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

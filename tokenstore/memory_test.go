package tokenstore

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := m.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty pair, got %+v", got)
	}

	if err := m.Store(ctx, testPair()); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	got, _ = m.Get(ctx)
	if got.AccessToken != "access-token-1" {
		t.Fatalf("unexpected pair: %+v", got)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, _ = m.Get(ctx)
	if !got.Empty() {
		t.Fatalf("expected empty pair after clear, got %+v", got)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Store(ctx, testPair())
		}()
		go func() {
			defer wg.Done()
			_, _ = m.Get(ctx)
		}()
	}
	wg.Wait()

	got, _ := m.Get(ctx)
	if got.Empty() {
		t.Fatal("expected pair to survive concurrent writes")
	}
}

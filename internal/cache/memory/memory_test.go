package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetGet_CopiesValues(t *testing.T) {
	s, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	v := []byte("abc")
	if err := s.Set(ctx, "k", v, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "abc" {
		t.Fatalf("got=%q ok=%v err=%v", got, ok, err)
	}
	got[1] = 'y'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestTTLExpiry(t *testing.T) {
	s, _ := New(4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), time.Hour)
	now = now.Add(59 * time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected miss at expiry")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", s.Len())
	}
}

func TestEviction_LeastRecentlyUsed(t *testing.T) {
	s, _ := New(2)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	_, _, _ = s.Get(ctx, "a")
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Fatal("a should still be cached")
	}
}

func TestCanceledContext(t *testing.T) {
	s, _ := New(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Fatal("expected error on Set with canceled context")
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Fatal("expected error on Get with canceled context")
	}
}

func TestPurgePrefix_RemovesOnlyMatching(t *testing.T) {
	s, _ := New(8)
	ctx := context.Background()
	for _, k := range []string{"sf:ApiAllProducts:a", "sf:ApiAllProducts:b", "sf:Other:a"} {
		if err := s.Set(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	n, err := s.PurgePrefix(ctx, "sf:ApiAllProducts:")
	if err != nil || n != 2 {
		t.Fatalf("purged=%d err=%v want 2", n, err)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want 1", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "sf:Other:a"); !ok {
		t.Fatal("unrelated key purged")
	}
}

func TestSetIfGeneration_DroppedAfterPurge(t *testing.T) {
	s, _ := New(8)
	ctx := context.Background()

	gen, err := s.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if ok, err := s.SetIfGeneration(ctx, "sf:ApiAllProducts:a", []byte("v1"), time.Hour, gen); err != nil || !ok {
		t.Fatalf("fill at current generation: ok=%v err=%v", ok, err)
	}

	if _, err := s.PurgePrefix(ctx, "sf:ApiAllProducts:"); err != nil {
		t.Fatalf("PurgePrefix: %v", err)
	}
	if ok, err := s.SetIfGeneration(ctx, "sf:ApiAllProducts:a", []byte("old"), time.Hour, gen); err != nil || ok {
		t.Fatalf("fill from before the purge: ok=%v err=%v want dropped", ok, err)
	}
	if _, ok, _ := s.Get(ctx, "sf:ApiAllProducts:a"); ok {
		t.Fatal("stale fill landed after purge")
	}

	next, _ := s.Generation(ctx)
	if next != gen+1 {
		t.Fatalf("generation=%d want %d", next, gen+1)
	}
	if ok, _ := s.SetIfGeneration(ctx, "sf:ApiAllProducts:a", []byte("v2"), time.Hour, next); !ok {
		t.Fatal("fill at new generation was dropped")
	}
}

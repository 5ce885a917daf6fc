package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	ctx := context.Background()

	const goroutines = 16
	const iterations = 50

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := km.Lock(ctx, "k"); err != nil {
					t.Errorf("lock: %v", err)
					return
				}
				counter++
				km.Unlock("k")
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("lost updates: want %d, got %d", goroutines*iterations, counter)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
	ctx := context.Background()

	if err := km.Lock(ctx, "a"); err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		if err := km.Lock(ctx, "b"); err != nil {
			t.Errorf("lock b: %v", err)
		}
		km.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock on independent key blocked")
	}
}

func TestLockRespectsContextCancel(t *testing.T) {
	km := New()

	if err := km.Lock(context.Background(), "k"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := km.Lock(ctx, "k"); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	// Holder releases; a fresh caller must still be able to acquire.
	km.Unlock("k")
	if err := km.Lock(context.Background(), "k"); err != nil {
		t.Fatalf("relock after cancel: %v", err)
	}
	km.Unlock("k")
}

func TestIdleKeysAreReleased(t *testing.T) {
	km := New()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := km.Lock(ctx, key); err != nil {
			t.Fatalf("lock %s: %v", key, err)
		}
		km.Unlock(key)
	}

	km.mu.Lock()
	n := len(km.locks)
	km.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected empty lock table, got %d entries", n)
	}
}

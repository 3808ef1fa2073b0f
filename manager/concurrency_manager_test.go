package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"docscan/config"
)

func TestAcquireAndRelease(t *testing.T) {
	cm := NewConcurrencyManager([]config.PoolConfigEntry{{Name: "analyze", Size: 2}}, 1, time.Second)
	defer cm.Shutdown()

	release, err := cm.Acquire(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, processing := cm.snapshot("analyze"); processing != 1 {
		t.Errorf("expected 1 processing, got %d", processing)
	}

	release()
	release() // releasing twice must not free a second slot

	if queued, processing := cm.snapshot("analyze"); queued != 0 || processing != 0 {
		t.Errorf("expected empty pool after release, got queued=%d processing=%d", queued, processing)
	}
}

func TestAcquire_Timeout(t *testing.T) {
	cm := NewConcurrencyManager([]config.PoolConfigEntry{{Name: "analyze", Size: 1}}, 1, 50*time.Millisecond)
	defer cm.Shutdown()

	release, err := cm.Acquire(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	_, err = cm.Acquire(context.Background(), "analyze")
	if !errors.Is(err, ErrQueueTimeout) {
		t.Fatalf("expected ErrQueueTimeout, got %v", err)
	}

	if queued, _ := cm.snapshot("analyze"); queued != 0 {
		t.Errorf("expected queue to drain after timeout, got %d", queued)
	}
}

func TestAcquire_ZeroTimeoutWaits(t *testing.T) {
	cm := NewConcurrencyManager([]config.PoolConfigEntry{{Name: "analyze", Size: 4}}, 1, 0)
	defer cm.Shutdown()

	for i := 0; i < 1000; i++ {
		release, err := cm.Acquire(context.Background(), "analyze")
		if err != nil {
			t.Fatalf("Acquire %d failed on an idle pool: %v", i, err)
		}
		release()
	}

	for i := 0; i < 4; i++ {
		release, err := cm.Acquire(context.Background(), "analyze")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer release()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := cm.Acquire(ctx, "analyze"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the caller's deadline, got %v", err)
	}
}

func TestAcquire_ContextCanceled(t *testing.T) {
	cm := NewConcurrencyManager([]config.PoolConfigEntry{{Name: "extract", Size: 1}}, 1, time.Minute)
	defer cm.Shutdown()

	release, err := cm.Acquire(context.Background(), "extract")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = cm.Acquire(ctx, "extract")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAcquire_UnknownPoolUsesDefault(t *testing.T) {
	cm := NewConcurrencyManager(nil, 1, time.Second)
	defer cm.Shutdown()

	release, err := cm.Acquire(context.Background(), "something-else")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	if _, processing := cm.snapshot("default"); processing != 1 {
		t.Errorf("expected default pool to be used, got processing=%d", processing)
	}
}

func TestInvalidPoolSizeFallsBack(t *testing.T) {
	cm := NewConcurrencyManager([]config.PoolConfigEntry{{Name: "analyze", Size: 0}}, 3, time.Second)
	defer cm.Shutdown()

	if got := cap(cm.semMap["analyze"]); got != 3 {
		t.Errorf("expected fallback size 3, got %d", got)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	cm := NewConcurrencyManager(nil, 1, time.Second)
	cm.Shutdown()
	cm.Shutdown()
}

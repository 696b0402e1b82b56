package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := &domain.ScanProgress{
		ScanID:  "scan-1",
		Target:  "https://example.com",
		Status:  domain.StatusRunning,
		Phase:   "Checking HTTP security headers",
		Percent: 37,
	}
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Percent != 37 || got.Status != domain.StatusRunning {
		t.Fatalf("got %d/%s, want 37/running", got.Percent, got.Status)
	}
}

func TestMemoryStoreUnknownID(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := &domain.ScanProgress{ScanID: "scan-1", Percent: 10, Status: domain.StatusRunning}
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	p.Percent = 99 // caller keeps mutating its own copy

	got, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Percent != 10 {
		t.Fatalf("stored snapshot mutated: percent = %d, want 10", got.Percent)
	}

	got.Percent = 55 // reader mutations must not leak back either
	again, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Percent != 10 {
		t.Fatalf("reader mutation leaked: percent = %d, want 10", again.Percent)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for pct := 10; pct <= 100; pct += 30 {
		status := domain.StatusRunning
		if pct == 100 {
			status = domain.StatusCompleted
		}
		if err := store.Put(ctx, &domain.ScanProgress{ScanID: "scan-1", Percent: pct, Status: status}); err != nil {
			t.Fatalf("Put(%d): %v", pct, err)
		}
	}

	got, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Percent != 100 || got.Status != domain.StatusCompleted {
		t.Fatalf("got %d/%s, want 100/completed", got.Percent, got.Status)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, &domain.ScanProgress{ScanID: "scan-1", Status: domain.StatusCompleted}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Force the entry to look expired.
	store.mu.Lock()
	item := store.items["scan-1"]
	item.expiration = time.Now().Add(-time.Second).UnixNano()
	store.items["scan-1"] = item
	store.mu.Unlock()

	if _, err := store.Get(ctx, "scan-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired Get err = %v, want ErrNotFound", err)
	}
	store.Cleanup()
	store.mu.RLock()
	_, stillThere := store.items["scan-1"]
	store.mu.RUnlock()
	if stillThere {
		t.Fatal("Cleanup left an expired entry behind")
	}
}

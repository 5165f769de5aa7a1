package background

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryTaskStoreLifecycle(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	result := &TaskResult{
		ProcessID: "apply_123",
		Type:      TaskTypeBulkApply,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
	}

	if err := store.Store(ctx, result); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := store.Get(ctx, "apply_123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != TaskStatusAccepted {
		t.Errorf("status = %s", got.Status)
	}

	got.Status = TaskStatusSuccess
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, _ := store.Get(ctx, "apply_123")
	if updated.Status != TaskStatusSuccess {
		t.Errorf("updated status = %s", updated.Status)
	}

	if err := store.Delete(ctx, "apply_123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "apply_123"); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestInMemoryTaskStoreUpdateUnknown(t *testing.T) {
	store := NewInMemoryTaskStore()
	err := store.Update(context.Background(), &TaskResult{ProcessID: "missing"})
	if err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestInMemoryTaskStoreCleanup(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	old := &TaskResult{ProcessID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &TaskResult{ProcessID: "fresh", CreatedAt: time.Now()}
	store.Store(ctx, old)
	store.Store(ctx, fresh)

	if err := store.Cleanup(ctx, 24*time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if _, err := store.Get(ctx, "old"); err != ErrTaskNotFound {
		t.Error("expired task should be removed")
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh task should survive cleanup: %v", err)
	}
}

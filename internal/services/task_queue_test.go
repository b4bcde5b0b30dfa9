package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeOutreach_Constant(t *testing.T) {
	if TaskTypeOutreach != "outreach:generate" {
		t.Errorf("TaskTypeOutreach = %q, expected %q", TaskTypeOutreach, "outreach:generate")
	}
}

func TestSyncQueue_New(t *testing.T) {
	queue := NewSyncQueue()
	if queue == nil {
		t.Error("NewSyncQueue should not return nil")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_Close(t *testing.T) {
	queue := NewSyncQueue()
	err := queue.Close()
	if err != nil {
		t.Errorf("SyncQueue.Close() should return nil, got %v", err)
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	task := &OutreachTask{
		Options: BatchOptions{LeadIDs: []uint{1, 2}},
	}

	err := queue.Enqueue(task)
	if err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_EnqueueRunsProcessor(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got *OutreachTask
	done := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, task *OutreachTask) error {
		mu.Lock()
		got = task
		mu.Unlock()
		close(done)
		return nil
	})

	if err := queue.Enqueue(&OutreachTask{Options: BatchOptions{ForceRegenerate: true}}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || !got.Options.ForceRegenerate {
		t.Error("processor should receive the enqueued task")
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}

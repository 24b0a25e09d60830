package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kocayinsec/network-automation-sender/clock"
	"github.com/kocayinsec/network-automation-sender/model"
)

func newTestEntry(priority model.Priority, now time.Time) *model.QueueEntry {
	return &model.QueueEntry{
		Descriptor: model.RequestDescriptor{
			ID:          uuid.New(),
			Method:      model.MethodGet,
			URL:         "https://example.com/",
			Priority:    priority,
			SubmittedAt: now,
		},
		Attempt:        1,
		NextEligibleAt: now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func TestDequeuePriorityOrder(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	if err := q.Enqueue(newTestEntry(model.Low, fc.Now())); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(newTestEntry(model.Critical, fc.Now())); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(newTestEntry(model.Normal, fc.Now())); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	wantOrder := []model.Priority{model.Critical, model.Normal, model.Low}
	for _, want := range wantOrder {
		e, err := q.DequeueReady(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if e.Descriptor.Priority != want {
			t.Fatalf("got priority %v, want %v", e.Descriptor.Priority, want)
		}
	}
}

func TestDequeueFIFOWithinBand(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	first := newTestEntry(model.Normal, fc.Now())
	second := newTestEntry(model.Normal, fc.Now())
	if err := q.Enqueue(first); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(second); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	got1, _ := q.DequeueReady(ctx)
	got2, _ := q.DequeueReady(ctx)
	if got1.Descriptor.ID != first.Descriptor.ID {
		t.Fatalf("expected FIFO order, first dequeued was not the first enqueued")
	}
	if got2.Descriptor.ID != second.Descriptor.ID {
		t.Fatalf("expected FIFO order, second dequeued was not the second enqueued")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 1)
	if err := q.Enqueue(newTestEntry(model.Normal, fc.Now())); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(newTestEntry(model.Normal, fc.Now())); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDequeueBlocksUntilEligible(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	entry := newTestEntry(model.Normal, fc.Now())
	entry.NextEligibleAt = fc.Now().Add(5 * time.Second)
	if err := q.Enqueue(entry); err != nil {
		t.Fatal(err)
	}

	done := make(chan *model.QueueEntry, 1)
	go func() {
		e, err := q.DequeueReady(context.Background())
		if err != nil {
			return
		}
		done <- e
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned before entry became eligible")
	case <-time.After(50 * time.Millisecond):
	}

	fc.Advance(5 * time.Second)

	select {
	case e := <-done:
		if e.Descriptor.ID != entry.Descriptor.ID {
			t.Fatal("dequeued unexpected entry")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock after clock advance")
	}
}

func TestPurgeExpired(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	stale := newTestEntry(model.Normal, fc.Now())
	stale.ExpiresAt = fc.Now().Add(time.Second)
	fresh := newTestEntry(model.Normal, fc.Now())
	fresh.ExpiresAt = fc.Now().Add(time.Hour)

	if err := q.Enqueue(stale); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(fresh); err != nil {
		t.Fatal(err)
	}

	expired := q.PurgeExpired(fc.Now().Add(2 * time.Second))
	if len(expired) != 1 || expired[0].Descriptor.ID != stale.Descriptor.ID {
		t.Fatalf("expected exactly the stale entry to be purged, got %d entries", len(expired))
	}
	if q.Size() != 1 {
		t.Fatalf("expected 1 entry remaining, got %d", q.Size())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	e1 := newTestEntry(model.Critical, fc.Now())
	e1.Descriptor.Header = map[string][]string{"X-Test": {"a"}}
	e1.Descriptor.Body = []byte("payload")
	e1.Descriptor.Tags = map[string]string{"env": "prod"}
	e2 := newTestEntry(model.Low, fc.Now())

	if err := q.Enqueue(e1); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(e2); err != nil {
		t.Fatal(err)
	}

	data, err := q.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	restored := New(fc, 0)
	if err := restored.Restore(data); err != nil {
		t.Fatal(err)
	}
	if restored.Size() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", restored.Size())
	}

	ctx := context.Background()
	got, err := restored.DequeueReady(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Descriptor.Priority != model.Critical {
		t.Fatalf("expected restored ordering to preserve priority, got %v", got.Descriptor.Priority)
	}
	if got.Descriptor.Body == nil || string(got.Descriptor.Body) != "payload" {
		t.Fatalf("expected body to round-trip, got %q", got.Descriptor.Body)
	}
	if got.Descriptor.Tags["env"] != "prod" {
		t.Fatalf("expected tags to round-trip")
	}
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)
	if err := q.Restore([]byte("not a snapshot")); err != ErrCorruptSnapshot {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestRemoveQueuedEntry(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	entry := newTestEntry(model.Normal, fc.Now())
	if err := q.Enqueue(entry); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if !q.Remove(entry.Descriptor.ID) {
		t.Fatal("expected Remove to report the entry was queued")
	}
	if q.Size() != 0 {
		t.Fatalf("expected queue to be empty after Remove, got size %d", q.Size())
	}
	if q.Remove(entry.Descriptor.ID) {
		t.Fatal("expected second Remove of the same id to report false")
	}
}

func TestRemoveAfterDequeueReportsFalse(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	entry := newTestEntry(model.Normal, fc.Now())
	if err := q.Enqueue(entry); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	dequeued, err := q.DequeueReady(context.Background())
	if err != nil {
		t.Fatalf("DequeueReady: %v", err)
	}
	if dequeued.Descriptor.ID != entry.Descriptor.ID {
		t.Fatalf("dequeued wrong entry")
	}

	if q.Remove(entry.Descriptor.ID) {
		t.Fatal("expected Remove to report false once a worker already owns the entry")
	}
}

func TestCloseUnblocksWaiters(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	q := New(fc, 0)

	errCh := make(chan error, 1)
	go func() {
		_, err := q.DequeueReady(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		if err != ErrShutdown {
			t.Fatalf("expected ErrShutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("DequeueReady did not unblock after Close")
	}
}

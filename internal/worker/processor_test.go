package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/queue"
)

type fakeReconciler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeReconciler) Reconcile(_ context.Context, id string) (intake.Reconciliation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return intake.Reconciliation{Enrollment: id}, f.err
}

func (f *fakeReconciler) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) PutImage(_ context.Context, enrollment, filename, _ string) error {
	f.keys = append(f.keys, enrollment+"/"+filename)
	return f.err
}

func accepted(t *testing.T, id, name string) queue.Message {
	t.Helper()
	msg, err := queue.NewImageAccepted(queue.ImageAccepted{Enrollment: id, Filename: name, Path: "/data/" + id + "/" + name, Sequence: 1})
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestHandleReconcilesAndArchives(t *testing.T) {
	rec := &fakeReconciler{}
	arc := &fakeArchive{}
	p := NewProcessor(rec, arc, nil)

	if err := p.Handle(context.Background(), accepted(t, "AB12", "01.jpg")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := rec.seen(); len(got) != 1 || got[0] != "AB12" {
		t.Errorf("reconciled %v", got)
	}
	if len(arc.keys) != 1 || arc.keys[0] != "AB12/01.jpg" {
		t.Errorf("archived %v", arc.keys)
	}
}

func TestHandleWithoutArchive(t *testing.T) {
	p := NewProcessor(&fakeReconciler{}, nil, nil)
	if err := p.Handle(context.Background(), accepted(t, "AB12", "01.jpg")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestHandleErrors(t *testing.T) {
	ctx := context.Background()

	if err := NewProcessor(&fakeReconciler{}, nil, nil).Handle(ctx, queue.Message{Type: "other"}); err != nil {
		t.Errorf("unknown type should be ignored, got %v", err)
	}
	if err := NewProcessor(&fakeReconciler{}, nil, nil).Handle(ctx, queue.Message{Type: queue.TypeImageAccepted, Body: []byte("{")}); err == nil {
		t.Error("malformed body should fail")
	}

	recErr := &fakeReconciler{err: errors.New("db locked")}
	arc := &fakeArchive{}
	if err := NewProcessor(recErr, arc, nil).Handle(ctx, accepted(t, "A", "01.png")); err == nil {
		t.Error("reconcile failure should surface")
	}
	if len(arc.keys) != 0 {
		t.Error("archived after failed reconcile")
	}

	if err := NewProcessor(&fakeReconciler{}, &fakeArchive{err: errors.New("no bucket")}, nil).Handle(ctx, accepted(t, "A", "01.png")); err == nil {
		t.Error("archive failure should surface")
	}
}

func TestRunDrainsQueueUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewInMemory(8)
	rec := &fakeReconciler{}
	p := NewProcessor(rec, nil, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, q) }()

	q.Publish(ctx, accepted(t, "A1", "01.png"))
	q.Publish(ctx, queue.Message{Type: queue.TypeImageAccepted, Body: []byte("bad")})
	q.Publish(ctx, accepted(t, "B2", "01.png"))

	deadline := time.After(2 * time.Second)
	for len(rec.seen()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("processed %v", rec.seen())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

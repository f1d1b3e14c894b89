// Package worker applies follow-up work to queued image events.
package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/metrics"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/queue"
)

// Reconciler brings a student's counter in line with its folder.
type Reconciler interface {
	Reconcile(ctx context.Context, enrollment string) (intake.Reconciliation, error)
}

// Archiver copies a stored image somewhere durable.
type Archiver interface {
	PutImage(ctx context.Context, enrollment, filename, localPath string) error
}

// Processor consumes image.accepted events.
type Processor struct {
	reconciler Reconciler
	archive    Archiver
	metrics    *metrics.Metrics
}

// NewProcessor creates a processor. archive may be nil.
func NewProcessor(r Reconciler, archive Archiver, m *metrics.Metrics) *Processor {
	return &Processor{reconciler: r, archive: archive, metrics: m}
}

// Run handles messages from q until ctx is cancelled or the stream ends.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			log.Printf("worker: %v", err)
		}
	}
	return nil
}

// Handle processes one message. Unknown message types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeImageAccepted {
		p.metrics.Event("ignored")
		return nil
	}
	evt, err := queue.DecodeImageAccepted(msg)
	if err != nil {
		p.metrics.Event("invalid")
		return err
	}

	if _, err := p.reconciler.Reconcile(ctx, evt.Enrollment); err != nil {
		p.metrics.Event("failed")
		return fmt.Errorf("reconcile %s: %w", evt.Enrollment, err)
	}
	if p.archive != nil {
		if err := p.archive.PutImage(ctx, evt.Enrollment, evt.Filename, evt.Path); err != nil {
			p.metrics.Event("failed")
			return fmt.Errorf("archive %s/%s: %w", evt.Enrollment, evt.Filename, err)
		}
	}
	p.metrics.Event("ok")
	return nil
}

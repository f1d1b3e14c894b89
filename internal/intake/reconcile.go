package intake

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/enrollment"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
)

// Reconciliation reports the effect of Reconcile on one student.
type Reconciliation struct {
	Enrollment string `json:"enrollment"`
	Before     int    `json:"before"`
	After      int    `json:"after"`
	Changed    bool   `json:"changed"`
}

// Reconcile rewrites the stored counter for id to the number of images in
// its folder. The folder is authoritative.
func (s *Service) Reconcile(ctx context.Context, id string) (Reconciliation, error) {
	if !enrollment.Valid(id) {
		return Reconciliation{}, ErrInvalidEnrollment
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := scanFolder(filepath.Join(s.dataDir, id))
	if err != nil {
		return Reconciliation{}, fail(ErrSaveFailure, err)
	}
	// Files added out-of-band can exceed the cap; the counter never does.
	count := min(state.count, MaxImages)
	if count < state.count {
		log.Printf("reconcile %s: %d images on disk, counter capped at %d", id, state.count, MaxImages)
	}
	rec := Reconciliation{Enrollment: id, After: count}

	st, err := s.counter.Get(ctx, id)
	switch {
	case errors.Is(err, students.ErrNotFound):
		if count == 0 {
			return rec, nil
		}
	case err != nil:
		return Reconciliation{}, fail(ErrStorageFailure, err)
	default:
		rec.Before = st.ImageCount
		if st.ImageCount == count {
			return rec, nil
		}
	}

	if err := s.counter.SetCount(ctx, id, count); err != nil {
		return Reconciliation{}, fail(ErrStorageFailure, err)
	}
	rec.Changed = true
	s.metrics.Corrected()
	log.Printf("reconciled %s: counter %d -> %d", id, rec.Before, rec.After)
	return rec, nil
}

// ReconcileAll reconciles every student folder under the data root and every
// stored record, including records whose folder has disappeared.
func (s *Service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	seen := map[string]bool{}
	var ids []string

	entries, err := os.ReadDir(s.dataDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && enrollment.Valid(e.Name()) && !seen[e.Name()] {
			seen[e.Name()] = true
			ids = append(ids, e.Name())
		}
	}

	records, err := s.counter.List(ctx)
	if err != nil {
		return nil, fail(ErrStorageFailure, err)
	}
	for _, st := range records {
		if !seen[st.Enrollment] && enrollment.Valid(st.Enrollment) {
			seen[st.Enrollment] = true
			ids = append(ids, st.Enrollment)
		}
	}

	out := make([]Reconciliation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := s.Reconcile(ctx, id)
		if err != nil {
			return out, fmt.Errorf("reconcile %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Package intake validates student image uploads, stores them in per-student
// folders and keeps the student counter in step with the folder contents.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/enrollment"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/metrics"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/queue"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
)

const (
	// MaxFileBytes is the largest accepted image body.
	MaxFileBytes = 5 << 20
	// MaxImages caps the images stored per student.
	MaxImages = 10
)

// Counter is the persistence the service needs for student counters.
type Counter interface {
	Increment(ctx context.Context, enrollment string) (int, error)
	SetCount(ctx context.Context, enrollment string, count int) error
	Get(ctx context.Context, enrollment string) (students.Student, error)
	List(ctx context.Context) ([]students.Student, error)
}

// Publisher receives an event for every accepted image.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Upload is one incoming image.
type Upload struct {
	Enrollment string
	Filename   string
	// Open returns the image body. It is only called once the enrollment and
	// extension have been validated.
	Open func() (io.ReadCloser, error)
}

// Result describes a stored image.
type Result struct {
	Filename   string  `json:"filename"`
	URL        *string `json:"url"`
	Path       string  `json:"path"`
	Enrollment string  `json:"enrollment"`
}

// Options configures a Service.
type Options struct {
	DataDir    string
	PreviewDir string
	// PreviewURL is the URL prefix the preview directory is served under.
	PreviewURL string
	Publisher  Publisher
	Metrics    *metrics.Metrics
}

// Service runs the upload pipeline.
type Service struct {
	dataDir   string
	previews  *previewer
	counter   Counter
	publisher Publisher
	metrics   *metrics.Metrics
	locks     *keyedMutex
	now       func() time.Time
}

// NewService creates a service storing images under opts.DataDir.
func NewService(counter Counter, opts Options) (*Service, error) {
	if opts.DataDir == "" {
		return nil, errors.New("intake: data dir required")
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("intake: resolve data dir: %w", err)
	}
	pub := opts.Publisher
	if pub == nil {
		pub = queue.Discard{}
	}
	s := &Service{
		dataDir:   dataDir,
		counter:   counter,
		publisher: pub,
		metrics:   opts.Metrics,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
	if opts.PreviewDir != "" {
		s.previews = newPreviewer(opts.PreviewDir, opts.PreviewURL)
	}
	return s, nil
}

// DataDir returns the absolute data root.
func (s *Service) DataDir() string { return s.dataDir }

// Upload validates and stores one image. Checks run in a fixed order and the
// first failure is returned; see Classify for mapping errors to callers.
func (s *Service) Upload(ctx context.Context, up Upload) (res Result, err error) {
	defer func() { s.metrics.Upload(outcome(err)) }()

	id, err := CheckEnrollment(up.Enrollment)
	if err != nil {
		return Result{}, err
	}
	ext, ok := imageExt(up.Filename)
	if !ok {
		return Result{}, ErrUnsupportedType
	}
	data, err := readBody(up.Open)
	if err != nil {
		return Result{}, err
	}

	dir := filepath.Join(s.dataDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fail(ErrSaveFailure, err)
	}

	unlock := s.locks.Lock(id)
	img, err := s.store(ctx, id, dir, ext, data)
	unlock()
	if err != nil {
		return Result{}, err
	}
	s.metrics.Accepted(img.size)

	res = Result{Filename: img.name, Path: img.path, Enrollment: id}
	if s.previews != nil {
		url, err := s.previews.copy(img.path, img.name)
		if err != nil {
			log.Printf("preview copy for %s/%s failed: %v", id, img.name, err)
			s.metrics.PreviewFailed()
		} else {
			res.URL = &url
		}
	}
	s.announce(ctx, img, id)
	return res, nil
}

// CheckEnrollment runs the enrollment checks that precede every other upload
// check and returns the sanitized identifier.
func CheckEnrollment(raw string) (string, error) {
	if raw == "" {
		return "", ErrEnrollmentRequired
	}
	id := enrollment.Sanitize(raw)
	if id == "" {
		return "", ErrInvalidEnrollment
	}
	return id, nil
}

func readBody(open func() (io.ReadCloser, error)) ([]byte, error) {
	if open == nil {
		return nil, fail(ErrReadFailure, errors.New("no body"))
	}
	rc, err := open()
	if err != nil {
		return nil, fail(ErrReadFailure, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxFileBytes+1))
	if err != nil {
		return nil, fail(ErrReadFailure, err)
	}
	if len(data) > MaxFileBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

type storedImage struct {
	name string
	path string
	seq  int
	size int64
}

// store must be called with the enrollment lock held. It picks the next
// sequence, writes the file and commits the counter; a failed commit
// removes the file again.
func (s *Service) store(ctx context.Context, id, dir, ext string, data []byte) (storedImage, error) {
	state, err := scanFolder(dir)
	if err != nil {
		return storedImage{}, fail(ErrSaveFailure, err)
	}
	seq := state.nextSequence(MaxImages)
	if seq == 0 {
		return storedImage{}, ErrLimitReached
	}

	name := sequenceName(seq, ext)
	staged, err := stageFile(filepath.Join(dir, name), data)
	if err != nil {
		return storedImage{}, fail(ErrSaveFailure, err)
	}
	if _, err := s.counter.Increment(ctx, id); err != nil {
		staged.discard()
		return storedImage{}, fail(ErrStorageFailure, err)
	}
	return storedImage{name: name, path: staged.path, seq: seq, size: int64(len(data))}, nil
}

func (s *Service) announce(ctx context.Context, img storedImage, id string) {
	msg, err := queue.NewImageAccepted(queue.ImageAccepted{
		Enrollment: id,
		Filename:   img.name,
		Path:       img.path,
		Sequence:   img.seq,
		Size:       img.size,
		AcceptedAt: s.now().UTC(),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("publish %s for %s/%s failed: %v", queue.TypeImageAccepted, id, img.name, err)
	}
}

// stagedFile is phase one of an upload: bytes on disk, counter not yet committed.
type stagedFile struct {
	path string
}

// stageFile creates path exclusively so an existing image is never overwritten.
func stageFile(path string, data []byte) (stagedFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return stagedFile{}, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return stagedFile{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return stagedFile{}, err
	}
	return stagedFile{path: path}, nil
}

// discard is the compensating action for a failed commit. A failed removal
// leaves an orphan that the next reconcile accounts for.
func (f stagedFile) discard() {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("rollback: could not remove %s: %v", f.path, err)
	}
}

// Package web exposes the upload pipeline over HTTP.
package web

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/enrollment"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
)

// StudentReader is the read side of the student store.
type StudentReader interface {
	Get(ctx context.Context, enrollment string) (students.Student, error)
	List(ctx context.Context) ([]students.Student, error)
}

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	intake   *intake.Service
	students StudentReader
	db       Checker
	redis    Checker // nil when the queue does not use redis
}

// NewHandler wires handlers to the upload service and the student store.
func NewHandler(svc *intake.Service, reader StudentReader, db, redis Checker) *Handler {
	return &Handler{intake: svc, students: reader, db: db, redis: redis}
}

// maxUploadBody caps the whole multipart request: one image plus form overhead.
const maxUploadBody = intake.MaxFileBytes + 1<<20

// Upload accepts one multipart image for one enrollment.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	if err := c.Request.ParseMultipartForm(maxUploadBody); err != nil && !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, http.ErrMissingBoundary) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": intake.ErrFileTooLarge.Error()})
			return
		}
		log.Printf("upload: parse form: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": intake.ErrReadFailure.Error()})
		return
	}

	raw := c.Request.PostFormValue("enrollment")
	if _, err := intake.CheckEnrollment(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fh := formFile(c.Request, "file")
	if fh == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	res, err := h.intake.Upload(c.Request.Context(), intake.Upload{
		Enrollment: raw,
		Filename:   fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	})
	if err != nil {
		public, client := intake.Classify(err)
		if client {
			c.JSON(http.StatusBadRequest, gin.H{"error": public.Error()})
			return
		}
		log.Printf("upload %q: %v", fh.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": public.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if files := r.MultipartForm.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// ListStudents returns every student with its image count.
func (h *Handler) ListStudents(c *gin.Context) {
	list, err := h.students.List(c.Request.Context())
	if err != nil {
		log.Printf("list students: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": intake.ErrStorageFailure.Error()})
		return
	}
	if list == nil {
		list = []students.Student{}
	}
	c.JSON(http.StatusOK, list)
}

// GetStudent returns one student record.
func (h *Handler) GetStudent(c *gin.Context) {
	id := enrollment.Sanitize(c.Param("enrollment"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": intake.ErrInvalidEnrollment.Error()})
		return
	}
	st, err := h.students.Get(c.Request.Context(), id)
	if errors.Is(err, students.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("get student %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": intake.ErrStorageFailure.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Healthz reports database and redis reachability.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.db != nil && h.db.Healthy(ctx)
	body := gin.H{"status": "ok", "db": dbHealthy}
	healthy := dbHealthy
	if h.redis != nil {
		redisHealthy := h.redis.Healthy(ctx)
		body["redis"] = redisHealthy
		healthy = healthy && redisHealthy
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// DataFile serves stored images from the data root. Anything that is not an
// accepted image, such as the sqlite database, is reported missing.
func (h *Handler) DataFile(c *gin.Context) {
	rel := path.Clean("/" + c.Param("filepath"))
	if rel == "/" || !intake.IsImageName(rel) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(filepath.Join(h.intake.DataDir(), filepath.FromSlash(rel)))
}

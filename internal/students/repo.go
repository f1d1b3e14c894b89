// Package students persists the per-student image counter.
package students

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/store"
)

// ErrNotFound is returned when no record exists for an enrollment.
var ErrNotFound = errors.New("student not found")

// Student is one row of the students table.
type Student struct {
	Enrollment string     `json:"enrollment"`
	ImageCount int        `json:"image_count"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Repository reads and writes student counters.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Increment creates the record when absent and bumps its counter by one in a
// single statement, returning the new count.
func (r *Repository) Increment(ctx context.Context, enrollment string) (int, error) {
	if enrollment == "" {
		return 0, errors.New("enrollment required")
	}
	var count int
	err := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO students (enrollment, image_count)
		VALUES (?, 1)
		ON CONFLICT (enrollment) DO UPDATE SET image_count = students.image_count + 1
		RETURNING image_count
	`), enrollment).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetCount upserts the record with an exact counter value.
func (r *Repository) SetCount(ctx context.Context, enrollment string, count int) error {
	if enrollment == "" {
		return errors.New("enrollment required")
	}
	if count < 0 {
		count = 0
	}
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO students (enrollment, image_count)
		VALUES (?, ?)
		ON CONFLICT (enrollment) DO UPDATE SET image_count = excluded.image_count
	`), enrollment, count)
	return err
}

// Get returns a single student by enrollment.
func (r *Repository) Get(ctx context.Context, enrollment string) (Student, error) {
	row := r.db.Client.QueryRowContext(ctx, r.db.Rebind(`
		SELECT enrollment, image_count, created_at FROM students WHERE enrollment = ?
	`), enrollment)
	var (
		st      Student
		created time.Time
	)
	if err := row.Scan(&st.Enrollment, &st.ImageCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	st.CreatedAt = &created
	return st, nil
}

// List returns every student in whatever order the store yields them.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.Client.QueryContext(ctx, `SELECT enrollment, image_count FROM students`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Student{}
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.Enrollment, &st.ImageCount); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

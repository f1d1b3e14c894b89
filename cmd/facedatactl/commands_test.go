package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/store"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
)

func setupData(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	dataDir := filepath.Join(root, "data")
	t.Setenv("DATA_FOLDER", dataDir)
	t.Setenv("UPLOAD_FOLDER", filepath.Join(root, "uploads"))
	t.Setenv("DATABASE_URL", "")
	return dataDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReconcileThenList(t *testing.T) {
	dataDir := setupData(t)
	writeImages(t, filepath.Join(dataDir, "AB12"), "01.jpg", "02.png")

	out, err := run(t, "reconcile")
	if err != nil {
		t.Fatalf("reconcile: %v\n%s", err, out)
	}
	if !strings.Contains(out, "AB12: 0 -> 2") || !strings.Contains(out, "checked 1, corrected 1") {
		t.Errorf("unexpected reconcile output:\n%s", out)
	}

	out, err = run(t, "students")
	if err != nil {
		t.Fatalf("students: %v", err)
	}
	if !strings.Contains(out, "ENROLLMENT") || !strings.Contains(out, "AB12") || !strings.Contains(out, "2") {
		t.Errorf("unexpected table:\n%s", out)
	}

	out, err = run(t, "students", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"enrollment": "AB12"`) || !strings.Contains(out, `"image_count": 2`) {
		t.Errorf("unexpected json:\n%s", out)
	}
}

func TestReconcileSingleEnrollment(t *testing.T) {
	dataDir := setupData(t)
	writeImages(t, filepath.Join(dataDir, "AB12"), "01.jpg")
	writeImages(t, filepath.Join(dataDir, "CD34"), "01.jpg")

	db, err := store.NewDB(context.Background(), filepath.Join(dataDir, "attendance.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := students.NewRepository(db).SetCount(context.Background(), "AB12", 7); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err := run(t, "reconcile", "--enrollment", "ab12")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "AB12: 7 -> 1") || strings.Contains(out, "CD34") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStudentsUnknownEnrollment(t *testing.T) {
	setupData(t)
	if _, err := run(t, "students", "nobody"); err == nil {
		t.Fatal("expected error for unknown enrollment")
	}
}

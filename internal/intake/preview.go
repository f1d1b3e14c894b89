package intake

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// previewer writes disposable, uniquely named copies of stored images.
type previewer struct {
	dir    string
	prefix string
}

func newPreviewer(dir, prefix string) *previewer {
	if prefix == "" {
		prefix = "/uploads"
	}
	return &previewer{dir: dir, prefix: prefix}
}

// copy duplicates src into the preview dir and returns its public URL.
func (p *previewer) copy(src, name string) (string, error) {
	previewName := uuid.NewString() + "_" + name
	dst := filepath.Join(p.dir, previewName)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create preview: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copy preview: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close preview: %w", err)
	}
	if info, err := in.Stat(); err == nil {
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return path.Join(p.prefix, previewName), nil
}

package intake

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// imageExt returns the lower-cased extension of filename and whether it is accepted.
func imageExt(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext, allowedExts[ext]
}

// folderState describes the accepted images inside one student folder.
type folderState struct {
	count int
	taken map[int]bool
}

// scanFolder counts regular files with an accepted extension. A missing
// folder is an empty one.
func scanFolder(dir string) (folderState, error) {
	st := folderState{taken: map[int]bool{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, ok := imageExt(e.Name()); !ok {
			continue
		}
		st.count++
		if n, err := strconv.Atoi(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))); err == nil {
			st.taken[n] = true
		}
	}
	return st, nil
}

// nextSequence picks count+1, or the lowest free slot in 1..max when that
// number is already used by a file of any accepted extension. Zero means no
// slot is available.
func (st folderState) nextSequence(max int) int {
	if st.count >= max {
		return 0
	}
	if n := st.count + 1; !st.taken[n] {
		return n
	}
	for n := 1; n <= max; n++ {
		if !st.taken[n] {
			return n
		}
	}
	return 0
}

func sequenceName(seq int, ext string) string {
	return fmt.Sprintf("%02d%s", seq, ext)
}

// IsImageName reports whether name carries an accepted image extension.
func IsImageName(name string) bool {
	_, ok := imageExt(name)
	return ok
}

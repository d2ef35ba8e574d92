package torrent

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileEntry is one file of the torrent's content, identified by its relative
// path segments. The order of entries defines the byte layout of the virtual
// concatenated stream, so it must come out identical on every run.
type FileEntry struct {
	Path   []string
	Length int64
}

// RelPath returns the entry's path joined with forward slashes, the form used
// for sorting and display.
func (e FileEntry) RelPath() string {
	return strings.Join(e.Path, "/")
}

// Walk enumerates the content under root and returns the base directory that
// entry paths are relative to, plus the entries sorted by relative path
// (case-sensitive byte order). A single-file root yields one entry named after
// the file, relative to its parent directory.
//
// Symlinks are never followed: a symlinked file or directory is skipped so the
// walk stays deterministic across machines. Hidden files are included.
func Walk(root string) (string, []FileEntry, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		entry := FileEntry{Path: []string{filepath.Base(root)}, Length: info.Size()}
		return filepath.Dir(root), []FileEntry{entry}, nil
	}

	var entries []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		// WalkDir does not descend into symlinked directories; skipping the
		// entry here covers symlinked files too.
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, FileEntry{
			Path:   strings.Split(filepath.ToSlash(rel), "/"),
			Length: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if len(entries) == 0 {
		return "", nil, ErrEmptyInput
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelPath() < entries[j].RelPath()
	})
	return root, entries, nil
}

// TotalLength sums the lengths of all entries.
func TotalLength(entries []FileEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Length
	}
	return total
}

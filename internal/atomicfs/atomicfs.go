// Package atomicfs contains code for writing files atomically. A write is a
// temp file in the destination directory, an fsync, an explicit chmod (modes
// are never left to the umask) and a rename over the target.
package atomicfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tmpSuffix = ".new.tmp"

// WriteFile writes data to a temp file next to filename, fsyncs it, pins
// perm and renames it into place. A crash at any point leaves filename
// either absent or with its previous contents.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	f, err := os.CreateTemp(dir, filepath.Base(filename)+tmpSuffix)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	tmpname := f.Name()
	defer func() {
		if tmpname != "" {
			f.Close()
			os.Remove(tmpname)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%s: %w", tmpname, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%s: fsync: %w", tmpname, err)
	}
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("%s: chmod: %w", tmpname, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", tmpname, err)
	}
	if err := os.Rename(tmpname, filename); err != nil {
		return fmt.Errorf("%s -> %s: %w", tmpname, filename, err)
	}
	tmpname = ""
	return nil
}

// WriteString is WriteFile for text content.
func WriteString(filename, data string, perm os.FileMode) error {
	return WriteFile(filename, []byte(data), perm)
}

// EnsureDir creates dir (and parents, mode 0o755) if missing and pins mode
// on the leaf.
func EnsureDir(dir string, mode os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Chmod(dir, mode)
}

// CleanTemp removes leftover temp files in dir from interrupted writes.
func CleanTemp(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.Contains(e.Name(), tmpSuffix) {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

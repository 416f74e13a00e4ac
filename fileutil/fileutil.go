// Package fileutil holds the file operations shared by config generation and workshop deployment.
// Every function works on an afero.Fs so callers can substitute an in-memory filesystem.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// CopyFile copies src to dst, creating dst's directory.
// When overwrite is false an existing dst is left untouched.
// A failed copy is retried once after re-creating the directory.
func CopyFile(fsys afero.Fs, src, dst string, overwrite bool) error {
	dir := filepath.Dir(dst)
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !exists {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	} else if !overwrite {
		if ok, _ := afero.Exists(fsys, dst); ok {
			return nil
		}
	}

	if err := copyContents(fsys, src, dst); err != nil {
		if mkErr := fsys.MkdirAll(dir, 0o755); mkErr != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", src, dst, errors.Join(err, mkErr))
		}
		if err := copyContents(fsys, src, dst); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
		}
	}
	return nil
}

// copyContents copies the bytes and modification time of src to dst
func copyContents(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}

// SameFile reports whether a and b have the same size and modification time
func SameFile(fsys afero.Fs, a, b string) bool {
	ia, err := fsys.Stat(a)
	if err != nil {
		return false
	}
	ib, err := fsys.Stat(b)
	if err != nil {
		return false
	}
	return ia.Size() == ib.Size() && ia.ModTime().Equal(ib.ModTime())
}

// MirrorFunc is called for every file copied by Mirror with the source path and its path relative to the source root
type MirrorFunc func(src, rel string) error

// Mirror copies the tree at srcDir into dstDir, skipping files whose size and modification
// time already match. onFile, when non-nil, is called for every regular file.
func Mirror(fsys afero.Fs, srcDir, dstDir string, onFile MirrorFunc) error {
	return afero.Walk(fsys, srcDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)

		if info.IsDir() {
			return fsys.MkdirAll(target, 0o755)
		}
		if !SameFile(fsys, path, target) {
			if err := CopyFile(fsys, path, target, true); err != nil {
				return err
			}
		}
		if onFile != nil {
			return onFile(path, rel)
		}
		return nil
	})
}

// KeepList matches file names that must survive ClearDirectory
type KeepList []*regexp.Regexp

// ParseKeepGlobs converts file name globs like "My*.ini" into a KeepList.
// '*' matches any run of characters and '?' a single character; matching ignores case.
func ParseKeepGlobs(globs ...string) KeepList {
	var list KeepList
	for _, glob := range globs {
		glob = strings.Trim(strings.TrimSpace(glob), `"`)
		if glob == "" {
			continue
		}
		pattern := regexp.QuoteMeta(glob)
		pattern = strings.ReplaceAll(pattern, `\*`, ".*?")
		pattern = strings.ReplaceAll(pattern, `\?`, ".")
		list = append(list, regexp.MustCompile("(?i)^"+pattern+"$"))
	}
	return list
}

// Matches reports whether the base name of path matches any glob
func (k KeepList) Matches(path string) bool {
	name := filepath.Base(path)
	for _, re := range k {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ClearDirectory deletes everything below dir except files matched by keep.
// Subdirectories that end up empty are removed; dir itself is kept.
// It reports whether dir is empty afterwards.
func ClearDirectory(fsys afero.Fs, dir string, keep KeepList) (bool, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	empty := true
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			subEmpty, err := ClearDirectory(fsys, path, keep)
			if err != nil {
				return false, err
			}
			if !subEmpty {
				empty = false
				continue
			}
			if err := fsys.Remove(path); err != nil {
				return false, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			continue
		}

		if keep.Matches(path) {
			empty = false
			continue
		}
		if err := fsys.Remove(path); err != nil {
			return false, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return empty, nil
}

// Glob returns the files in dir whose names match pattern (filepath.Match syntax), in lexical order
func Glob(fsys afero.Fs, dir, pattern string) ([]string, error) {
	matches, err := afero.Glob(fsys, filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s in %s: %w", pattern, dir, err)
	}

	files := matches[:0]
	for _, m := range matches {
		if ok, _ := afero.IsDir(fsys, m); !ok {
			files = append(files, m)
		}
	}
	return files, nil
}

// Package backup archives and restores the Collig data directory.
package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prefix starts every archive file name.
const Prefix = "collig_backup_"

// ErrUnsafePath is returned for archive entries that would land outside
// the restore directory.
var ErrUnsafePath = errors.New("archive entry escapes the target directory")

// FileName is the archive name for a backup taken at now.
func FileName(now time.Time) string {
	return Prefix + now.Format("20060102_150405") + ".zip"
}

// Create zips baseDir into outDir and returns the archive path. Entry names
// are slash-separated and relative to baseDir. Earlier backups sitting in
// baseDir are not archived again.
func Create(baseDir, outDir string, now time.Time) (string, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return "", fmt.Errorf("backup source: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("backup source %s is not a directory", baseDir)
	}
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	out := filepath.Join(outDir, FileName(now))
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if path == out || (strings.HasPrefix(name, Prefix) && strings.HasSuffix(name, ".zip")) {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})

	closeErr := zw.Close()
	if err := f.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil || closeErr != nil {
		os.Remove(out)
		if walkErr != nil {
			return "", fmt.Errorf("write archive: %w", walkErr)
		}
		return "", fmt.Errorf("finish archive: %w", closeErr)
	}
	return out, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}

// Restore extracts zipPath over baseDir and returns the number of files
// written. Every entry is checked before anything is written, so a
// malicious archive leaves baseDir untouched.
func Restore(zipPath, baseDir string) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	root, err := filepath.Abs(baseDir)
	if err != nil {
		return 0, err
	}
	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		dest, err := safeJoin(root, f.Name)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", err, f.Name)
		}
		targets[i] = dest
	}

	n := 0
	for i, f := range zr.File {
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targets[i], 0o700); err != nil {
				return n, err
			}
			continue
		}
		if err := extract(f, targets[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func safeJoin(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return "", ErrUnsafePath
	}
	dest := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return dest, nil
}

func extract(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o600
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("write file %s: %w", dest, err)
	}
	return nil
}

package transfer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// buildZipWithTopLevel writes a zip of sourceDir where every entry sits
// under topName/, so that extracting the archive in the destination's
// parent directory recreates the destination folder itself.
func buildZipWithTopLevel(sourceDir, archivePath, topName string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)

	err = filepath.WalkDir(sourceDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := topName + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// countLocalFiles counts files under dir, stopping early once the count
// exceeds stopAfter (pass a negative value to count everything).
func countLocalFiles(dir string, stopAfter int) int {
	count := 0
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			count++
			if stopAfter >= 0 && count > stopAfter {
				return filepath.SkipAll
			}
		}
		return nil
	})
	return count
}

package fileutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// ZipDir writes every file under dir into a flat zip archive at archivePath.
// The archive is removed again when writing fails partway.
func ZipDir(archivePath, dir string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	writer := zip.NewWriter(out)

	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil || entry.IsDir() {
			return walkErr
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		dst, err := writer.Create(filepath.Base(path))
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, in)
		return err
	})
	if err != nil {
		writer.Close()
		out.Close()
		os.Remove(archivePath)
		return err
	}
	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(archivePath)
		return err
	}
	return out.Close()
}

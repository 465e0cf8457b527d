// Package archive packages a model directory into a single zip file.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ZipDir writes every regular file under dir into "<dir>.zip", with entry
// names relative to dir. It returns the archive path and its size.
func ZipDir(dir string) (string, int64, error) {
	dir = filepath.Clean(dir)
	zipPath := dir + ".zip"
	tmp := zipPath + ".tmp"

	out, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("creating archive: %w", err)
	}

	if err := writeZip(out, dir); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", 0, err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", 0, fmt.Errorf("closing archive: %w", err)
	}

	if err := os.Rename(tmp, zipPath); err != nil {
		os.Remove(tmp)
		return "", 0, fmt.Errorf("renaming archive: %w", err)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat archive: %w", err)
	}
	return zipPath, info.Size(), nil
}

func writeZip(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel), d)
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("adding files from %s: %w", dir, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return err
}

// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CreateOptions tunes archive creation.
type CreateOptions struct {
	// CompressionLevel is a compress/gzip level: gzip.DefaultCompression (-1)
	// or 0 (stored) through 9. The zero value stores without compression.
	CompressionLevel int

	// OnWarning, when set, is called for each Warning as it happens
	OnWarning func(Warning)
}

// CreateResult summarizes a finished archive.
type CreateResult struct {
	Files       int
	Directories int
	Symlinks    int

	// Bytes of file content written into the archive (before compression)
	Bytes int64

	Warnings []Warning
}

// archiveWriters holds the writer chain of an archive being created
type archiveWriters struct {
	tarWriter *tar.Writer
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//nolint:gosec // G304: destPath is built from the configured storage root
func setupArchiveWriters(destPath string, level int) (*archiveWriters, error) {
	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	gzWriter, err := gzip.NewWriterLevel(outFile, level)
	if err != nil {
		outFile.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	tw := tar.NewWriter(gzWriter)
	return &archiveWriters{
		tarWriter: tw,
		closers:   []io.Closer{outFile, gzWriter, tw},
	}, nil
}

// Create archives the directory tree at srcDir into destPath.
//
// ctx is checked between entries. Benign source mutations are collected in
// the result; any other failure is returned as *Error with the partial
// archive left in place.
func Create(ctx context.Context, srcDir, destPath string, opts CreateOptions) (result *CreateResult, err error) {
	srcDir = filepath.Clean(srcDir)
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, newError("stat", srcDir, err)
	}
	if !info.IsDir() {
		return nil, newError("stat", srcDir, errors.New("not a directory"))
	}

	aw, err := setupArchiveWriters(destPath, opts.CompressionLevel)
	if err != nil {
		return nil, newError("create", destPath, err)
	}
	defer func() {
		if closeErr := aw.Close(); closeErr != nil && err == nil {
			err = newError("close", destPath, closeErr)
		}
	}()

	w := &treeWriter{
		tw:     aw.tarWriter,
		base:   filepath.Dir(srcDir),
		self:   filepath.Clean(destPath),
		opts:   opts,
		result: &CreateResult{},
	}

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) && path != srcDir {
				w.warn(WarningVanished, path)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return newError("walk", path, walkErr)
		}
		return w.add(path, d)
	})
	if walkErr != nil {
		var archErr *Error
		if errors.As(walkErr, &archErr) {
			return w.result, walkErr
		}
		return w.result, newError("walk", srcDir, walkErr)
	}

	return w.result, nil
}

// treeWriter appends entries of one source tree to a tar stream.
type treeWriter struct {
	tw     *tar.Writer
	base   string
	self   string // the archive being written, when it lives inside the tree
	opts   CreateOptions
	result *CreateResult
}

func (w *treeWriter) warn(kind WarningKind, path string) {
	warning := Warning{Kind: kind, Path: path}
	w.result.Warnings = append(w.result.Warnings, warning)
	if w.opts.OnWarning != nil {
		w.opts.OnWarning(warning)
	}
}

func (w *treeWriter) add(path string, d fs.DirEntry) error {
	if path == w.self {
		return nil
	}
	info, err := d.Info()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.warn(WarningVanished, path)
			return nil
		}
		return newError("stat", path, err)
	}

	rel, err := filepath.Rel(w.base, path)
	if err != nil {
		return newError("name", path, err)
	}
	name := filepath.ToSlash(rel)

	switch mode := info.Mode(); {
	case mode.IsDir():
		return w.addDir(path, name, info)
	case mode&fs.ModeSymlink != 0:
		return w.addSymlink(path, name, info)
	case mode.IsRegular():
		return w.addFile(path, name, info)
	default:
		w.warn(WarningUnsupported, path)
		return nil
	}
}

func (w *treeWriter) addDir(path, name string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return newError("header", path, err)
	}
	header.Name = name + "/"
	if err := w.tw.WriteHeader(header); err != nil {
		return newError("write", path, err)
	}
	w.result.Directories++
	return nil
}

func (w *treeWriter) addSymlink(path, name string, info fs.FileInfo) error {
	target, err := os.Readlink(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.warn(WarningVanished, path)
			return nil
		}
		return newError("readlink", path, err)
	}
	header, err := tar.FileInfoHeader(info, target)
	if err != nil {
		return newError("header", path, err)
	}
	header.Name = name
	if err := w.tw.WriteHeader(header); err != nil {
		return newError("write", path, err)
	}
	w.result.Symlinks++
	return nil
}

//nolint:gosec // G304: path comes from walking the configured volume directory
func (w *treeWriter) addFile(path, name string, info fs.FileInfo) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.warn(WarningVanished, path)
			return nil
		}
		return newError("open", path, err)
	}
	defer file.Close() //nolint:errcheck // Read-only handle

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return newError("header", path, err)
	}
	header.Name = name
	if err := w.tw.WriteHeader(header); err != nil {
		return newError("write", path, err)
	}

	// The header size is fixed, so exactly header.Size bytes must follow.
	copied, err := io.CopyN(w.tw, file, header.Size)
	switch {
	case errors.Is(err, io.EOF):
		w.warn(WarningShrunk, path)
		if padErr := writeZeros(w.tw, header.Size-copied); padErr != nil {
			return newError("write", path, padErr)
		}
	case err != nil:
		return newError("copy", path, err)
	default:
		var probe [1]byte
		if n, _ := file.Read(probe[:]); n > 0 {
			w.warn(WarningGrew, path)
		}
	}

	w.result.Files++
	w.result.Bytes += header.Size
	return nil
}

func writeZeros(dst io.Writer, n int64) error {
	var zeros [32 * 1024]byte
	for n > 0 {
		chunk := int64(len(zeros))
		if n < chunk {
			chunk = n
		}
		written, err := dst.Write(zeros[:chunk])
		if err != nil {
			return err
		}
		n -= int64(written)
	}
	return nil
}

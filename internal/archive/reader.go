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
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// openArchiveReader opens an archive file and returns a tar reader.
// The caller is responsible for closing the returned closers in reverse order.
//
//nolint:gosec // G304: archivePath comes from the catalog
func openArchiveReader(archivePath string) (*tar.Reader, []io.Closer, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		file.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}

	return tar.NewReader(gzReader), []io.Closer{file, gzReader}, nil
}

// closeAll closes all closers in reverse order
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // Best effort cleanup
	}
}

// entryPath normalizes a tar header name to a slash-separated relative path.
func entryPath(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	return strings.Trim(path.Clean("/"+name), "/")
}

// List returns every entry of an archive without extracting it.
func List(archivePath string) ([]Entry, error) {
	tr, closers, err := openArchiveReader(archivePath)
	if err != nil {
		return nil, newError("open", archivePath, err)
	}
	defer closeAll(closers)

	var entries []Entry
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newError("read", archivePath, err)
		}

		p := entryPath(header.Name)
		if p == "" {
			continue
		}
		entry := Entry{
			Name:        path.Base(p),
			Path:        p,
			IsDirectory: header.Typeflag == tar.TypeDir,
			ModTime:     header.ModTime,
		}
		switch header.Typeflag {
		case tar.TypeReg:
			entry.Size = header.Size
		case tar.TypeSymlink, tar.TypeLink:
			entry.LinkTarget = header.Linkname
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ExtractOptions selects what to extract.
type ExtractOptions struct {
	// Paths limits extraction to these entry paths. A directory path selects
	// everything below it. Empty extracts the whole archive.
	Paths []string
}

// ExtractResult summarizes an extraction.
type ExtractResult struct {
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
	Symlinks    int   `json:"symlinks"`
	Bytes       int64 `json:"bytes"`

	// Entries of unsupported types (hard links, devices) that were not extracted
	Skipped int `json:"skipped"`

	// Requested paths that matched no entry
	Unmatched []string `json:"unmatched,omitempty"`
}

// selector matches entry paths against a requested set.
type selector struct {
	paths   []string
	matched map[string]bool
}

func newSelector(requested []string) *selector {
	s := &selector{matched: make(map[string]bool)}
	for _, r := range requested {
		if p := entryPath(r); p != "" {
			s.paths = append(s.paths, p)
		}
	}
	return s
}

func (s *selector) all() bool {
	return len(s.paths) == 0
}

func (s *selector) match(p string) bool {
	if s.all() {
		return true
	}
	hit := false
	for _, want := range s.paths {
		if p == want || strings.HasPrefix(p, want+"/") {
			s.matched[want] = true
			hit = true
		}
	}
	return hit
}

func (s *selector) unmatched() []string {
	var out []string
	for _, want := range s.paths {
		if !s.matched[want] {
			out = append(out, want)
		}
	}
	sort.Strings(out)
	return out
}

// Extract unpacks an archive into destDir, overwriting existing files.
// Entries whose resolved location would fall outside destDir fail the
// extraction with ErrUnsafePath.
func Extract(ctx context.Context, archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	destDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, newError("extract", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, newError("mkdir", destDir, err)
	}
	realDest, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return nil, newError("extract", destDir, err)
	}

	tr, closers, err := openArchiveReader(archivePath)
	if err != nil {
		return nil, newError("open", archivePath, err)
	}
	defer closeAll(closers)

	x := &extractor{
		dest:     destDir,
		realDest: realDest,
		sel:      newSelector(opts.Paths),
		result:   &ExtractResult{},
	}

	for {
		if err := ctx.Err(); err != nil {
			return x.result, newError("extract", archivePath, err)
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return x.result, newError("read", archivePath, err)
		}

		if err := x.extractEntry(tr, header); err != nil {
			return x.result, err
		}
	}

	x.result.Unmatched = x.sel.unmatched()
	return x.result, nil
}

type extractor struct {
	dest     string
	realDest string
	sel      *selector
	result   *ExtractResult
}

func (x *extractor) extractEntry(tr *tar.Reader, header *tar.Header) error {
	p := entryPath(header.Name)
	if p == "" || !x.sel.match(p) {
		return nil
	}

	target, err := validateAndBuildDestPath(x.dest, header.Name)
	if err != nil {
		return err
	}
	if err := x.ensureInside(target); err != nil {
		return err
	}

	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0o750); err != nil {
			return newError("mkdir", target, err)
		}
		if mode != 0 {
			_ = os.Chmod(target, mode|0o700)
		}
		x.result.Directories++

	case tar.TypeReg:
		if err := x.prepareParent(target); err != nil {
			return err
		}
		if err := removeExisting(target); err != nil {
			return err
		}
		if err := extractFile(tr, target, header.Size, mode); err != nil {
			return newError("write", target, err)
		}
		_ = os.Chtimes(target, header.ModTime, header.ModTime)
		x.result.Files++
		x.result.Bytes += header.Size

	case tar.TypeSymlink:
		if err := x.prepareParent(target); err != nil {
			return err
		}
		if err := removeExisting(target); err != nil {
			return err
		}
		if err := os.Symlink(header.Linkname, target); err != nil {
			return newError("symlink", target, err)
		}
		x.result.Symlinks++

	default:
		x.result.Skipped++
	}

	return nil
}

// validateAndBuildDestPath joins name onto dest and rejects lexical traversal.
func validateAndBuildDestPath(dest, name string) (string, error) {
	destPath := filepath.Join(dest, filepath.FromSlash(name))

	if !strings.HasPrefix(destPath, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", newError("extract", name, ErrUnsafePath)
	}

	return destPath, nil
}

// ensureInside resolves the deepest existing ancestor of target and checks it
// is still inside the destination, so a previously extracted symlink cannot
// redirect later entries.
func (x *extractor) ensureInside(target string) error {
	dir := filepath.Dir(target)
	for {
		if _, err := os.Lstat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return newError("resolve", dir, err)
	}
	if resolved != x.realDest && !strings.HasPrefix(resolved, x.realDest+string(os.PathSeparator)) {
		return newError("extract", target, ErrUnsafePath)
	}
	return nil
}

func (x *extractor) prepareParent(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return newError("mkdir", filepath.Dir(target), err)
	}
	return nil
}

// removeExisting clears a non-directory at target so it can be replaced.
func removeExisting(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return newError("stat", target, err)
	}
	if info.IsDir() {
		return newError("extract", target, fmt.Errorf("a directory exists where a file is expected"))
	}
	if err := os.Remove(target); err != nil {
		return newError("remove", target, err)
	}
	return nil
}

// extractFile writes exactly size bytes from reader to destPath.
//
//nolint:gosec // G304: destPath is validated by caller
func extractFile(reader io.Reader, destPath string, size int64, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o640
	}
	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	return copyAndCloseExtractedFile(outFile, reader, destPath, size)
}

// copyAndCloseExtractedFile copies data to the extracted file and handles cleanup
func copyAndCloseExtractedFile(outFile *os.File, reader io.Reader, destPath string, size int64) error {
	_, err := io.CopyN(outFile, reader, size)
	closeErr := outFile.Close()

	if err != nil {
		os.Remove(destPath) //nolint:errcheck // Best effort cleanup on error
		return err
	}
	if closeErr != nil {
		os.Remove(destPath) //nolint:errcheck // Best effort cleanup on error
		return closeErr
	}
	return nil
}

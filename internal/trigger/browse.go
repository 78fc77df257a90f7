// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package trigger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/volumevault/internal/models"
)

// BrowseEntry is one item of a volume directory listing. Path is relative
// to the volume root with forward slashes.
type BrowseEntry struct {
	Name        string    `json:"name"`
	IsDirectory bool      `json:"isDirectory"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	Path        string    `json:"path"`
}

// BrowseListing is a directory listing of a volume's live source tree.
type BrowseListing struct {
	CurrentPath string        `json:"currentPath"`
	Items       []BrowseEntry `json:"items"`
}

// BrowseVolume lists one directory of a volume's source tree. subPath is
// relative to the volume root; empty lists the root. Directories sort
// before files, then by name. A subPath that leaves the root, directly or
// through a symlink, is rejected with ErrInvalidInput.
func (s *Service) BrowseVolume(ctx context.Context, volumeID, subPath string) (*BrowseListing, error) {
	vol, err := s.catalog.GetVolume(ctx, volumeID)
	if err != nil {
		return nil, err
	}

	rel, err := cleanSubPath(subPath)
	if err != nil {
		return nil, err
	}
	dir, err := resolveInside(vol.Path, rel)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		return nil, fmt.Errorf("path %q is not a directory: %w", rel, models.ErrInvalidInput)
	}

	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("path %q of volume %s: %w", rel, vol.Name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("browse volume %s: %w", vol.Name, err)
	}

	entries := make([]BrowseEntry, 0, len(items))
	for _, item := range items {
		entry := BrowseEntry{
			Name:        item.Name(),
			IsDirectory: item.IsDir(),
			Path:        path.Join(rel, item.Name()),
		}
		// Stat follows symlinks; an entry whose target is gone keeps zero values.
		if info, statErr := os.Stat(filepath.Join(dir, item.Name())); statErr == nil {
			entry.Size = info.Size()
			entry.Modified = info.ModTime().UTC()
			entry.IsDirectory = info.IsDir()
		} else {
			s.logger.Debug().Err(statErr).Str("volume", vol.Name).Str("entry", entry.Path).Msg("Browse entry stat failed")
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return entries[i].Name < entries[j].Name
	})

	return &BrowseListing{CurrentPath: rel, Items: entries}, nil
}

// cleanSubPath normalizes a request sub-path to a slash-separated relative
// path. "" and "/" mean the root.
func cleanSubPath(subPath string) (string, error) {
	if strings.ContainsRune(subPath, 0) {
		return "", fmt.Errorf("path contains a NUL byte: %w", models.ErrInvalidInput)
	}
	slashed := filepath.ToSlash(subPath)
	// Cleaning a rooted path pins ".." at the root, so refuse it first.
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path %q leaves the volume: %w", subPath, models.ErrInvalidInput)
		}
	}
	p := path.Clean("/" + slashed)
	return strings.TrimPrefix(p, "/"), nil
}

// resolveInside joins rel onto root and checks that the symlink-resolved
// result is still root or below it.
func resolveInside(root, rel string) (string, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("volume path %s: %w", root, models.ErrNotFound)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", rel, models.ErrNotFound)
	}
	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q leaves the volume: %w", rel, models.ErrInvalidInput)
	}
	return resolved, nil
}

// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package archive writes, lists and extracts the tar+gzip archives that hold
volume snapshots.

Archive layout:

	{storageRoot}/{volumeName}_{2006-01-02T15-04-05-000Z}.tar.gz
	└── {basename(volumePath)}/
	    ├── file.txt
	    ├── nested/
	    │   └── data.bin
	    └── link -> target

Entry names are relative to the parent of the volume directory, so an archive
of /srv/data/photos contains "photos", "photos/a.jpg" and so on, and a full
restore into /srv/data puts the tree back where it came from.

Writers are chained file -> gzip -> tar and closed in reverse order.

Files that disappear or change size while a live volume is being read are
reported as Warnings and never fail the archive. Anything else that goes wrong
is returned as an *Error and leaves the partial archive on disk.
*/
package archive

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Extension is the file suffix of every archive in the storage root.
const Extension = ".tar.gz"

// FileName returns the archive file name for a snapshot of volumeName taken at t.
// The timestamp is UTC with millisecond precision and no characters that are
// unsafe in file names.
func FileName(volumeName string, t time.Time) string {
	t = t.UTC()
	stamp := t.Format("2006-01-02T15-04-05") + fmt.Sprintf("-%03dZ", t.Nanosecond()/int(time.Millisecond))
	return sanitizeName(volumeName) + "_" + stamp + Extension
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "volume"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}

// WarningKind classifies a benign mutation observed while archiving.
type WarningKind string

const (
	// WarningVanished means the file was listed but gone before it could be opened
	WarningVanished WarningKind = "vanished"

	// WarningShrunk means fewer bytes were read than the header declared; the entry was zero-padded
	WarningShrunk WarningKind = "shrunk"

	// WarningGrew means the file had more bytes than the header declared; the entry was truncated
	WarningGrew WarningKind = "grew"

	// WarningUnsupported means the entry type (socket, device, pipe) is not archived
	WarningUnsupported WarningKind = "unsupported"
)

// Warning describes a benign change to the source tree during archival.
type Warning struct {
	Kind WarningKind `json:"kind"`
	Path string      `json:"path"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Path)
}

// Error is a hard archival or extraction failure.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: err}
}

// ErrUnsafePath is returned when an archive entry would land outside the destination.
var ErrUnsafePath = errors.New("entry escapes destination")

// Entry describes one member of an archive.
type Entry struct {
	// Base name of the entry
	Name string `json:"name"`

	// Full slash-separated path inside the archive, without trailing slash
	Path string `json:"path"`

	IsDirectory bool      `json:"is_directory"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`

	// Target of a symbolic link
	LinkTarget string `json:"link_target,omitempty"`
}

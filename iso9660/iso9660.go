// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-cdi.
//
// go-cdi is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-cdi is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-cdi.  If not, see <https://www.gnu.org/licenses/>.

// Package iso9660 walks the ISO-9660 filesystem on a Dreamcast data track:
// it scans for the primary volume descriptor and expands the directory tree
// rooted at it, starting from a 2048-byte logical-sector reader such as a
// cdi.TrackHandle.
package iso9660

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-cdi/internal/binary"
)

const (
	sectorSize              = 2048
	volumeDescriptorsSector = 16

	typePrimaryVolumeDescriptor = 1
	typeVolumeDescriptorSetTerm = 255
	offsetRootDirectoryEntry    = 156
	offsetVolumeIdentifier      = 40
	volumeIdentifierSize        = 32
	offsetSystemIdentifier      = 8
	systemIdentifierSize        = 32
)

// ErrPVDNotFound is returned when the volume-descriptor scan reaches a
// set-terminator without ever seeing a primary volume descriptor.
var ErrPVDNotFound = errors.New("primary volume descriptor not found")

// FileSystem is a parsed ISO-9660 directory tree.
type FileSystem struct {
	src   io.ReaderAt
	cache *sectorCache

	Root     *Entry
	SystemID string
	VolumeID string
}

// Walk scans src (a 2048-byte logical-sector reader, sector 0 being the
// track's first logical sector) for the primary volume descriptor and
// recursively expands the directory tree rooted at it. cacheSize bounds the
// number of directory extents kept in the LRU sector cache; 0 selects a
// reasonable default.
func Walk(ctx context.Context, src io.ReaderAt, cacheSize int) (*FileSystem, error) {
	pvd, err := scanPVD(src)
	if err != nil {
		return nil, err
	}

	cache, err := newSectorCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create sector cache: %w", err)
	}

	fs := &FileSystem{
		src:      src,
		cache:    cache,
		SystemID: binary.ExtractPrintable(pvd[offsetSystemIdentifier : offsetSystemIdentifier+systemIdentifierSize]),
		VolumeID: binary.ExtractPrintable(pvd[offsetVolumeIdentifier : offsetVolumeIdentifier+volumeIdentifierSize]),
	}

	rootRecord := pvd[offsetRootDirectoryEntry:]
	root, err := parseDirectoryRecord(rootRecord, "")
	if err != nil {
		return nil, fmt.Errorf("parse root directory entry: %w", err)
	}
	root.Name = "/"
	root.FullPath = "/"

	if err := fs.expand(ctx, root); err != nil {
		return nil, fmt.Errorf("expand root directory: %w", err)
	}
	fs.Root = root

	return fs, nil
}

// scanPVD reads forward one logical sector at a time starting at sector 16
// until it finds a primary volume descriptor (type 1) or a volume
// descriptor set terminator (type 255), whichever comes first.
func scanPVD(src io.ReaderAt) ([]byte, error) {
	buf := make([]byte, sectorSize)
	for sector := volumeDescriptorsSector; ; sector++ {
		if _, err := src.ReadAt(buf, int64(sector)*sectorSize); err != nil {
			return nil, fmt.Errorf("read volume descriptor at sector %d: %w", sector, err)
		}

		switch buf[0] {
		case typePrimaryVolumeDescriptor:
			out := make([]byte, sectorSize)
			copy(out, buf)
			return out, nil
		case typeVolumeDescriptorSetTerm:
			return nil, ErrPVDNotFound
		}
	}
}

// Files flattens the tree into a pre-order slice of every entry, directories
// included. Callers that only want regular files can filter on IsDir.
func (fs *FileSystem) Files() []*Entry {
	var out []*Entry
	var walk func(e *Entry)
	walk = func(e *Entry) {
		out = append(out, e)
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(fs.Root)
	return out
}

// Find looks up an entry by its full path (forward-slash separated, as
// produced by the walk). The comparison is exact; callers that accept
// case-insensitive or version-suffixed paths should normalise first.
func (fs *FileSystem) Find(path string) (*Entry, error) {
	for _, e := range fs.Files() {
		if e.FullPath == path {
			return e, nil
		}
	}
	return nil, fmt.Errorf("iso9660: %q not found", path)
}

// ReadFile reads the full contents of a regular-file entry.
func (fs *FileSystem) ReadFile(ctx context.Context, e *Entry) ([]byte, error) {
	if e.IsDir {
		return nil, fmt.Errorf("iso9660: %q is a directory", e.FullPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	off := int64(e.ExtentLBA) * sectorSize
	// Read whole logical sectors, since a sector-addressed source such as
	// cdi.TrackHandle rejects unaligned lengths, then trim to the file size.
	n := (int64(e.Size) + sectorSize - 1) / sectorSize * sectorSize
	data := make([]byte, n)
	if _, err := fs.src.ReadAt(data, off); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read file %q: %w", e.FullPath, err)
	}
	return data[:e.Size], nil
}

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

package iso9660

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ZaparooProject/go-cdi/internal/binary"
)

// dirEntryMinSize is sizeof(ISO9660_DirectoryEntry) in the reference layout:
// the fixed fields up to and including the file-identifier-length byte and
// its single-byte identifier slot.
const dirEntryMinSize = 34

const flagDirectory = 0x02

// Entry is one node in the directory tree: either a regular file or a
// directory. "." and ".." are represented like any other entry but are
// never expanded (see FileSystem.expand).
type Entry struct {
	Name      string
	FullPath  string
	IsDir     bool
	ExtentLBA uint32
	Size      uint32
	Parent    *Entry
	Children  []*Entry
}

// parseDirectoryRecord parses one ISO9660_DirectoryEntry starting at raw[0].
// parentPath is used to build FullPath; the caller overwrites Name/FullPath
// for the synthetic root entry.
func parseDirectoryRecord(raw []byte, parentPath string) (*Entry, error) {
	if len(raw) < dirEntryMinSize {
		return nil, fmt.Errorf("directory record too short: have %d bytes, want %d", len(raw), dirEntryMinSize)
	}

	r := bytes.NewReader(raw)
	entryLen := raw[0]
	identLen := int(raw[32])
	if 33+identLen > len(raw) {
		return nil, fmt.Errorf("directory record identifier overruns record: length %d, ident %d", entryLen, identLen)
	}

	extentLBA, err := binary.ReadLSBMSBUint32At(r, 2)
	if err != nil {
		return nil, fmt.Errorf("extent LBA: %w", err)
	}
	extentSize, err := binary.ReadLSBMSBUint32At(r, 10)
	if err != nil {
		return nil, fmt.Errorf("extent size: %w", err)
	}
	flags := raw[25]

	name := normalizeIdentifier(raw[33 : 33+identLen])
	full := parentPath + "/" + name
	if parentPath == "" || parentPath == "/" {
		full = "/" + name
	}

	return &Entry{
		Name:      name,
		FullPath:  full,
		IsDir:     flags&flagDirectory != 0,
		ExtentLBA: extentLBA,
		Size:      extentSize,
	}, nil
}

// normalizeIdentifier turns the raw ISO9660 file-identifier bytes into a
// display name: the special single-byte self/parent markers become "." and
// "..", and everything else has its ";version" suffix stripped.
func normalizeIdentifier(ident []byte) string {
	if len(ident) == 1 && ident[0] == 0x00 {
		return "."
	}
	if len(ident) == 1 && ident[0] == 0x01 {
		return ".."
	}
	name := string(ident)
	if i := lastIndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return name
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// expand reads dir's extent and populates its Children, recursing into any
// child directory whose extent is not already cached. The cache lookup is
// what makes the walk terminate over "." and "..": by the time a ".." entry
// is reached its parent extent is already cached, so it is neither re-read
// nor expanded again.
func (fs *FileSystem) expand(ctx context.Context, dir *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := fs.cache.fetch(dir.ExtentLBA, dir.Size, fs.src)
	if err != nil {
		return fmt.Errorf("read directory extent at LBA %d: %w", dir.ExtentLBA, err)
	}

	remaining := dir.Size
	pos := 0
	for remaining > 0 {
		if remainder := remaining % sectorSize; remainder > 0 && remainder < dirEntryMinSize {
			remaining -= remainder
			pos += int(remainder)
		}
		if pos >= len(raw) {
			break
		}
		if raw[pos] == 0 {
			// A zero record length pads out the rest of the current sector;
			// parsing resumes at the next sector boundary.
			skip := remaining % sectorSize
			if skip == 0 {
				break
			}
			remaining -= skip
			pos += int(skip)
			continue
		}

		entryLen := int(raw[pos])
		end := pos + entryLen
		if end > len(raw) {
			return fmt.Errorf("directory record at offset %d overruns extent (len %d, extent %d bytes)", pos, entryLen, len(raw))
		}

		child, err := parseDirectoryRecord(raw[pos:end], dir.FullPath)
		if err != nil {
			return fmt.Errorf("parse entry at offset %d in LBA %d: %w", pos, dir.ExtentLBA, err)
		}
		child.Parent = dir
		dir.Children = append(dir.Children, child)

		if child.IsDir && child.ExtentLBA != dir.ExtentLBA {
			if !fs.cache.has(child.ExtentLBA) {
				if err := fs.expand(ctx, child); err != nil {
					return err
				}
			}
		}

		remaining -= uint32(entryLen) //nolint:gosec // entryLen fits a single byte
		pos += entryLen
	}

	return nil
}
